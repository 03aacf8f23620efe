package setting

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapRepository struct {
	values map[string]string
	err    error
}

func (m *mapRepository) Get(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mapRepository) Set(_ context.Context, key, value, _ string) error {
	m.values[key] = value
	return nil
}

func TestLogisticsInterval(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		values map[string]string
		want   int
	}{
		{"missing uses fallback", map[string]string{}, 35},
		{"configured", map[string]string{KeyLogisticsInterval: "60"}, 60},
		{"garbage uses fallback", map[string]string{KeyLogisticsInterval: "abc"}, 35},
		{"zero uses fallback", map[string]string{KeyLogisticsInterval: "0"}, 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LogisticsInterval(ctx, &mapRepository{values: tt.values}, DefaultLogisticsInterval)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("store error", func(t *testing.T) {
		_, err := LogisticsInterval(ctx, &mapRepository{err: errors.New("down")}, DefaultLogisticsInterval)
		assert.Error(t, err)
	})
}

func TestLoadKD100Credentials(t *testing.T) {
	repo := &mapRepository{values: map[string]string{KeyKD100Customer: "C1"}}

	creds, err := LoadKD100Credentials(context.Background(), repo)
	require.NoError(t, err)
	assert.False(t, creds.IsComplete())

	require.NoError(t, repo.Set(context.Background(), KeyKD100Key, "K1", ""))
	creds, err = LoadKD100Credentials(context.Background(), repo)
	require.NoError(t, err)
	assert.True(t, creds.IsComplete())
	assert.Equal(t, "C1", creds.Customer)
}
