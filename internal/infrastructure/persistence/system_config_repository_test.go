package persistence

import (
	"context"
	"testing"

	"github.com/flowstart/douyin-web/internal/domain/setting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormSystemConfigRepository_GetSet(t *testing.T) {
	repo := NewGormSystemConfigRepository(newSQLiteDB(t))
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, setting.KeyKD100Key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, setting.KeyKD100Key, "k1", "授权key"))
	require.NoError(t, repo.Set(ctx, setting.KeyKD100Key, "k2", ""))

	v, ok, err := repo.Get(ctx, setting.KeyKD100Key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "k2", v)

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "授权key", items[0].Description, "empty description keeps the stored one")
}

func TestGormSystemConfigRepository_SeedDefaults(t *testing.T) {
	repo := NewGormSystemConfigRepository(newSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, setting.KeyLogisticsInterval, "60", ""))
	require.NoError(t, repo.SeedDefaults(ctx, DefaultSettings()))
	// seeding twice is a no-op
	require.NoError(t, repo.SeedDefaults(ctx, DefaultSettings()))

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, setting.KeyKD100Customer, items[0].Key)
	assert.Equal(t, setting.KeyKD100Key, items[1].Key)
	assert.Equal(t, setting.KeyLogisticsInterval, items[2].Key)
	assert.Equal(t, "60", items[2].Value, "seeding must not overwrite a stored value")

	minutes, err := setting.LogisticsInterval(ctx, repo, setting.DefaultLogisticsInterval)
	require.NoError(t, err)
	assert.Equal(t, 60, minutes)
}

func TestGormSystemConfigRepository_SetMany(t *testing.T) {
	repo := NewGormSystemConfigRepository(newSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, repo.SetMany(ctx, map[string]string{
		setting.KeyKD100Customer: "cust",
		setting.KeyKD100Key:      "key",
	}))

	creds, err := setting.LoadKD100Credentials(ctx, repo)
	require.NoError(t, err)
	assert.True(t, creds.IsComplete())
	assert.Equal(t, "cust", creds.Customer)
	assert.Equal(t, "key", creds.Key)
}
