package handler

import (
	"context"
	"net/http"
	"sort"
	"testing"

	"github.com/flowstart/douyin-web/internal/infrastructure/persistence"
	"github.com/flowstart/douyin-web/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memConfigStore struct {
	*memSettings
	descriptions map[string]string
}

func (s *memConfigStore) Set(ctx context.Context, key, value, description string) error {
	if description != "" {
		s.descriptions[key] = description
	}
	return s.memSettings.Set(ctx, key, value, description)
}

func (s *memConfigStore) List(_ context.Context) ([]persistence.ConfigItem, error) {
	out := make([]persistence.ConfigItem, 0, len(s.values))
	for k, v := range s.values {
		out = append(out, persistence.ConfigItem{Key: k, Value: v, Description: s.descriptions[k]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func newConfigRouter(s *memConfigStore) *gin.Engine {
	h := NewConfigHandler(s)
	r := gin.New()
	r.GET("/config", h.List)
	r.POST("/config/batch", h.Batch)
	r.GET("/config/:key", h.Get)
	r.PUT("/config/:key", h.Set)
	return r
}

func TestConfigHandler(t *testing.T) {
	store := &memConfigStore{
		memSettings:  newMemSettings("logistics_query_interval", "35", "kd100_customer", ""),
		descriptions: map[string]string{},
	}
	r := newConfigRouter(store)

	w, resp := performRequest(t, r, http.MethodGet, "/config", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	items := resp.Data.([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "kd100_customer", items[0].(map[string]any)["key"])

	w, resp = performRequest(t, r, http.MethodGet, "/config/logistics_query_interval", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "35", dataMap(t, resp)["value"])

	w, resp = performRequest(t, r, http.MethodGet, "/config/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)

	w, _ = performRequest(t, r, http.MethodPut, "/config/theme", jsonBody(t, map[string]string{"value": "dark", "description": "UI theme"}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dark", store.values["theme"])
	assert.Equal(t, "UI theme", store.descriptions["theme"])

	t.Run("empty value is allowed", func(t *testing.T) {
		w, _ := performRequest(t, r, http.MethodPut, "/config/theme", jsonBody(t, map[string]string{"value": ""}))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "", store.values["theme"])
	})

	t.Run("value is required", func(t *testing.T) {
		w, resp := performRequest(t, r, http.MethodPut, "/config/theme", jsonBody(t, map[string]string{}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("batch", func(t *testing.T) {
		w, resp := performRequest(t, r, http.MethodPost, "/config/batch", jsonBody(t, map[string]any{
			"items": []map[string]string{
				{"key": "kd100_customer", "value": "CUST"},
				{"key": "kd100_key", "value": "KEY"},
			},
		}))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(2), dataMap(t, resp)["updated"])
		assert.Equal(t, "CUST", store.values["kd100_customer"])
		assert.Equal(t, "KEY", store.values["kd100_key"])
	})

	t.Run("batch rejects empty and keyless items", func(t *testing.T) {
		w, _ := performRequest(t, r, http.MethodPost, "/config/batch", jsonBody(t, map[string]any{"items": []any{}}))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w, _ = performRequest(t, r, http.MethodPost, "/config/batch", jsonBody(t, map[string]any{
			"items": []map[string]string{{"value": "x"}},
		}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
