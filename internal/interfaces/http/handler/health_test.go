package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/flowstart/douyin-web/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeProbe struct {
	pingErr error
}

func (p fakeProbe) Ping(context.Context) error { return p.pingErr }

func (p fakeProbe) Stats() persistence.PoolStats {
	return persistence.PoolStats{MaxOpen: 25, Open: 2, InUse: 1}
}

func TestHealthHandler(t *testing.T) {
	newRouter := func(p fakeProbe) *gin.Engine {
		r := gin.New()
		r.GET("/health", NewHealthHandler(p, "1.2.3").Health)
		return r
	}

	w, resp := performRequest(t, newRouter(fakeProbe{}), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, resp)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.Equal(t, float64(25), data["pool"].(map[string]any)["max_open_connections"])

	w, resp = performRequest(t, newRouter(fakeProbe{pingErr: errors.New("connection refused")}), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)
	data = dataMap(t, resp)
	assert.Equal(t, "down", data["database"])
	assert.NotContains(t, data, "pool")
}
