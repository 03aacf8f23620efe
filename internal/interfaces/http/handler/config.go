package handler

import (
	"context"

	"github.com/flowstart/douyin-web/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
)

// ConfigStore is the system settings table
type ConfigStore interface {
	SettingsStore
	List(ctx context.Context) ([]persistence.ConfigItem, error)
}

var _ ConfigStore = (*persistence.GormSystemConfigRepository)(nil)

// ConfigHandler serves the generic system settings endpoints
type ConfigHandler struct {
	BaseHandler
	store ConfigStore
}

// NewConfigHandler creates a ConfigHandler
func NewConfigHandler(store ConfigStore) *ConfigHandler {
	return &ConfigHandler{store: store}
}

// SetConfigRequest writes one setting
type SetConfigRequest struct {
	Value       *string `json:"value" binding:"required"`
	Description string  `json:"description" binding:"max=255"`
}

// BatchConfigRequest writes several settings at once
type BatchConfigRequest struct {
	Items []BatchConfigItem `json:"items" binding:"required,min=1,dive"`
}

// BatchConfigItem is one entry of a batch write
type BatchConfigItem struct {
	Key   string `json:"key" binding:"required,max=100"`
	Value string `json:"value"`
}

// List handles GET /config
func (h *ConfigHandler) List(c *gin.Context) {
	items, err := h.store.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// Get handles GET /config/:key
func (h *ConfigHandler) Get(c *gin.Context) {
	key := c.Param("key")
	value, ok, err := h.store.Get(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !ok {
		h.NotFound(c, "配置项不存在: "+key)
		return
	}
	h.Success(c, gin.H{"key": key, "value": value})
}

// Set handles PUT /config/:key
func (h *ConfigHandler) Set(c *gin.Context) {
	var req SetConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	key := c.Param("key")
	if len(key) > 100 {
		h.BadRequest(c, "key must be at most 100 characters")
		return
	}
	if err := h.store.Set(c.Request.Context(), key, *req.Value, req.Description); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"key": key, "value": *req.Value})
}

// Batch handles POST /config/batch
func (h *ConfigHandler) Batch(c *gin.Context) {
	var req BatchConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	values := make(map[string]string, len(req.Items))
	for _, it := range req.Items {
		values[it.Key] = it.Value
	}
	if err := h.store.SetMany(c.Request.Context(), values); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"updated": len(values)})
}
