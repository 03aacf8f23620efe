package cache

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/flowstart/douyin-web/internal/domain/scan"
	"github.com/flowstart/douyin-web/internal/infrastructure/config"
)

// ProgressRegistry is a scan.Registry that holds resources until closed
type ProgressRegistry interface {
	scan.Registry
	io.Closer
}

// ProgressRegistryFactory picks the registry backend from configuration
type ProgressRegistryFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ProgressRegistryFactoryOption is a functional option for configuring the factory
type ProgressRegistryFactoryOption func(*ProgressRegistryFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ProgressRegistryFactoryOption {
	return func(f *ProgressRegistryFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to memory.
// Default is true.
func WithInMemoryFallback(allow bool) ProgressRegistryFactoryOption {
	return func(f *ProgressRegistryFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithTTL sets how long snapshots stay pollable
func WithTTL(ttl time.Duration) ProgressRegistryFactoryOption {
	return func(f *ProgressRegistryFactory) {
		f.ttl = ttl
	}
}

// NewProgressRegistryFactory creates a new factory
func NewProgressRegistryFactory(cfg config.RedisConfig, opts ...ProgressRegistryFactoryOption) *ProgressRegistryFactory {
	f := &ProgressRegistryFactory{
		redisConfig:           cfg,
		ttl:                   DefaultProgressTTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the Redis registry when Redis is enabled and reachable,
// otherwise the in-memory registry
func (f *ProgressRegistryFactory) Create() (ProgressRegistry, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("using in-memory scan progress registry")
		return NewInMemoryProgressRegistry(f.ttl), nil
	}

	registry, err := NewRedisProgressRegistry(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.ttl)
	if err == nil {
		f.logger.Info("using Redis scan progress registry", zap.String("addr", f.redisConfig.Addr()))
		return registry, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for scan progress but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory scan progress registry. "+
		"Progress polls must then reach the instance that runs the scan.",
		zap.Error(err),
	)
	return NewInMemoryProgressRegistry(f.ttl), nil
}
