package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowstart/douyin-web/internal/domain/scan"
	"github.com/flowstart/douyin-web/internal/domain/shared"
)

const defaultProgressKeyPrefix = "douyin:scan:progress:"

// RedisProgressRegistry implements scan.Registry using Redis, so any
// instance behind a load balancer can answer a progress poll
type RedisProgressRegistry struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisProgressRegistry connects to Redis and verifies the connection
func NewRedisProgressRegistry(cfg RedisConfig, ttl time.Duration) (*RedisProgressRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisProgressRegistryWithClient(client, "", ttl), nil
}

// NewRedisProgressRegistryWithClient creates a registry on an existing client
func NewRedisProgressRegistryWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisProgressRegistry {
	if keyPrefix == "" {
		keyPrefix = defaultProgressKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultProgressTTL
	}
	return &RedisProgressRegistry{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Save writes the snapshot as JSON and refreshes its TTL
func (r *RedisProgressRegistry) Save(ctx context.Context, p *scan.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode scan progress: %w", err)
	}
	if err := r.client.Set(ctx, r.key(p.TaskID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save scan progress: %w", err)
	}
	return nil
}

// Get reads a snapshot
func (r *RedisProgressRegistry) Get(ctx context.Context, taskID string) (*scan.Progress, error) {
	data, err := r.client.Get(ctx, r.key(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load scan progress: %w", err)
	}

	var p scan.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode scan progress: %w", err)
	}
	return &p, nil
}

// Close closes the Redis client
func (r *RedisProgressRegistry) Close() error {
	return r.client.Close()
}

func (r *RedisProgressRegistry) key(taskID string) string {
	return r.keyPrefix + taskID
}

var _ scan.Registry = (*RedisProgressRegistry)(nil)
