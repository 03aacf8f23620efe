package setting

import (
	"context"
	"strconv"
)

// Keys of the system_configs table
const (
	KeyLogisticsInterval = "logistics_query_interval"
	KeyKD100Customer     = "kd100_customer"
	KeyKD100Key          = "kd100_key"
)

// DefaultLogisticsInterval is the minimum minutes between two checks of the same order
const DefaultLogisticsInterval = 35

// Repository reads and writes key/value settings
type Repository interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)

	// Set inserts or replaces a value
	Set(ctx context.Context, key, value, description string) error
}

// KD100Credentials authenticate against the KD100 query API
type KD100Credentials struct {
	Customer string
	Key      string
}

// IsComplete returns true when both parts are present
func (c KD100Credentials) IsComplete() bool {
	return c.Customer != "" && c.Key != ""
}

// LogisticsInterval reads the query interval in minutes, falling back to fallback
// when the setting is missing or not a positive integer.
func LogisticsInterval(ctx context.Context, repo Repository, fallback int) (int, error) {
	raw, ok, err := repo.Get(ctx, KeyLogisticsInterval)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback, nil
	}
	return n, nil
}

// LoadKD100Credentials reads the KD100 customer id and key
func LoadKD100Credentials(ctx context.Context, repo Repository) (KD100Credentials, error) {
	customer, _, err := repo.Get(ctx, KeyKD100Customer)
	if err != nil {
		return KD100Credentials{}, err
	}
	key, _, err := repo.Get(ctx, KeyKD100Key)
	if err != nil {
		return KD100Credentials{}, err
	}
	return KD100Credentials{Customer: customer, Key: key}, nil
}
