package logistics

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// KD100QueryURL is the real-time query endpoint
const KD100QueryURL = "https://poll.kuaidi100.com/poll/query.do"

// KD100Config holds the transport settings of the KD100 client.
// Credentials are not part of it: they live in system_configs and are passed per call.
type KD100Config struct {
	// Endpoint is the query URL
	Endpoint string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// Location is used to read track times, which KD100 reports without zone
	Location *time.Location
}

// Errors for KD100 configuration
var (
	ErrKD100MissingCustomer = errors.New("kd100: customer is required")
	ErrKD100MissingKey      = errors.New("kd100: key is required")
)

// DefaultKD100Config returns the production endpoint with a 10 second timeout
func DefaultKD100Config() KD100Config {
	return KD100Config{
		Endpoint:       KD100QueryURL,
		TimeoutSeconds: 10,
		Location:       time.Local,
	}
}

func (c *KD100Config) normalize() {
	if c.Endpoint == "" {
		c.Endpoint = KD100QueryURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	if c.Location == nil {
		c.Location = time.Local
	}
}

// Sign computes upper hex MD5(param + key + customer)
func Sign(param, key, customer string) string {
	sum := md5.Sum([]byte(param + key + customer))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
