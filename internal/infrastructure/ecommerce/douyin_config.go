package ecommerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	infraconfig "github.com/flowstart/douyin-web/internal/infrastructure/config"
)

const (
	// DouyinProductionAPIURL is the open platform gateway
	DouyinProductionAPIURL = "https://openapi-fxg.jinritemai.com"
	// DouyinSandboxAPIURL is the sandbox gateway
	DouyinSandboxAPIURL = "https://openapi-sandbox.jinritemai.com"

	defaultDouyinTimeoutSeconds = 30
)

var (
	ErrDouyinConfigMissingAppKey    = errors.New("douyin: app key is required")
	ErrDouyinConfigMissingAppSecret = errors.New("douyin: app secret is required")
)

// DouyinConfig holds the shop credentials and the gateway the adapter talks to.
// AccessToken may stay empty for self-use applications.
type DouyinConfig struct {
	AppKey         string
	AppSecret      string
	AccessToken    string
	ShopID         string
	APIBaseURL     string
	IsSandbox      bool
	TimeoutSeconds int
}

// NewDouyinConfig creates a production configuration
func NewDouyinConfig(appKey, appSecret, accessToken, shopID string) *DouyinConfig {
	return &DouyinConfig{
		AppKey:         appKey,
		AppSecret:      appSecret,
		AccessToken:    accessToken,
		ShopID:         shopID,
		APIBaseURL:     DouyinProductionAPIURL,
		TimeoutSeconds: defaultDouyinTimeoutSeconds,
	}
}

// DouyinConfigFrom maps the [douyin] section of the application config
func DouyinConfigFrom(c infraconfig.DouyinConfig) *DouyinConfig {
	dc := NewDouyinConfig(c.AppKey, c.AppSecret, c.AccessToken, c.ShopID)
	dc.TimeoutSeconds = c.TimeoutSeconds
	if c.Sandbox {
		dc.IsSandbox = true
		dc.APIBaseURL = DouyinSandboxAPIURL
	}
	return dc
}

// Validate checks the credentials and fills in the gateway and timeout
func (c *DouyinConfig) Validate() error {
	switch {
	case c.AppKey == "":
		return ErrDouyinConfigMissingAppKey
	case c.AppSecret == "":
		return ErrDouyinConfigMissingAppSecret
	}

	if c.APIBaseURL == "" {
		c.APIBaseURL = DouyinProductionAPIURL
		if c.IsSandbox {
			c.APIBaseURL = DouyinSandboxAPIURL
		}
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultDouyinTimeoutSeconds
	}
	return nil
}

// Sign computes the hex HMAC-SHA256, keyed by the app secret, of
// secret + method + param_json + timestamp + v + secret
func (c *DouyinConfig) Sign(method, paramJSON, timestamp, v string) string {
	mac := hmac.New(sha256.New, []byte(c.AppSecret))
	for _, part := range []string{c.AppSecret, method, paramJSON, timestamp, v, c.AppSecret} {
		mac.Write([]byte(part))
	}
	return hex.EncodeToString(mac.Sum(nil))
}
