package logistics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/domain/setting"
)

const (
	maxKD100ResponseSize = 2 * 1024 * 1024
	trackTimeLayout      = "2006-01-02 15:04:05"
)

// Errors returned by the KD100 client
var (
	ErrKD100Unavailable = errors.New("kd100: service unavailable")
	ErrKD100Rejected    = errors.New("kd100: query rejected")
)

// KD100Client queries parcel routes from kuaidi100.com
type KD100Client struct {
	config     KD100Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewKD100Client creates a KD100 client
func NewKD100Client(config KD100Config, logger *zap.Logger) *KD100Client {
	config.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KD100Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}
}

// Query fetches the route of one parcel and returns the decoded body.
// A body whose message is not "ok" is still returned, together with ErrKD100Rejected.
func (c *KD100Client) Query(ctx context.Context, creds setting.KD100Credentials, trackingNumber, carrier string) (*QueryResponse, error) {
	if creds.Customer == "" {
		return nil, ErrKD100MissingCustomer
	}
	if creds.Key == "" {
		return nil, ErrKD100MissingKey
	}

	param, err := json.Marshal(struct {
		Com string `json:"com"`
		Num string `json:"num"`
	}{Com: CarrierCode(carrier), Num: trackingNumber})
	if err != nil {
		return nil, fmt.Errorf("kd100: failed to marshal param: %w", err)
	}

	form := url.Values{}
	form.Set("customer", creds.Customer)
	form.Set("sign", Sign(string(param), creds.Key, creds.Customer))
	form.Set("param", string(param))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("kd100: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKD100Unavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKD100ResponseSize))
	if err != nil {
		return nil, fmt.Errorf("kd100: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrKD100Unavailable, resp.StatusCode)
	}

	var result QueryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("kd100: failed to parse response: %w", err)
	}
	result.Raw = json.RawMessage(body)

	if !result.IsOK() {
		c.logger.Debug("kd100 query rejected",
			zap.String("tracking_number", trackingNumber),
			zap.String("message", result.Message),
			zap.String("return_code", string(result.ReturnCode)),
		)
		return &result, fmt.Errorf("%w: %s", ErrKD100Rejected, result.Message)
	}
	return &result, nil
}

// Track queries a parcel and parses the outcome
func (c *KD100Client) Track(ctx context.Context, creds setting.KD100Credentials, trackingNumber, carrier string) (*order.TrackingResult, error) {
	resp, err := c.Query(ctx, creds, trackingNumber, carrier)
	if err != nil {
		return nil, err
	}
	return c.ParseStatus(resp), nil
}

// ParseStatus maps a successful response to a tracking result
func (c *KD100Client) ParseStatus(resp *QueryResponse) *order.TrackingResult {
	return ParseStatus(resp, c.config.Location)
}

// ParseStatus maps a successful response to a tracking result, reading track
// times in loc. The newest track is the first element of data.
func ParseStatus(resp *QueryResponse, loc *time.Location) *order.TrackingResult {
	state := string(resp.State)
	info, ok := stateTable[state]
	if !ok {
		info = unknownState
	}

	result := &order.TrackingResult{
		IsSigned:   signedStates[state],
		Status:     info.status,
		StatusDesc: info.desc,
		TrackCount: len(resp.Data),
	}
	if n, err := strconv.Atoi(state); err == nil {
		result.State = &n
	}
	if len(resp.Data) > 0 {
		latest := resp.Data[0]
		result.LatestContext = latest.Context
		if loc == nil {
			loc = time.Local
		}
		if t, err := time.ParseInLocation(trackTimeLayout, latest.Time, loc); err == nil {
			result.LatestTime = &t
		}
	}
	return result
}
