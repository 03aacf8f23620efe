package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/flowstart/douyin-web/internal/application/reconcile"
	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/domain/scan"
	"github.com/flowstart/douyin-web/internal/domain/setting"
	"github.com/flowstart/douyin-web/internal/domain/shared"
	"github.com/flowstart/douyin-web/internal/infrastructure/logistics"
	"github.com/flowstart/douyin-web/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSettings struct {
	values map[string]string
	setErr error
}

func newMemSettings(kv ...string) *memSettings {
	s := &memSettings{values: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		s.values[kv[i]] = kv[i+1]
	}
	return s
}

func (s *memSettings) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memSettings) Set(_ context.Context, key, value, _ string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

func (s *memSettings) SetMany(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		if err := s.Set(ctx, k, v, ""); err != nil {
			return err
		}
	}
	return nil
}

type fakeScanner struct {
	limit    int
	result   *reconcile.StartResult
	startErr error
	progress map[string]*scan.Progress
	overview *reconcile.Overview
}

func (f *fakeScanner) Start(_ context.Context, limit int) (*reconcile.StartResult, error) {
	f.limit = limit
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.result, nil
}

func (f *fakeScanner) Progress(_ context.Context, taskID string) (*scan.Progress, error) {
	p, ok := f.progress[taskID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakeScanner) Overview(_ context.Context) (*reconcile.Overview, error) {
	return f.overview, nil
}

type fakeTracker struct {
	creds   setting.KD100Credentials
	number  string
	carrier string
	resp    *logistics.QueryResponse
	err     error
}

func (f *fakeTracker) Query(_ context.Context, creds setting.KD100Credentials, trackingNumber, carrier string) (*logistics.QueryResponse, error) {
	f.creds, f.number, f.carrier = creds, trackingNumber, carrier
	return f.resp, f.err
}

func (f *fakeTracker) ParseStatus(resp *logistics.QueryResponse) *order.TrackingResult {
	state := 3
	return &order.TrackingResult{IsSigned: resp.Message == "ok", State: &state, Status: "signed", StatusDesc: "签收", TrackCount: len(resp.Data)}
}

func newLogisticsRouter(s *fakeScanner, k *fakeTracker, settings *memSettings) *gin.Engine {
	h := NewLogisticsHandler(s, k, settings)
	r := gin.New()
	g := r.Group("/logistics")
	g.POST("/scan", h.StartScan)
	g.GET("/scan/:task_id", h.ScanProgress)
	g.GET("/stats", h.Stats)
	g.GET("/config", h.GetConfig)
	g.PUT("/config", h.UpdateConfig)
	g.GET("/query/:tracking_number", h.Query)
	return r
}

func TestLogisticsHandler_StartScan(t *testing.T) {
	t.Run("accepted with task id", func(t *testing.T) {
		s := &fakeScanner{result: &reconcile.StartResult{TaskID: "logistics_20240301_120000", Count: 5, IntervalMinutes: 35, Message: "started"}}
		w, resp := performRequest(t, newLogisticsRouter(s, &fakeTracker{}, newMemSettings()), http.MethodPost, "/logistics/scan",
			jsonBody(t, map[string]int{"limit": 5}))

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, 5, s.limit)
		assert.Equal(t, "logistics_20240301_120000", dataMap(t, resp)["task_id"])
	})

	t.Run("limit from query", func(t *testing.T) {
		s := &fakeScanner{result: &reconcile.StartResult{TaskID: "logistics_x", Count: 2}}
		w, _ := performRequest(t, newLogisticsRouter(s, &fakeTracker{}, newMemSettings()), http.MethodPost, "/logistics/scan?limit=2", nil)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, 2, s.limit)
	})

	t.Run("nothing to check", func(t *testing.T) {
		s := &fakeScanner{result: &reconcile.StartResult{IntervalMinutes: 35, Message: "none"}}
		w, resp := performRequest(t, newLogisticsRouter(s, &fakeTracker{}, newMemSettings()), http.MethodPost, "/logistics/scan", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		data := dataMap(t, resp)
		assert.NotContains(t, data, "task_id")
		assert.Equal(t, float64(0), data["count"])
	})

	t.Run("negative limit", func(t *testing.T) {
		s := &fakeScanner{}
		w, _ := performRequest(t, newLogisticsRouter(s, &fakeTracker{}, newMemSettings()), http.MethodPost, "/logistics/scan",
			jsonBody(t, map[string]int{"limit": -1}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("already running", func(t *testing.T) {
		s := &fakeScanner{startErr: shared.ErrConflict.WithMessage("running")}
		w, resp := performRequest(t, newLogisticsRouter(s, &fakeTracker{}, newMemSettings()), http.MethodPost, "/logistics/scan", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeConflict, resp.Error.Code)
	})

	t.Run("kd100 not configured", func(t *testing.T) {
		s := &fakeScanner{startErr: reconcile.ErrNotConfigured}
		w, resp := performRequest(t, newLogisticsRouter(s, &fakeTracker{}, newMemSettings()), http.MethodPost, "/logistics/scan", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.CodeKD100NotConfigured, resp.Error.Code)
	})
}

func TestLogisticsHandler_ProgressAndStats(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &fakeScanner{
		progress: map[string]*scan.Progress{
			"logistics_1": scan.NewProgress("logistics_1", 10, 35, 0, started),
		},
		overview: &reconcile.Overview{
			LogisticsStats:       order.LogisticsStats{TotalOrders: 6, WithLogistics: 6, Checked: 2, Signed: 1, PendingCheck: 3},
			QueryIntervalMinutes: 35,
		},
	}
	r := newLogisticsRouter(s, &fakeTracker{}, newMemSettings())

	w, resp := performRequest(t, r, http.MethodGet, "/logistics/scan/logistics_1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(10), dataMap(t, resp)["total"])

	w, _ = performRequest(t, r, http.MethodGet, "/logistics/scan/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = performRequest(t, r, http.MethodGet, "/logistics/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, resp)
	assert.Equal(t, float64(3), data["pending_check"])
	assert.Equal(t, float64(35), data["query_interval_minutes"])
}

func TestLogisticsHandler_Config(t *testing.T) {
	settings := newMemSettings(
		setting.KeyLogisticsInterval, "35",
		setting.KeyKD100Customer, "CUST01",
		setting.KeyKD100Key, "abcdefghijkl",
	)
	r := newLogisticsRouter(&fakeScanner{}, &fakeTracker{}, settings)

	w, resp := performRequest(t, r, http.MethodGet, "/logistics/config", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, resp)
	assert.Equal(t, float64(35), data["query_interval_minutes"])
	assert.Equal(t, "CUST01", data["kd100_customer"])
	assert.Equal(t, "abcd****ijkl", data["kd100_key"])
	assert.Equal(t, true, data["kd100_configured"])

	t.Run("update keeps key when the mask is sent back", func(t *testing.T) {
		w, resp := performRequest(t, r, http.MethodPut, "/logistics/config", jsonBody(t, map[string]any{
			"query_interval_minutes": 60,
			"kd100_key":              "abcd****ijkl",
		}))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(60), dataMap(t, resp)["query_interval_minutes"])
		assert.Equal(t, "60", settings.values[setting.KeyLogisticsInterval])
		assert.Equal(t, "abcdefghijkl", settings.values[setting.KeyKD100Key])
	})

	t.Run("update replaces key", func(t *testing.T) {
		w, _ := performRequest(t, r, http.MethodPut, "/logistics/config", jsonBody(t, map[string]any{
			"kd100_customer": " CUST02 ",
			"kd100_key":      "newkey",
		}))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "CUST02", settings.values[setting.KeyKD100Customer])
		assert.Equal(t, "newkey", settings.values[setting.KeyKD100Key])
	})

	t.Run("interval must be positive", func(t *testing.T) {
		w, _ := performRequest(t, r, http.MethodPut, "/logistics/config", jsonBody(t, map[string]any{"query_interval_minutes": 0}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		failing := newMemSettings()
		failing.setErr = assert.AnError
		r := newLogisticsRouter(&fakeScanner{}, &fakeTracker{}, failing)
		w, _ := performRequest(t, r, http.MethodPut, "/logistics/config", jsonBody(t, map[string]any{"kd100_key": "k"}))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestLogisticsHandler_Query(t *testing.T) {
	raw := json.RawMessage(`{"message":"ok","state":"3","data":[{"time":"2024-03-01 10:00:00","context":"已签收"}]}`)
	configured := func() *memSettings {
		return newMemSettings(setting.KeyKD100Customer, "CUST01", setting.KeyKD100Key, "secret-key")
	}

	t.Run("returns raw and parsed result", func(t *testing.T) {
		k := &fakeTracker{resp: &logistics.QueryResponse{Message: "ok", Data: []logistics.Track{{Context: "已签收"}}, Raw: raw}}
		w, resp := performRequest(t, newLogisticsRouter(&fakeScanner{}, k, configured()), http.MethodGet,
			"/logistics/query/SF123?company_name="+url.QueryEscape("顺丰速运"), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "SF123", k.number)
		assert.Equal(t, "顺丰速运", k.carrier)
		assert.Equal(t, "CUST01", k.creds.Customer)

		data := dataMap(t, resp)
		assert.Equal(t, "SF123", data["tracking_number"])
		assert.Equal(t, "ok", data["raw_result"].(map[string]any)["message"])
		parsed := data["parsed_status"].(map[string]any)
		assert.Equal(t, true, parsed["is_signed"])
		assert.Equal(t, float64(3), parsed["state"])
		assert.Equal(t, float64(1), parsed["track_count"])
	})

	t.Run("rejected query still shows the body", func(t *testing.T) {
		rejected := json.RawMessage(`{"message":"查询无结果"}`)
		k := &fakeTracker{
			resp: &logistics.QueryResponse{Message: "查询无结果", Raw: rejected},
			err:  fmt.Errorf("%w: 查询无结果", logistics.ErrKD100Rejected),
		}
		w, resp := performRequest(t, newLogisticsRouter(&fakeScanner{}, k, configured()), http.MethodGet, "/logistics/query/SF404", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, dataMap(t, resp)["parsed_status"].(map[string]any)["is_signed"])
	})

	t.Run("upstream down", func(t *testing.T) {
		k := &fakeTracker{err: fmt.Errorf("%w: HTTP 502", logistics.ErrKD100Unavailable)}
		w, resp := performRequest(t, newLogisticsRouter(&fakeScanner{}, k, configured()), http.MethodGet, "/logistics/query/SF1", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, dto.ErrCodeUnavailable, resp.Error.Code)
	})

	t.Run("credentials missing", func(t *testing.T) {
		k := &fakeTracker{}
		w, resp := performRequest(t, newLogisticsRouter(&fakeScanner{}, k, newMemSettings(setting.KeyKD100Customer, "CUST01")),
			http.MethodGet, "/logistics/query/SF1", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.CodeKD100NotConfigured, resp.Error.Code)
		assert.Equal(t, "请先在系统设置中配置快递100的API密钥", resp.Error.Message)
		assert.Empty(t, k.number)
	})
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "*****", maskSecret("short"))
	assert.Equal(t, "1234**7890", maskSecret("1234567890"))
	require.Equal(t, 12, len(maskSecret("abcdefghijkl")))
}
