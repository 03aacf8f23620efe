// Package stats computes per-SKU inventory risk statistics from orders and
// after-sales and maintains the cached snapshots.
package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/shared"
	"github.com/flowstart/douyin-web/internal/domain/skustats"
	"go.uber.org/zap"
)

// DefaultWindowDays is the look-back of a recalculation without explicit dates
const DefaultWindowDays = 90

// Recorder receives the outcome of every snapshot refresh
type Recorder interface {
	RecordStatsRun(ctx context.Context, skus int, duration time.Duration, err error)
}

// Engine unions the aggregate queries into per-SKU snapshots
type Engine struct {
	source     skustats.SourceQuery
	repo       skustats.Repository
	policy     skustats.Policy
	windowDays int
	location   *time.Location
	now        func() time.Time
	recorder   Recorder
	logger     *zap.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithPolicy overrides the return-rate policy
func WithPolicy(p skustats.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithWindowDays overrides the default look-back
func WithWindowDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.windowDays = days
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone calendar dates are interpreted in
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithRecorder reports refresh runs to r
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine creates an Engine
func NewEngine(source skustats.SourceQuery, repo skustats.Repository, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		source:     source,
		repo:       repo,
		policy:     skustats.DefaultPolicy(),
		windowDays: DefaultWindowDays,
		location:   time.Local,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Window builds the payment-time window for the given calendar dates. A nil
// start means the default look-back; end covers the whole end day.
func (e *Engine) Window(startDate, endDate *time.Time) skustats.Window {
	var w skustats.Window
	if startDate != nil {
		w.Start = startOfDay(*startDate, e.location)
	} else {
		w.Start = startOfDay(e.now(), e.location).AddDate(0, 0, -e.windowDays)
	}
	if endDate != nil {
		end := startOfDay(*endDate, e.location).AddDate(0, 0, 1).Add(-time.Nanosecond)
		w.End = &end
	}
	return w
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Calculate computes fresh snapshots for every SKU active in the window
func (e *Engine) Calculate(ctx context.Context, w skustats.Window) ([]*skustats.SkuStats, error) {
	counts, err := e.source.OrderCounts(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("order counts: %w", err)
	}
	pending, err := e.source.AfterSalePending(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("after-sale pending: %w", err)
	}
	returns, err := e.source.SignedReturns(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("signed returns: %w", err)
	}
	viaSales, err := e.source.SignedViaAfterSales(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("signed via after-sales: %w", err)
	}
	overlap, err := e.source.SignedOverlap(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("signed overlap: %w", err)
	}
	candidates, err := e.source.QualityCandidates(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("quality candidates: %w", err)
	}
	quality := qualityCounts(candidates)

	byCode := make(map[string]skustats.OrderCounts, len(counts))
	codes := make(map[string]struct{})
	for _, c := range counts {
		byCode[c.SkuCode] = c
		codes[c.SkuCode] = struct{}{}
	}
	for _, m := range []map[string]int64{pending, returns, viaSales, quality} {
		for code := range m {
			codes[code] = struct{}{}
		}
	}

	out := make([]*skustats.SkuStats, 0, len(codes))
	for code := range codes {
		if code == "" {
			continue
		}
		c := byCode[code]
		signed := skustats.SignedUnion(c.SignedViaLines, viaSales[code], overlap[code])
		s := &skustats.SkuStats{
			SkuID:                 code,
			SkuCode:               code,
			SkuName:               c.SkuName,
			ProductName:           c.ProductName,
			PendingShipCount:      c.PendingShip,
			AfterSalePendingCount: pending[code],
			SignedCount:           signed,
			SignedReturnCount:     returns[code],
			EstimatedReturnRate:   e.policy.ReturnRate(signed, returns[code]),
			InTransitCount:        c.InTransit,
			QualityReturnCount:    quality[code],
			QualityReturnRate:     skustats.QualityRate(signed, quality[code]),
		}
		s.Recompute()
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkuCode < out[j].SkuCode })
	return out, nil
}

// qualityCounts counts, per SKU, the distinct orders with a quality return reason
func qualityCounts(candidates []skustats.QualityCandidate) map[string]int64 {
	seen := make(map[[2]string]struct{})
	out := make(map[string]int64)
	for _, c := range candidates {
		if !skustats.IsQualityReturnReason(c.ReasonText) {
			continue
		}
		k := [2]string{c.SkuCode, c.OrderID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out[c.SkuCode]++
	}
	return out
}

// SaveSkuStats stamps fresh snapshots and merges them into the cache. The
// repository keeps a manually set rate and recomputes the estimate and gap
// with it.
func (e *Engine) SaveSkuStats(ctx context.Context, fresh []*skustats.SkuStats) (int, error) {
	if len(fresh) == 0 {
		return 0, nil
	}
	at := e.now()
	for _, s := range fresh {
		s.Stamp(at)
	}
	if err := e.repo.SaveAll(ctx, fresh); err != nil {
		return 0, fmt.Errorf("save snapshots: %w", err)
	}
	return len(fresh), nil
}

// Refresh recalculates the default window and saves the result
func (e *Engine) Refresh(ctx context.Context) (int, error) {
	return e.RefreshWindow(ctx, e.Window(nil, nil))
}

// RefreshWindow recalculates w and saves the result
func (e *Engine) RefreshWindow(ctx context.Context, w skustats.Window) (n int, err error) {
	started := e.now()
	defer func() {
		if e.recorder != nil {
			e.recorder.RecordStatsRun(ctx, n, e.now().Sub(started), err)
		}
	}()

	fresh, err := e.Calculate(ctx, w)
	if err != nil {
		return 0, err
	}
	n, err = e.SaveSkuStats(ctx, fresh)
	if err != nil {
		return 0, err
	}
	e.logger.Info("SKU statistics refreshed",
		zap.Int("sku_count", n),
		zap.Time("window_start", w.Start),
		zap.Duration("duration", e.now().Sub(started)),
	)
	return n, nil
}

// UpdateReturnRate sets a manual return rate for one SKU
func (e *Engine) UpdateReturnRate(ctx context.Context, skuCode string, rate float64) (*skustats.SkuStats, error) {
	if rate < 0 || rate > 1 {
		return nil, shared.NewDomainError("INVALID_RETURN_RATE", "Return rate must be between 0 and 1")
	}
	s, err := e.repo.SetManualRate(ctx, skuCode, rate, e.now())
	if err != nil {
		return nil, err
	}
	e.logger.Info("Return rate set manually", zap.String("sku_code", skuCode), zap.Float64("rate", rate))
	return s, nil
}

// ListQuery selects snapshots. A date filter switches to a realtime calculation.
type ListQuery struct {
	skustats.ListFilter
	StartDate *time.Time
	EndDate   *time.Time
}

// ListResult is a page of snapshots
type ListResult struct {
	Total      int64
	Items      []*skustats.SkuStats
	IsRealtime bool
}

// List returns cached snapshots, or realtime ones when a date filter is set
func (e *Engine) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	if q.StartDate == nil && q.EndDate == nil {
		res, err := e.repo.List(ctx, q.ListFilter)
		if err != nil {
			return nil, err
		}
		return &ListResult{Total: res.Total, Items: res.Items}, nil
	}

	fresh, err := e.Calculate(ctx, e.Window(q.StartDate, q.EndDate))
	if err != nil {
		return nil, err
	}
	if kw := strings.ToLower(q.Keyword); kw != "" {
		filtered := fresh[:0]
		for _, s := range fresh {
			if strings.Contains(strings.ToLower(s.SkuCode), kw) {
				filtered = append(filtered, s)
			}
		}
		fresh = filtered
	}
	sortSnapshots(fresh, q.SortBy, q.SortOrder != "asc")
	return &ListResult{Total: int64(len(fresh)), Items: paginate(fresh, q.ListFilter), IsRealtime: true}, nil
}

func paginate(items []*skustats.SkuStats, f skustats.ListFilter) []*skustats.SkuStats {
	if f.TopN > 0 {
		return items[:min(f.TopN, len(items))]
	}
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []*skustats.SkuStats{}
	}
	return items[start:min(start+size, len(items))]
}

// sortKey returns the numeric value of a sortable column
func sortKey(s *skustats.SkuStats, field string) float64 {
	switch field {
	case "aftersale_pending_count":
		return float64(s.AfterSalePendingCount)
	case "signed_count":
		return float64(s.SignedCount)
	case "signed_return_count":
		return float64(s.SignedReturnCount)
	case "estimated_return_rate":
		return s.EstimatedReturnRate
	case "in_transit_count":
		return float64(s.InTransitCount)
	case "in_transit_return_estimate":
		return float64(s.InTransitReturnEstimate)
	case "stock_gap":
		return float64(s.StockGap)
	case "quality_return_count":
		return float64(s.QualityReturnCount)
	case "quality_return_rate":
		return s.QualityReturnRate
	}
	return float64(s.PendingShipCount)
}

func sortSnapshots(items []*skustats.SkuStats, field string, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if field == "sku_code" {
			if desc {
				return items[i].SkuCode > items[j].SkuCode
			}
			return items[i].SkuCode < items[j].SkuCode
		}
		a, b := sortKey(items[i], field), sortKey(items[j], field)
		if desc {
			return a > b
		}
		return a < b
	})
}

// Provinces returns per-province return rates for orders paid between the dates
func (e *Engine) Provinces(ctx context.Context, startDate, endDate *time.Time, skuCode string) ([]skustats.ProvinceReturn, error) {
	return e.source.ProvinceReturns(ctx, e.Window(startDate, endDate), skuCode)
}

// Summary returns the dashboard overview
func (e *Engine) Summary(ctx context.Context) (*skustats.Summary, error) {
	return e.source.Summary(ctx)
}
