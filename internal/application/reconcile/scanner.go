// Package reconcile queries parcel status for shipped orders and marks
// delivered ones as signed.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowstart/douyin-web/internal/domain/importjob"
	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/domain/scan"
	"github.com/flowstart/douyin-web/internal/domain/setting"
	"github.com/flowstart/douyin-web/internal/domain/shared"
)

// DefaultBatchSize is the number of orders loaded per page
const DefaultBatchSize = 500

// Tracker queries one parcel. A nil error means the carrier answered; a
// parcel that is not yet delivered is a result with IsSigned false.
type Tracker interface {
	Track(ctx context.Context, creds setting.KD100Credentials, trackingNumber, carrier string) (*order.TrackingResult, error)
}

// StatsRefresher recalculates the cached SKU statistics
type StatsRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// Recorder receives scan metrics
type Recorder interface {
	RecordScan(ctx context.Context, p *scan.Progress, duration time.Duration)
}

// ErrNotConfigured is returned when the KD100 credentials are missing
var ErrNotConfigured = shared.NewDomainError("KD100_NOT_CONFIGURED", "请先在系统设置中配置快递100的API密钥")

// StartResult describes a started scan. TaskID is empty when no order is eligible.
type StartResult struct {
	TaskID          string `json:"task_id,omitempty"`
	Count           int    `json:"count"`
	IntervalMinutes int    `json:"interval_minutes"`
	Message         string `json:"message"`
}

// Scanner runs logistics reconciliation in the background, one scan at a time
type Scanner struct {
	orders          order.LogisticsRepository
	settings        setting.Repository
	tracker         Tracker
	stats           StatsRefresher
	registry        scan.Registry
	recorder        Recorder
	batchSize       int
	defaultInterval int
	now             func() time.Time
	logger          *zap.Logger

	mu      sync.Mutex
	running string
	wg      sync.WaitGroup
}

// Option configures a Scanner
type Option func(*Scanner)

// WithBatchSize sets the page size
func WithBatchSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithDefaultInterval sets the interval used when the setting is absent
func WithDefaultInterval(minutes int) Option {
	return func(s *Scanner) {
		if minutes > 0 {
			s.defaultInterval = minutes
		}
	}
}

// WithRecorder reports metrics to r
func WithRecorder(r Recorder) Option {
	return func(s *Scanner) { s.recorder = r }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// NewScanner creates a Scanner
func NewScanner(
	orders order.LogisticsRepository,
	settings setting.Repository,
	tracker Tracker,
	stats StatsRefresher,
	registry scan.Registry,
	logger *zap.Logger,
	opts ...Option,
) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scanner{
		orders:          orders,
		settings:        settings,
		tracker:         tracker,
		stats:           stats,
		registry:        registry,
		batchSize:       DefaultBatchSize,
		defaultInterval: setting.DefaultLogisticsInterval,
		now:             time.Now,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start counts the eligible orders and launches a background scan over at
// most limit of them (0 means all). It refuses while another scan runs.
func (s *Scanner) Start(ctx context.Context, limit int) (*StartResult, error) {
	if limit < 0 {
		return nil, shared.NewDomainError("INVALID_LIMIT", "limit must not be negative")
	}

	creds, err := setting.LoadKD100Credentials(ctx, s.settings)
	if err != nil {
		return nil, fmt.Errorf("load kd100 credentials: %w", err)
	}
	if !creds.IsComplete() {
		return nil, ErrNotConfigured
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != "" {
		return nil, shared.ErrConflict.WithMessage(fmt.Sprintf("物流检查任务 %s 正在运行", s.running))
	}

	interval, err := setting.LogisticsInterval(ctx, s.settings, s.defaultInterval)
	if err != nil {
		return nil, fmt.Errorf("load logistics interval: %w", err)
	}

	now := s.now()
	eligible, err := s.orders.CountEligible(ctx, threshold(now, interval))
	if err != nil {
		return nil, fmt.Errorf("count eligible orders: %w", err)
	}
	target := int(eligible)
	if limit > 0 && limit < target {
		target = limit
	}
	if target == 0 {
		return &StartResult{
			IntervalMinutes: interval,
			Message:         "没有需要检查的订单（已全部签收或查询间隔未到）",
		}, nil
	}

	taskID := importjob.NewTaskID(scan.TaskPrefix, now)
	progress := scan.NewProgress(taskID, target, interval, limit, now)
	if err := s.registry.Save(ctx, progress); err != nil {
		return nil, fmt.Errorf("save scan progress: %w", err)
	}

	s.running = taskID
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.finish()
		s.Run(context.WithoutCancel(ctx), progress, creds)
	}()

	s.logger.Info("logistics scan started",
		zap.String("task_id", taskID),
		zap.Int("target", target),
		zap.Int("interval_minutes", interval),
	)

	return &StartResult{
		TaskID:          taskID,
		Count:           target,
		IntervalMinutes: interval,
		Message:         fmt.Sprintf("已启动后台任务，正在检查 %d 个订单的物流状态", target),
	}, nil
}

func (s *Scanner) finish() {
	s.mu.Lock()
	s.running = ""
	s.mu.Unlock()
}

// Running returns the task id of the active scan, or ""
func (s *Scanner) Running() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until the background scan, if any, has finished
func (s *Scanner) Wait() {
	s.wg.Wait()
}

// Overview is the logistics coverage under the interval currently in force
type Overview struct {
	order.LogisticsStats
	QueryIntervalMinutes int `json:"query_interval_minutes"`
}

// Overview counts orders by logistics state. Pending orders are those a scan
// started now would check.
func (s *Scanner) Overview(ctx context.Context) (*Overview, error) {
	interval, err := setting.LogisticsInterval(ctx, s.settings, s.defaultInterval)
	if err != nil {
		return nil, fmt.Errorf("load logistics interval: %w", err)
	}
	stats, err := s.orders.Stats(ctx, threshold(s.now(), interval))
	if err != nil {
		return nil, fmt.Errorf("logistics stats: %w", err)
	}
	return &Overview{LogisticsStats: *stats, QueryIntervalMinutes: interval}, nil
}

// Progress returns the snapshot of a scan
func (s *Scanner) Progress(ctx context.Context, taskID string) (*scan.Progress, error) {
	return s.registry.Get(ctx, taskID)
}

// Run executes one scan to completion, publishing progress after every row.
// Orders are paged by ascending id and the eligibility threshold is
// recomputed for each page. p.Limit caps the number of checked orders.
func (s *Scanner) Run(ctx context.Context, p *scan.Progress, creds setting.KD100Credentials) {
	started := s.now()
	err := s.scan(ctx, p, creds)
	if err == nil {
		p.Progress = scan.ProgressRecalculate
		s.publish(ctx, p)

		var skus int
		skus, err = s.stats.Refresh(ctx)
		if err == nil {
			p.Complete(skus, s.now())
		}
	}
	if err != nil {
		p.Fail(err, s.now())
		s.logger.Error("logistics scan failed", zap.String("task_id", p.TaskID), zap.Error(err))
	} else {
		s.logger.Info("logistics scan completed",
			zap.String("task_id", p.TaskID),
			zap.Int("checked", p.Checked),
			zap.Int("signed", p.Signed),
			zap.Int("skipped", p.Skipped),
			zap.Int("failed", p.Failed),
		)
	}
	s.publish(ctx, p)

	if s.recorder != nil {
		s.recorder.RecordScan(ctx, p, s.now().Sub(started))
	}
}

func (s *Scanner) scan(ctx context.Context, p *scan.Progress, creds setting.KD100Credentials) error {
	var lastID int64
	for {
		if p.Limit > 0 && p.Checked >= p.Limit {
			return nil
		}
		size := s.batchSize
		if p.Limit > 0 {
			size = min(size, p.Limit-p.Checked)
		}

		cutoff := threshold(s.now(), p.IntervalMinutes)
		batch, err := s.orders.FindEligible(ctx, cutoff, lastID, size)
		if err != nil {
			return fmt.Errorf("load eligible orders after id %d: %w", lastID, err)
		}
		if len(batch) == 0 {
			return nil
		}

		for _, o := range batch {
			lastID = max(lastID, o.ID)
			s.checkOne(ctx, p, creds, o, cutoff)
			s.publish(ctx, p)
			if p.Limit > 0 && p.Checked >= p.Limit {
				return nil
			}
		}
	}
}

// checkOne queries and updates a single order. Errors are counted on p and
// leave the row unchanged.
func (s *Scanner) checkOne(ctx context.Context, p *scan.Progress, creds setting.KD100Credentials, o *order.Order, cutoff time.Time) {
	current, err := s.orders.FindByID(ctx, o.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			p.Skipped++
			return
		}
		p.Failed++
		s.logger.Warn("reload order failed", zap.String("order_id", o.OrderID), zap.Error(err))
		return
	}
	if !current.NeedsLogisticsCheck(cutoff) {
		p.Skipped++
		return
	}

	result, err := s.tracker.Track(ctx, creds, current.LogisticsCode, current.LogisticsCompany)
	if err != nil {
		p.Failed++
		s.logger.Warn("logistics query failed",
			zap.String("order_id", current.OrderID),
			zap.String("tracking_number", current.LogisticsCode),
			zap.Error(err),
		)
		return
	}

	if err := s.orders.ApplyLogistics(ctx, current.ID, result.Patch(s.now())); err != nil {
		p.Failed++
		s.logger.Warn("apply logistics failed", zap.String("order_id", current.OrderID), zap.Error(err))
		return
	}

	p.Checked++
	if result.IsSigned {
		p.Signed++
	}
}

func (s *Scanner) publish(ctx context.Context, p *scan.Progress) {
	if err := s.registry.Save(ctx, p); err != nil {
		s.logger.Warn("save scan progress failed", zap.String("task_id", p.TaskID), zap.Error(err))
	}
}

func threshold(now time.Time, intervalMinutes int) time.Time {
	return now.Add(-time.Duration(intervalMinutes) * time.Minute)
}
