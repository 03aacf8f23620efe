// Package queue runs import and sync jobs from the durable job table.
//
// API handlers enqueue a job together with its task record; a Worker claims
// jobs one at a time, runs the importers, refreshes the SKU statistics and
// records the outcome on both rows.
package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/flowstart/douyin-web/internal/application/importer"
	"github.com/flowstart/douyin-web/internal/application/platformsync"
	"github.com/flowstart/douyin-web/internal/domain/importjob"
	"github.com/flowstart/douyin-web/internal/domain/shared"
	"github.com/flowstart/douyin-web/internal/infrastructure/sheet"
	"go.uber.org/zap"
)

// DefaultMaxTasks is the number of task records kept after pruning
const DefaultMaxTasks = 15

// Progress texts
const (
	progressImportOrders     = "正在导入订单..."
	progressImportAfterSales = "正在导入售后单..."
	progressSync             = "正在同步抖店数据..."
	progressRecalculate      = "正在重新计算统计..."
)

// FileStore keeps uploaded files until a worker imports them
type FileStore interface {
	// Put stores r under name
	Put(ctx context.Context, name string, r io.Reader) error

	// Fetch makes the named file available on the local filesystem.
	// release must be called once the file is no longer needed.
	Fetch(ctx context.Context, name string) (path string, release func(), err error)
}

// FileImporter imports parsed export files
type FileImporter interface {
	ImportOrders(ctx context.Context, r sheet.Reader) (*importer.Result, error)
	ImportAfterSales(ctx context.Context, r sheet.Reader) (*importer.Result, error)
}

// Syncer pulls orders and after-sales from the remote platform
type Syncer interface {
	Sync(ctx context.Context, req platformsync.Request) (*platformsync.Result, error)
}

// StatsRefresher recalculates the cached SKU statistics
type StatsRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// Recorder receives job and row metrics
type Recorder interface {
	RecordJob(ctx context.Context, jobType, status string, duration time.Duration)
	RecordRows(ctx context.Context, kind string, c importjob.Counters)
}

// Service owns the job lifecycle
type Service struct {
	jobs     importjob.JobRepository
	tasks    importjob.TaskRepository
	files    FileStore
	importer FileImporter
	stats    StatsRefresher
	syncer   Syncer
	recorder Recorder
	open     func(path string) (sheet.Reader, error)
	maxTasks int
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithSyncer enables douyin_sync jobs
func WithSyncer(s Syncer) Option {
	return func(svc *Service) { svc.syncer = s }
}

// WithRecorder reports metrics to r
func WithRecorder(r Recorder) Option {
	return func(svc *Service) { svc.recorder = r }
}

// WithMaxTasks sets how many task records survive pruning
func WithMaxTasks(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.maxTasks = n
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// NewService creates a Service
func NewService(
	jobs importjob.JobRepository,
	tasks importjob.TaskRepository,
	files FileStore,
	imp FileImporter,
	stats StatsRefresher,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		jobs:     jobs,
		tasks:    tasks,
		files:    files,
		importer: imp,
		stats:    stats,
		open:     sheet.Open,
		maxTasks: DefaultMaxTasks,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncEnabled reports whether douyin_sync jobs can run
func (s *Service) SyncEnabled() bool {
	return s.syncer != nil
}

// Enqueue creates a task record and its queued job
func (s *Service) Enqueue(ctx context.Context, jobType importjob.JobType, payload map[string]string, filename string) (*importjob.Job, error) {
	return s.enqueue(ctx, importjob.NewTaskID(string(jobType), s.now()), jobType, payload, filename)
}

func (s *Service) enqueue(ctx context.Context, taskID string, jobType importjob.JobType, payload map[string]string, filename string) (*importjob.Job, error) {
	job, err := importjob.NewJob(taskID, jobType, payload)
	if err != nil {
		return nil, err
	}
	if _, err := s.tasks.FindByTaskID(ctx, taskID); err == nil {
		return nil, shared.NewDomainError("TASK_EXISTS", fmt.Sprintf("Task %s already exists, retry in a second", taskID))
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	task := importjob.NewTask(taskID, jobType, filename)
	task.StartedAt = s.now()
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.updateTask(ctx, taskID, importjob.FailedPatch(err.Error(), s.now()))
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.logger.Info("Job enqueued",
		zap.String("task_id", taskID),
		zap.String("type", string(jobType)),
		zap.Int64("job_id", job.ID),
	)
	return job, nil
}

// Upload is one uploaded export file
type Upload struct {
	Filename string
	Content  io.Reader
}

// EnqueueUpload stores the uploaded files and enqueues an import job.
// orders and afterSales may be nil depending on jobType.
func (s *Service) EnqueueUpload(ctx context.Context, jobType importjob.JobType, orders, afterSales *Upload) (*importjob.Job, error) {
	payload := map[string]string{}
	switch jobType {
	case importjob.JobTypeOrders:
		if orders == nil {
			return nil, shared.NewDomainError("MISSING_FILE", "An orders file is required")
		}
	case importjob.JobTypeAfterSales:
		if afterSales == nil {
			return nil, shared.NewDomainError("MISSING_FILE", "An after-sales file is required")
		}
	case importjob.JobTypeAll:
		if orders == nil || afterSales == nil {
			return nil, shared.NewDomainError("MISSING_FILE", "Both an orders and an after-sales file are required")
		}
	default:
		return nil, shared.NewDomainError("INVALID_JOB_TYPE", fmt.Sprintf("Cannot upload files for %s jobs", jobType))
	}

	for _, u := range []*Upload{orders, afterSales} {
		if u == nil {
			continue
		}
		if err := sheet.Check(u.Filename); err != nil {
			return nil, shared.NewDomainError("UNSUPPORTED_FILE", fmt.Sprintf("%s: %v", u.Filename, err))
		}
	}

	taskID := importjob.NewTaskID(string(jobType), s.now())
	var names []string
	if orders != nil {
		name := storedName(taskID, "orders", orders.Filename)
		if err := s.files.Put(ctx, name, orders.Content); err != nil {
			return nil, fmt.Errorf("store orders file: %w", err)
		}
		payload[importjob.PayloadOrdersFile] = name
		names = append(names, filepath.Base(orders.Filename))
	}
	if afterSales != nil {
		name := storedName(taskID, "aftersales", afterSales.Filename)
		if err := s.files.Put(ctx, name, afterSales.Content); err != nil {
			return nil, fmt.Errorf("store after-sales file: %w", err)
		}
		payload[importjob.PayloadAfterSalesFile] = name
		names = append(names, filepath.Base(afterSales.Filename))
	}

	filename := names[0]
	if len(names) == 2 {
		filename = names[0] + ", " + names[1]
	}
	return s.enqueue(ctx, taskID, jobType, payload, filename)
}

// storedName is the storage name of an upload, e.g. "all_20240501_120000_orders_export.xlsx"
func storedName(taskID, kind, filename string) string {
	base := filepath.Base(filename)
	if strings.HasPrefix(taskID, kind+"_") {
		return taskID + "_" + base
	}
	return taskID + "_" + kind + "_" + base
}

// EnqueueSync enqueues a douyin_sync job for the given scope and pay-time range
func (s *Service) EnqueueSync(ctx context.Context, scope platformsync.Scope, start, end time.Time) (*importjob.Job, error) {
	if s.syncer == nil {
		return nil, shared.ErrUnavailable.WithMessage("抖店开放平台同步未启用")
	}
	if !scope.IsValid() {
		return nil, shared.NewDomainError("INVALID_SCOPE", fmt.Sprintf("Invalid sync scope: %s", scope))
	}
	if !end.After(start) {
		return nil, shared.NewDomainError("INVALID_TIME_RANGE", "End time must be after start time")
	}
	if end.Sub(start) > platformsync.MaxRange {
		return nil, shared.NewDomainError("INVALID_TIME_RANGE", "Time range cannot exceed 90 days")
	}
	payload := map[string]string{
		importjob.PayloadSyncScope: string(scope),
		importjob.PayloadStartTime: start.Format(time.RFC3339),
		importjob.PayloadEndTime:   end.Format(time.RFC3339),
	}
	taskID := importjob.NewTaskID("sync_"+string(scope), s.now())
	return s.enqueue(ctx, taskID, importjob.JobTypeDouyinSync, payload, "")
}

// Claim takes ownership of the oldest queued job. It returns nil without
// error when the queue is empty or another consumer won the claim.
func (s *Service) Claim(ctx context.Context) (*importjob.Job, error) {
	job, err := s.jobs.OldestQueued(ctx)
	if err != nil {
		return nil, fmt.Errorf("find queued job: %w", err)
	}
	if job == nil {
		return nil, nil
	}
	at := s.now()
	ok, err := s.jobs.TryClaim(ctx, job.ID, at)
	if err != nil {
		return nil, fmt.Errorf("claim job %d: %w", job.ID, err)
	}
	if !ok {
		s.logger.Debug("Job claimed by another worker", zap.Int64("job_id", job.ID))
		return nil, nil
	}
	job.Status = importjob.StatusProcessing
	job.PickedAt = &at
	job.UpdatedAt = at
	return job, nil
}

// Process runs a claimed job to completion. Statistics are refreshed after
// every successful import. Any error marks both the job and the task failed.
func (s *Service) Process(ctx context.Context, job *importjob.Job) error {
	started := s.now()
	log := s.logger.With(zap.String("task_id", job.TaskID), zap.String("type", string(job.Type)))
	log.Info("Processing job")

	err := s.run(ctx, job)
	status := importjob.StatusCompleted
	if err != nil {
		status = importjob.StatusFailed
		log.Error("Job failed", zap.Error(err))
		s.updateTask(ctx, job.TaskID, importjob.FailedPatch(err.Error(), s.now()))
	}
	if uerr := s.jobs.UpdateStatus(ctx, job.ID, status); uerr != nil {
		log.Error("Failed to update job status", zap.Error(uerr))
	}
	job.Status = status

	if s.recorder != nil {
		s.recorder.RecordJob(ctx, string(job.Type), string(status), s.now().Sub(started))
	}
	if perr := s.Prune(ctx); perr != nil {
		log.Warn("Failed to prune tasks", zap.Error(perr))
	}
	if err == nil {
		log.Info("Job completed", zap.Duration("duration", s.now().Sub(started)))
	}
	return err
}

func (s *Service) run(ctx context.Context, job *importjob.Job) error {
	switch job.Type {
	case importjob.JobTypeOrders, importjob.JobTypeAfterSales, importjob.JobTypeAll:
		if err := s.importFiles(ctx, job); err != nil {
			return err
		}
	case importjob.JobTypeDouyinSync:
		if err := s.sync(ctx, job); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}

	s.updateTask(ctx, job.TaskID, importjob.ProgressPatch(progressRecalculate))
	n, err := s.stats.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh statistics: %w", err)
	}
	s.updateTask(ctx, job.TaskID, importjob.CompletedPatch(n, s.now()))
	return nil
}

func (s *Service) importFiles(ctx context.Context, job *importjob.Job) error {
	if job.Type == importjob.JobTypeOrders || job.Type == importjob.JobTypeAll {
		name := job.Payload[importjob.PayloadOrdersFile]
		if name == "" {
			return errors.New("missing orders file")
		}
		s.updateTask(ctx, job.TaskID, importjob.ProcessingPatch(progressImportOrders))
		res, err := s.importFile(ctx, name, s.importer.ImportOrders)
		if res != nil {
			s.recordRows(ctx, "orders", res.Counters)
			s.updateTask(ctx, job.TaskID, importjob.TaskPatch{OrderStats: &res.Counters})
			s.logRowErrors(job.TaskID, res)
		}
		if err != nil {
			return fmt.Errorf("import orders: %w", err)
		}
	}

	if job.Type == importjob.JobTypeAfterSales || job.Type == importjob.JobTypeAll {
		name := job.Payload[importjob.PayloadAfterSalesFile]
		if name == "" {
			return errors.New("missing after-sales file")
		}
		s.updateTask(ctx, job.TaskID, importjob.ProcessingPatch(progressImportAfterSales))
		res, err := s.importFile(ctx, name, s.importer.ImportAfterSales)
		if res != nil {
			s.recordRows(ctx, "aftersales", res.Counters)
			s.updateTask(ctx, job.TaskID, importjob.TaskPatch{AfterSaleStats: &res.Counters})
			s.logRowErrors(job.TaskID, res)
		}
		if err != nil {
			return fmt.Errorf("import after-sales: %w", err)
		}
	}
	return nil
}

type importFunc func(ctx context.Context, r sheet.Reader) (*importer.Result, error)

func (s *Service) importFile(ctx context.Context, name string, fn importFunc) (*importer.Result, error) {
	path, release, err := s.files.Fetch(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer release()

	r, err := s.open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer r.Close()

	return fn(ctx, r)
}

func (s *Service) sync(ctx context.Context, job *importjob.Job) error {
	if s.syncer == nil {
		return errors.New("douyin sync is not configured")
	}
	req, err := syncRequestFromPayload(job.Payload)
	if err != nil {
		return err
	}
	s.updateTask(ctx, job.TaskID, importjob.ProcessingPatch(progressSync))

	res, err := s.syncer.Sync(ctx, req)
	if res != nil {
		s.recordRows(ctx, "orders", res.Orders)
		s.recordRows(ctx, "aftersales", res.AfterSales)
		s.updateTask(ctx, job.TaskID, importjob.TaskPatch{OrderStats: &res.Orders, AfterSaleStats: &res.AfterSales})
	}
	if err != nil {
		return fmt.Errorf("douyin sync: %w", err)
	}
	return nil
}

func syncRequestFromPayload(payload map[string]string) (platformsync.Request, error) {
	req := platformsync.Request{Scope: platformsync.Scope(payload[importjob.PayloadSyncScope])}
	if req.Scope == "" {
		req.Scope = platformsync.ScopeAll
	}
	if !req.Scope.IsValid() {
		return req, fmt.Errorf("invalid sync scope %q", req.Scope)
	}
	var err error
	if req.Start, err = time.Parse(time.RFC3339, payload[importjob.PayloadStartTime]); err != nil {
		return req, fmt.Errorf("invalid start time: %w", err)
	}
	if req.End, err = time.Parse(time.RFC3339, payload[importjob.PayloadEndTime]); err != nil {
		return req, fmt.Errorf("invalid end time: %w", err)
	}
	return req, nil
}

// Prune deletes finished task records beyond the most recent ones together
// with their jobs. Tasks still waiting or running are kept.
func (s *Service) Prune(ctx context.Context) error {
	stale, err := s.tasks.PruneKeep(ctx, s.maxTasks)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	if err := s.jobs.DeleteByTaskIDs(ctx, stale); err != nil {
		return err
	}
	s.logger.Debug("Pruned tasks", zap.Strings("task_ids", stale))
	return nil
}

// GetTaskStatus returns the task record of a task id
func (s *Service) GetTaskStatus(ctx context.Context, taskID string) (*importjob.Task, error) {
	return s.tasks.FindByTaskID(ctx, taskID)
}

// RecentTasks returns the retained task records, newest first
func (s *Service) RecentTasks(ctx context.Context) ([]*importjob.Task, error) {
	return s.tasks.Recent(ctx, s.maxTasks)
}

func (s *Service) updateTask(ctx context.Context, taskID string, patch importjob.TaskPatch) {
	if err := s.tasks.Update(ctx, taskID, patch); err != nil {
		s.logger.Warn("Failed to update task", zap.String("task_id", taskID), zap.Error(err))
	}
}

func (s *Service) recordRows(ctx context.Context, kind string, c importjob.Counters) {
	if s.recorder != nil {
		s.recorder.RecordRows(ctx, kind, c)
	}
}

func (s *Service) logRowErrors(taskID string, res *importer.Result) {
	if res.Errors == nil || res.Errors.Total() == 0 {
		return
	}
	s.logger.Warn("Rows rejected during import",
		zap.String("task_id", taskID),
		zap.Int("count", res.Errors.Total()),
		zap.Bool("truncated", res.Errors.Truncated()),
		zap.Array("rows", res.Errors),
	)
}
