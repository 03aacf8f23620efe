package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WorkerConfig holds configuration for the queue worker
type WorkerConfig struct {
	PollInterval time.Duration
	ErrorBackoff time.Duration
}

// DefaultWorkerConfig returns default configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: time.Second,
		ErrorBackoff: 5 * time.Second,
	}
}

// Worker consumes the job queue in the background, one job at a time
type Worker struct {
	service *Service
	config  WorkerConfig
	logger  *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates a new queue worker
func NewWorker(service *Service, config WorkerConfig, logger *zap.Logger) *Worker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultWorkerConfig().PollInterval
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = DefaultWorkerConfig().ErrorBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{service: service, config: config, logger: logger}
}

// Start starts the background loop
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info("import worker started", zap.Duration("poll_interval", w.config.PollInterval))
	return nil
}

// Stop cancels the loop and waits for the current job to finish
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("import worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		wait := w.RunOnce(ctx)
		if wait == 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunOnce claims and processes at most one job and returns how long the loop
// should sleep before the next attempt.
func (w *Worker) RunOnce(ctx context.Context) time.Duration {
	job, err := w.service.Claim(ctx)
	if err != nil {
		w.logger.Error("failed to claim job", zap.Error(err))
		return w.config.ErrorBackoff
	}
	if job == nil {
		return w.config.PollInterval
	}

	// A claimed job runs to the end even when the worker is stopping.
	// Process records failures on the task itself.
	_ = w.service.Process(context.WithoutCancel(ctx), job)
	return 0
}
