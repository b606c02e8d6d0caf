package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"
)

// RunnerConfig holds configuration for the job runner.
type RunnerConfig struct {
	// WorkerCount determines how many jobs run concurrently.
	WorkerCount int

	// QueueSize bounds the in-memory queue.
	QueueSize int

	// StuckJobAge is how long a job may stay processing before the monitor
	// resets it to pending.
	StuckJobAge time.Duration

	// StuckJobCheckInterval defaults to 5 minutes when zero.
	StuckJobCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:           2,
		QueueSize:             100,
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}
}

// Runner persists submitted jobs and executes them on a worker pool.
type Runner struct {
	store      Store
	registry   *Registry
	queue      *Queue
	pool       *WorkerPool
	config     RunnerConfig
	logger     *slog.Logger
	monitorWG  conc.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	errHandler func(job Job, err error)
}

// NewRunner creates a runner. Jobs found in the store at Start are rebuilt
// through registry.
func NewRunner(store Store, registry *Registry, config RunnerConfig, logger *slog.Logger) *Runner {
	if config.StuckJobCheckInterval == 0 {
		config.StuckJobCheckInterval = 5 * time.Minute
	}
	logger = logger.With("component", "job_runner")

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		store:    store,
		registry: registry,
		queue:    NewQueue(config.QueueSize, logger),
		config:   config,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		errHandler: func(job Job, err error) {
			logger.Error("job execution failed",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"error", err)
		},
	}
	r.pool = NewWorkerPool(r.queue, config.WorkerCount, r.processJob, logger)
	return r
}

// SetErrorHandler replaces the handler called after a job fails.
func (r *Runner) SetErrorHandler(handler func(job Job, err error)) {
	r.errHandler = handler
}

// Submit persists the job and queues it.
func (r *Runner) Submit(ctx context.Context, job Job) error {
	if err := r.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	if err := r.queue.Enqueue(job); err != nil {
		return fmt.Errorf("failed to queue job: %w", err)
	}
	return nil
}

// Start recovers unfinished jobs, then starts the workers and the stuck job
// monitor.
func (r *Runner) Start() error {
	if err := r.Recover(context.Background()); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	r.pool.Start()
	r.monitorWG.Go(r.stuckJobMonitor)
	return nil
}

// Stop shuts the runner down and waits for running jobs. Jobs still queued
// stay pending in the store and are recovered on the next Start.
func (r *Runner) Stop() {
	r.cancel()
	r.monitorWG.Wait()
	r.pool.Stop()
	r.queue.Close()
}

// Recover requeues pending jobs and resets jobs left processing by an
// earlier run.
func (r *Runner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	processing, err := r.store.GetProcessingJobs(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec)
	}
	for _, rec := range processing {
		if err := r.store.UpdateJobStatus(ctx, rec.ID, StatusPending, "reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing job status",
				"job_id", rec.ID,
				"job_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}

	return nil
}

// requeue rebuilds rec and puts it back on the queue. Records of unknown
// type are marked failed so they stop being recovered.
func (r *Runner) requeue(ctx context.Context, rec Record) {
	job, err := r.registry.Rehydrate(rec)
	if err != nil {
		r.logger.Error("failed to rehydrate job",
			"job_id", rec.ID,
			"job_type", rec.Type,
			"error", err)
		if updateErr := r.store.UpdateJobStatus(ctx, rec.ID, StatusFailed, err.Error()); updateErr != nil {
			r.logger.Error("failed to mark unrecoverable job as failed",
				"job_id", rec.ID,
				"error", updateErr)
		}
		return
	}

	if err := r.queue.Enqueue(job); err != nil {
		r.logger.Error("failed to requeue job",
			"job_id", rec.ID,
			"job_type", rec.Type,
			"error", err)
	}
}

func (r *Runner) processJob(ctx context.Context, job Job, workerID int) {
	log := r.logger.With(
		"job_id", job.ID(),
		"job_type", job.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateJobStatus(ctx, job.ID(), StatusProcessing, ""); err != nil {
		log.Error("failed to update job status to processing", "error", err)
		return
	}

	log.Info("processing job")
	start := time.Now()

	if err := job.Execute(ctx); err != nil {
		log.Error("job execution failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		if updateErr := r.store.UpdateJobStatus(ctx, job.ID(), StatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to update job status to failed", "error", updateErr)
		}
		r.errHandler(job, err)
		return
	}

	log.Info("job completed successfully", "duration_ms", time.Since(start).Milliseconds())
	if err := r.store.UpdateJobStatus(ctx, job.ID(), StatusCompleted, ""); err != nil {
		log.Error("failed to update job status to completed", "error", err)
	}
}

func (r *Runner) stuckJobMonitor() {
	ticker := time.NewTicker(r.config.StuckJobCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.resetStuckJobs(context.Background())
		}
	}
}

func (r *Runner) resetStuckJobs(ctx context.Context) {
	stuck, err := r.store.GetProcessingJobs(ctx, r.config.StuckJobAge)
	if err != nil {
		r.logger.Error("failed to check for stuck jobs", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	r.logger.Info("found stuck jobs", "count", len(stuck))
	for _, rec := range stuck {
		if err := r.store.UpdateJobStatus(ctx, rec.ID, StatusPending,
			"reset after being stuck in processing state"); err != nil {
			r.logger.Error("failed to reset stuck job status",
				"job_id", rec.ID,
				"job_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}
}
