package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc"
)

// WorkerPool runs a fixed number of goroutines that drain a Queue and hand
// each job to a processing function.
//
// The pool does not own the queue. The Runner enqueues, the pool only reads,
// and a closed queue channel stops every worker just like Stop does. Workers
// are tracked with a conc.WaitGroup so Stop returns only after each one has
// left its loop.
type WorkerPool struct {
	queue       *Queue
	workerCount int
	process     func(ctx context.Context, job Job, workerID int)
	wg          conc.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *slog.Logger
}

// NewWorkerPool creates a pool. A non-positive workerCount becomes 1.
func NewWorkerPool(
	queue *Queue,
	workerCount int,
	process func(ctx context.Context, job Job, workerID int),
	logger *slog.Logger,
) *WorkerPool {
	if workerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", workerCount,
			"default_count", 1)
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		queue:       queue,
		workerCount: workerCount,
		process:     process,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches the workers. Call it once.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		// Worker ids only label log lines.
		id := i
		p.wg.Go(func() { p.worker(id) })
	}
}

// Stop cancels the workers and waits for in-flight jobs to return. Jobs
// still buffered in the queue are left there; their rows stay pending in the
// job store and the next Runner.Start recovers them.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *WorkerPool) worker(id int) {
	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case job, ok := <-p.queue.Channel():
			// Closed by Queue.Close during shutdown.
			if !ok {
				p.logger.Debug("job channel closed, stopping worker", "worker_id", id)
				return
			}
			p.run(job, id)
		}
	}
}

// run shields the worker from a panicking job. In-flight jobs are not
// cancelled by Stop.
func (p *WorkerPool) run(job Job, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"worker_id", workerID,
				"panic", fmt.Sprint(r))
		}
	}()
	// Jobs get their own context: a plan generation already under way is
	// allowed to finish and record its outcome during shutdown.
	p.process(context.Background(), job, workerID)
}
