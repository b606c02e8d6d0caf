package job

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/events"
)

// Status is the processing state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// TypePlanGeneration identifies jobs that generate a time plan.
const TypePlanGeneration = events.TypePlanGeneration

// Job is a unit of background work.
type Job interface {
	ID() uuid.UUID
	Type() string
	// Payload is the JSON document persisted with the job. It must carry
	// everything a Factory needs to rebuild the job after a restart.
	Payload() []byte
	Status() Status
	Execute(ctx context.Context) error
}

// Record is a job as stored, without its execution logic.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists jobs.
type Store interface {
	// SaveJob inserts the job with its current status.
	SaveJob(ctx context.Context, job Job) error

	// UpdateJobStatus moves the job to status. Returns store.ErrJobNotFound
	// for an unknown id.
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status Status, errorMsg string) error

	// GetPendingJobs returns every pending job, oldest first.
	GetPendingJobs(ctx context.Context) ([]Record, error)

	// GetProcessingJobs returns processing jobs. A non-zero olderThan limits
	// the result to jobs not updated within that duration.
	GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]Record, error)

	WithTx(tx *sql.Tx) Store
}

// Factory rebuilds executable jobs of one type from stored records.
type Factory interface {
	Rehydrate(rec Record) (Job, error)
}
