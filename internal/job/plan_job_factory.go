package job

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/generation"
)

// PlanJobFactory creates plan generation jobs and rebuilds them from
// stored records.
type PlanJobFactory struct {
	plans     PlanStore
	tasks     TaskSource
	generator generation.Generator
	now       func() time.Time
	logger    *slog.Logger
}

// NewPlanJobFactory validates its dependencies and returns a factory.
func NewPlanJobFactory(
	plans PlanStore,
	tasks TaskSource,
	generator generation.Generator,
	logger *slog.Logger,
) (*PlanJobFactory, error) {
	if plans == nil {
		return nil, ErrNilPlanStore
	}
	if tasks == nil {
		return nil, ErrNilTaskSource
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &PlanJobFactory{
		plans:     plans,
		tasks:     tasks,
		generator: generator,
		now:       time.Now,
		logger:    logger.With("component", "plan_job_factory"),
	}, nil
}

// WithClock returns a copy of the factory whose jobs read time from now.
func (f *PlanJobFactory) WithClock(now func() time.Time) *PlanJobFactory {
	clone := *f
	clone.now = now
	return &clone
}

// CreateJob returns a new pending job for planID owned by userID.
func (f *PlanJobFactory) CreateJob(planID, userID uuid.UUID) (*PlanGenerationJob, error) {
	return f.build(uuid.New(), planID, userID)
}

// Rehydrate implements Factory.
func (f *PlanJobFactory) Rehydrate(rec Record) (Job, error) {
	var payload events.PlanGenerationPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return f.build(rec.ID, payload.PlanID, payload.UserID)
}

func (f *PlanJobFactory) build(id, planID, userID uuid.UUID) (*PlanGenerationJob, error) {
	if planID == uuid.Nil {
		return nil, ErrEmptyPlanID
	}
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}

	return &PlanGenerationJob{
		id:        id,
		planID:    planID,
		userID:    userID,
		plans:     f.plans,
		tasks:     f.tasks,
		generator: f.generator,
		now:       f.now,
		logger: f.logger.With(
			"job_id", id,
			"job_type", TypePlanGeneration,
			"plan_id", planID,
		),
		status: StatusPending,
	}, nil
}

var _ Factory = (*PlanJobFactory)(nil)
