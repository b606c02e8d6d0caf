package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/generation"
	"github.com/phrazzld/taskflow-api/internal/redact"
)

// NoOpenTasksMessage is stored as the plan content when the user has nothing
// left to schedule.
const NoOpenTasksMessage = "You have no unfinished tasks. Enjoy the free time!"

var (
	ErrNilPlanStore   = errors.New("plan store cannot be nil")
	ErrNilTaskSource  = errors.New("task source cannot be nil")
	ErrNilGenerator   = errors.New("generator cannot be nil")
	ErrNilLogger      = errors.New("logger cannot be nil")
	ErrEmptyPlanID    = errors.New("plan ID cannot be empty")
	ErrEmptyUserID    = errors.New("user ID cannot be empty")
	ErrInvalidPayload = errors.New("invalid job payload")
)

// PlanStore is the part of the plan store the job writes to.
type PlanStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PlanStatus, content, errorMessage string) error
}

// TaskSource returns a user's participations in scheduling order.
type TaskSource interface {
	ListParticipated(ctx context.Context, userID uuid.UUID) ([]domain.Participation, error)
}

// PlanGenerationJob fills in a pending time plan.
type PlanGenerationJob struct {
	id        uuid.UUID
	planID    uuid.UUID
	userID    uuid.UUID
	plans     PlanStore
	tasks     TaskSource
	generator generation.Generator
	now       func() time.Time
	logger    *slog.Logger
	status    Status
}

// ID returns the job's unique identifier.
func (j *PlanGenerationJob) ID() uuid.UUID { return j.id }

// Type returns TypePlanGeneration.
func (j *PlanGenerationJob) Type() string { return TypePlanGeneration }

// PlanID returns the plan the job fills in.
func (j *PlanGenerationJob) PlanID() uuid.UUID { return j.planID }

// Status returns the in-memory status of the job.
func (j *PlanGenerationJob) Status() Status { return j.status }

// Payload returns the JSON payload used to rebuild the job.
func (j *PlanGenerationJob) Payload() []byte {
	data, err := json.Marshal(events.PlanGenerationPayload{PlanID: j.planID, UserID: j.userID})
	if err != nil {
		j.logger.Error("failed to marshal job payload", "error", err)
		return []byte("{}")
	}
	return data
}

// Execute generates the plan and stores the result. Plan failures are
// recorded on the plan before the error is returned.
func (j *PlanGenerationJob) Execute(ctx context.Context) error {
	j.status = StatusProcessing
	j.logger.Info("starting plan generation")

	if err := ctx.Err(); err != nil {
		return j.fail(ctx, fmt.Errorf("job cancelled by context: %w", err))
	}

	if err := j.plans.UpdateStatus(ctx, j.planID, domain.PlanStatusProcessing, "", ""); err != nil {
		j.status = StatusFailed
		j.logger.Error("failed to mark plan processing", "error", err)
		return fmt.Errorf("failed to mark plan processing: %w", err)
	}

	participations, err := j.tasks.ListParticipated(ctx, j.userID)
	if err != nil {
		return j.fail(ctx, fmt.Errorf("failed to load participations: %w", err))
	}

	now := j.now()
	open := OpenTasks(participations, now)
	j.logger.Info("loaded open tasks", "participations", len(participations), "open", len(open))

	content := NoOpenTasksMessage
	if len(open) > 0 {
		content, err = j.generator.GeneratePlan(ctx, open, now)
		if err != nil {
			j.logger.Warn("generator returned an error", "permanent", generation.IsPermanent(err))
			return j.fail(ctx, fmt.Errorf("failed to generate plan: %w", err))
		}
	}

	if err := j.plans.UpdateStatus(ctx, j.planID, domain.PlanStatusCompleted, content, ""); err != nil {
		j.status = StatusFailed
		j.logger.Error("failed to store generated plan", "error", err)
		return fmt.Errorf("failed to store generated plan: %w", err)
	}

	j.status = StatusCompleted
	j.logger.Info("plan generation completed", "open_tasks", len(open))
	return nil
}

func (j *PlanGenerationJob) fail(ctx context.Context, cause error) error {
	j.status = StatusFailed
	j.logger.Error("plan generation failed", "error", cause)

	if err := j.plans.UpdateStatus(ctx, j.planID, domain.PlanStatusFailed, "", redact.Error(cause)); err != nil {
		j.logger.Error("failed to mark plan failed", "error", err)
	}
	return cause
}

// OpenTasks keeps the unfinished, unexpired tasks of participations in their
// given order.
func OpenTasks(participations []domain.Participation, now time.Time) []domain.Task {
	open := make([]domain.Task, 0, len(participations))
	for _, p := range participations {
		if p.Finished || p.Task.ExpiredAt(now) {
			continue
		}
		open = append(open, p.Task)
	}
	return open
}
