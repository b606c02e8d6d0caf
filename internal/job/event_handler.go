package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/events"
)

// Submitter accepts jobs for execution.
type Submitter interface {
	Submit(ctx context.Context, job Job) error
}

// PlanEventHandler turns plan generation requests into submitted jobs.
type PlanEventHandler struct {
	factory *PlanJobFactory
	runner  Submitter
	logger  *slog.Logger
}

// NewPlanEventHandler returns a handler submitting jobs built by factory to
// runner.
func NewPlanEventHandler(factory *PlanJobFactory, runner Submitter, logger *slog.Logger) *PlanEventHandler {
	return &PlanEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "plan_event_handler"),
	}
}

// HandleEvent implements events.Handler. Events of other types are ignored.
func (h *PlanEventHandler) HandleEvent(ctx context.Context, event *events.JobRequestEvent) error {
	if event.Type != events.TypePlanGeneration {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload events.PlanGenerationPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	job, err := h.factory.CreateJob(payload.PlanID, payload.UserID)
	if err != nil {
		h.logger.Error("failed to create job",
			"error", err,
			"plan_id", payload.PlanID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create job: %w", err)
	}

	if err := h.runner.Submit(ctx, job); err != nil {
		h.logger.Error("failed to submit job",
			"error", err,
			"job_id", job.ID(),
			"plan_id", payload.PlanID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit job: %w", err)
	}

	h.logger.Info("job created and submitted",
		"job_id", job.ID(),
		"plan_id", payload.PlanID,
		"event_id", event.ID)
	return nil
}

var _ events.Handler = (*PlanEventHandler)(nil)
