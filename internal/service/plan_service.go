package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/redact"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// Throttler limits how often a key may proceed.
type Throttler interface {
	Allow(key string) bool
	Release(key string)
}

// PlanService requests and reads AI-generated time plans.
type PlanService interface {
	// RequestPlan records a pending plan for userID and schedules its
	// generation in the background.
	RequestPlan(ctx context.Context, userID uuid.UUID) (*domain.TimePlan, error)

	// GetLatestPlan returns the most recent plan of userID.
	GetLatestPlan(ctx context.Context, userID uuid.UUID) (*domain.TimePlan, error)
}

type planServiceImpl struct {
	plans    store.PlanStore
	emitter  events.Emitter
	throttle Throttler
	logger   *slog.Logger
}

var _ PlanService = (*planServiceImpl)(nil)

// NewPlanService creates a PlanService.
func NewPlanService(
	plans store.PlanStore,
	emitter events.Emitter,
	throttle Throttler,
	logger *slog.Logger,
) (PlanService, error) {
	if plans == nil {
		return nil, errors.New("plan store cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}
	if throttle == nil {
		return nil, errors.New("throttle cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &planServiceImpl{
		plans:    plans,
		emitter:  emitter,
		throttle: throttle,
		logger:   logger.With("component", "plan_service"),
	}, nil
}

func (s *planServiceImpl) RequestPlan(ctx context.Context, userID uuid.UUID) (*domain.TimePlan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	key := userID.String()
	if !s.throttle.Allow(key) {
		log.Debug("time plan request throttled", "user_id", userID)
		return nil, ErrPlanThrottled
	}

	plan, err := domain.NewTimePlan(userID)
	if err != nil {
		s.throttle.Release(key)
		return nil, fmt.Errorf("failed to create time plan: %w", err)
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		s.throttle.Release(key)
		return nil, fmt.Errorf("failed to save time plan: %w", err)
	}

	event, err := events.NewJobRequestEvent(events.TypePlanGeneration, events.PlanGenerationPayload{
		PlanID: plan.ID,
		UserID: userID,
	})
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		log.Error("failed to schedule time plan generation",
			"error", redact.Error(err),
			"plan_id", plan.ID)
		msg := "failed to schedule generation"
		if uerr := s.plans.UpdateStatus(ctx, plan.ID, domain.PlanStatusFailed, "", msg); uerr != nil {
			log.Error("failed to mark plan failed", "error", uerr, "plan_id", plan.ID)
		}
		s.throttle.Release(key)
		return nil, fmt.Errorf("failed to schedule time plan generation: %w", err)
	}

	log.Info("time plan requested", "plan_id", plan.ID, "user_id", userID)
	return plan, nil
}

func (s *planServiceImpl) GetLatestPlan(ctx context.Context, userID uuid.UUID) (*domain.TimePlan, error) {
	plan, err := s.plans.GetLatestByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest time plan: %w", err)
	}
	return plan, nil
}
