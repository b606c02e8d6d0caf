package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// PlanStore persists generated time plans.
type PlanStore interface {
	Create(ctx context.Context, plan *domain.TimePlan) error

	// GetByID returns the plan or ErrPlanNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TimePlan, error)

	// GetLatestByUser returns the most recently created plan of userID, or
	// ErrPlanNotFound.
	GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.TimePlan, error)

	// UpdateStatus moves the plan to status. Content is stored for completed
	// plans and errorMessage for failed ones.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PlanStatus, content, errorMessage string) error

	WithTx(tx *sql.Tx) PlanStore
}
