package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// TaskStore persists tasks and answers the dependency queries the
// consistency guard relies on.
type TaskStore interface {
	// Create inserts a new task. Returns domain validation errors for an
	// invalid task and ErrInvalidEntity when prev or publisher do not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID returns the task or ErrTaskNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetForUpdate returns the task and locks its row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update saves the editable fields of an existing task.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes the task with its groups and memberships.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListAll returns every task ordered by deadline.
	ListAll(ctx context.Context) ([]domain.Task, error)

	// ListByPublisher returns the tasks published by userID ordered by deadline.
	ListByPublisher(ctx context.Context, userID uuid.UUID) ([]domain.Task, error)

	// ListParticipated returns every task userID is a member of, with the
	// user's finished flag.
	ListParticipated(ctx context.Context, userID uuid.UUID) ([]domain.Participation, error)

	// ListDependents returns the tasks whose prev is taskID.
	ListDependents(ctx context.Context, taskID uuid.UUID) ([]domain.Task, error)

	// WithTx returns a store that runs its queries inside tx.
	WithTx(tx *sql.Tx) TaskStore
}
