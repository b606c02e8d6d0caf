package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// UserStore persists users and their permissions.
type UserStore interface {
	// Create hashes the user's plaintext password and inserts the user.
	// Returns ErrEmailExists for a taken email.
	Create(ctx context.Context, user *domain.User) error

	// GetByID returns the user with permissions, or ErrUserNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail returns the user with permissions, or ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// SetPermissions replaces the user's permission set.
	SetPermissions(ctx context.Context, id uuid.UUID, perms domain.Permissions) error

	// List returns every user with permissions, oldest first.
	List(ctx context.Context) ([]domain.User, error)

	// Search returns at most limit users whose email contains keyword,
	// ignoring case. Permissions are not loaded.
	Search(ctx context.Context, keyword string, limit int) ([]domain.User, error)

	// Delete removes the user together with everything that cascades from
	// it. Returns ErrUserNotFound when no row was deleted.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a store that runs its queries inside tx.
	WithTx(tx *sql.Tx) UserStore
}
