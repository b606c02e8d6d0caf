package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// GroupStore persists groups and their memberships.
type GroupStore interface {
	// Create inserts a new group.
	Create(ctx context.Context, group *domain.Group) error

	// GetByID returns the group or ErrGroupNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)

	// Delete removes the group and its memberships.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByTask returns the task's groups with their members.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]domain.GroupMembers, error)

	// AddMember inserts userID into the group. Returns ErrMemberExists when
	// the user is already in it.
	AddMember(ctx context.Context, groupID, userID uuid.UUID) error

	// RemoveMember deletes userID from the group, or ErrNotFound.
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error

	// ListMembers returns the members of one group.
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.Member, error)

	// MarkFinished sets the finished flag of userID in the group.
	MarkFinished(ctx context.Context, groupID, userID uuid.UUID) error

	// Membership returns userID's standing on taskID across its groups, or
	// nil when the user is in none of them.
	Membership(ctx context.Context, taskID, userID uuid.UUID) (*domain.Membership, error)

	// CountReliantParticipations counts tasks with prev = taskID that userID
	// is a member of.
	CountReliantParticipations(ctx context.Context, taskID, userID uuid.UUID) (int, error)

	// WithTx returns a store that runs its queries inside tx.
	WithTx(tx *sql.Tx) GroupStore
}
