// Package guard holds the dependency-consistency predicates consulted before
// finishing a task, changing group membership or deleting a task.
//
// Every predicate is read-then-decide: it queries current state through State
// and returns nil or a precondition error. Callers run the predicate and the
// mutation it protects inside one transaction so concurrent requests cannot
// both pass the check.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// State answers the point queries the predicates need.
type State interface {
	// Membership returns the user's standing on the task, or nil when the
	// user is in none of the task's groups.
	Membership(ctx context.Context, taskID, userID uuid.UUID) (*domain.Membership, error)

	// Dependents returns the tasks whose prev is taskID.
	Dependents(ctx context.Context, taskID uuid.UUID) ([]domain.Task, error)

	// CountReliantParticipations counts the tasks with prev = taskID in which
	// userID participates.
	CountReliantParticipations(ctx context.Context, taskID, userID uuid.UUID) (int, error)
}

// CheckFinish decides whether userID may mark task finished at now.
func CheckFinish(ctx context.Context, st State, userID uuid.UUID, task *domain.Task, now time.Time) error {
	m, err := st.Membership(ctx, task.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to load membership: %w", err)
	}
	if m == nil {
		return ErrNotParticipating
	}
	if m.Finished {
		return ErrAlreadyFinished
	}
	if task.ExpiredAt(now) {
		return ErrDeadlinePassed
	}

	if task.Prev == nil {
		return nil
	}
	pm, err := st.Membership(ctx, *task.Prev, userID)
	if err != nil {
		return fmt.Errorf("failed to load predecessor membership: %w", err)
	}
	if pm == nil || !pm.Finished {
		return ErrPredecessorUnfinished
	}
	return nil
}

// CheckAddMember decides whether userID may join task.
func CheckAddMember(ctx context.Context, st State, userID uuid.UUID, task *domain.Task) error {
	m, err := st.Membership(ctx, task.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to load membership: %w", err)
	}
	if m != nil {
		return ErrAlreadyJoined
	}

	if task.Prev == nil {
		return nil
	}
	pm, err := st.Membership(ctx, *task.Prev, userID)
	if err != nil {
		return fmt.Errorf("failed to load predecessor membership: %w", err)
	}
	if pm == nil {
		return ErrPredecessorNotJoined
	}
	return nil
}

// CheckRemoveMember decides whether userID may leave task.
func CheckRemoveMember(ctx context.Context, st State, userID uuid.UUID, task *domain.Task) error {
	m, err := st.Membership(ctx, task.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to load membership: %w", err)
	}
	if m == nil {
		return ErrNotAMember
	}

	n, err := st.CountReliantParticipations(ctx, task.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to count reliant participations: %w", err)
	}
	if n > 0 {
		return ErrUserStillReliedUpon
	}
	return nil
}

// CheckDelete decides whether task may be deleted. When other tasks still
// depend on it the returned error is a *HasDependentsError listing them.
func CheckDelete(ctx context.Context, st State, task *domain.Task) error {
	deps, err := st.Dependents(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("failed to load dependents: %w", err)
	}
	if len(deps) > 0 {
		return &HasDependentsError{Dependents: deps}
	}
	return nil
}
