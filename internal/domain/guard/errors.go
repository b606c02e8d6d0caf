package guard

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Precondition failures. Each one rejects a single mutation and is never
// fatal to the process.
var (
	ErrNotParticipating      = errors.New("user does not participate in the task")
	ErrAlreadyFinished       = errors.New("user has already finished the task")
	ErrDeadlinePassed        = errors.New("task deadline has passed")
	ErrPredecessorUnfinished = errors.New("predecessor task is not finished")

	ErrAlreadyJoined        = errors.New("user already participates in the task")
	ErrPredecessorNotJoined = errors.New("user does not participate in the predecessor task")

	ErrNotAMember          = errors.New("user is not a member of the task")
	ErrUserStillReliedUpon = errors.New("user participates in a task that depends on this task")

	ErrHasDependents = errors.New("task has dependent tasks")
)

// HasDependentsError rejects a deletion and carries the tasks that still name
// the target as their predecessor.
type HasDependentsError struct {
	Dependents []domain.Task
}

func (e *HasDependentsError) Error() string {
	return fmt.Sprintf("%s: %d dependent task(s)", ErrHasDependents, len(e.Dependents))
}

// Unwrap lets errors.Is match ErrHasDependents.
func (e *HasDependentsError) Unwrap() error { return ErrHasDependents }

// IsViolation reports whether err is one of the precondition failures above.
func IsViolation(err error) bool {
	for _, target := range []error{
		ErrNotParticipating, ErrAlreadyFinished, ErrDeadlinePassed, ErrPredecessorUnfinished,
		ErrAlreadyJoined, ErrPredecessorNotJoined,
		ErrNotAMember, ErrUserStillReliedUpon,
		ErrHasDependents,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
