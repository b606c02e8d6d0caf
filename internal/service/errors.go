package service

import "errors"

// Sentinel errors returned by the services. The API layer maps each of them
// to a status code; callers check them with errors.Is.
var (
	// ErrPermissionDenied indicates the acting user lacks the ownership or
	// permission the operation requires. Mapped to 403 Forbidden.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTypeImmutable is returned when an update tries to change a task's type.
	ErrTypeImmutable = errors.New("task type cannot be changed")

	// ErrInvalidPrev is returned when a predecessor does not exist, or when an
	// update tries to change the predecessor fixed at publication.
	ErrInvalidPrev = errors.New("invalid predecessor task")

	// ErrNotGroupTask is returned for group management on a task whose type
	// is not group.
	ErrNotGroupTask = errors.New("task is not a group task")

	// ErrGroupMismatch indicates the group does not belong to the task named
	// in the request.
	ErrGroupMismatch = errors.New("group does not belong to task")

	// ErrLastGroup rejects deleting the only group of a task.
	ErrLastGroup = errors.New("task must keep at least one group")

	// ErrRootImmutable rejects permission updates that add or remove root.
	// Root is only granted out of band, through the grant command.
	ErrRootImmutable = errors.New("cannot add or remove root permission")

	// ErrCannotDeleteSelf rejects a user deleting their own account.
	ErrCannotDeleteSelf = errors.New("cannot delete yourself")

	// ErrEmptySearch rejects a user search without a keyword.
	ErrEmptySearch = errors.New("search keyword cannot be empty")

	// ErrPlanThrottled is returned when a user requests time plans faster
	// than the throttle window allows. Mapped to 429 Too Many Requests.
	ErrPlanThrottled = errors.New("time plan requested too recently")
)
