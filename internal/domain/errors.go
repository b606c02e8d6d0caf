package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTaskType is returned for a task type outside the closed set.
	ErrInvalidTaskType = errors.New("invalid task type")

	// ErrInvalidPriority is returned for an unknown priority.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidPermission is returned for an unknown permission name.
	ErrInvalidPermission = errors.New("invalid permission")

	// ErrInvalidPlanStatus is returned when a time plan status is not valid.
	ErrInvalidPlanStatus = errors.New("invalid time plan status")
)
