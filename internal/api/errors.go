package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/domain/guard"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// clientErrors are sentinel errors whose own message is safe to show.
var clientErrors = []error{
	service.ErrPermissionDenied,
	service.ErrTypeImmutable,
	service.ErrInvalidPrev,
	service.ErrNotGroupTask,
	service.ErrGroupMismatch,
	service.ErrLastGroup,
	service.ErrPlanThrottled,
	service.ErrRootImmutable,
	service.ErrCannotDeleteSelf,
	service.ErrEmptySearch,
	guard.ErrNotParticipating,
	guard.ErrAlreadyFinished,
	guard.ErrDeadlinePassed,
	guard.ErrPredecessorUnfinished,
	guard.ErrAlreadyJoined,
	guard.ErrPredecessorNotJoined,
	guard.ErrNotAMember,
	guard.ErrUserStillReliedUpon,
	guard.ErrHasDependents,
	domain.ErrInvalidTaskType,
	domain.ErrInvalidPriority,
	domain.ErrInvalidPermission,
	domain.ErrInvalidEmail,
	domain.ErrEmptyEmail,
	domain.ErrPasswordTooShort,
	domain.ErrPasswordTooLong,
	domain.ErrEmptyPassword,
}

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrRevokedToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrPlanThrottled):
		return http.StatusTooManyRequests

	// A deadline cannot be fixed by retrying the same request.
	case errors.Is(err, guard.ErrDeadlinePassed):
		return http.StatusUnprocessableEntity

	// Conflict errors
	case guard.IsViolation(err),
		errors.Is(err, service.ErrLastGroup),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, service.ErrTypeImmutable),
		errors.Is(err, service.ErrInvalidPrev),
		errors.Is(err, service.ErrNotGroupTask),
		errors.Is(err, service.ErrGroupMismatch),
		errors.Is(err, service.ErrRootImmutable),
		errors.Is(err, service.ErrCannotDeleteSelf),
		errors.Is(err, service.ErrEmptySearch),
		errors.Is(err, store.ErrInvalidEntity),
		isDomainValidationError(err):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrRevokedToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrGroupNotFound):
		return "Group not found"
	case errors.Is(err, store.ErrPlanNotFound):
		return "Time plan not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	}

	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return capitalize(target.Error())
		}
	}
	if errors.Is(err, domain.ErrValidation) {
		return validationDetail(err)
	}

	return "An unexpected error occurred"
}

// HandleAPIError writes the error response for err. fallback replaces the
// generic message of unexpected errors when set.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	var depErr *guard.HasDependentsError
	if errors.As(err, &depErr) {
		opts = append(opts, shared.WithDetails(map[string]interface{}{
			"dependents": newTaskResponses(depErr.Dependents),
		}))
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns validator errors into a message naming the
// first failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid identifier"
	default:
		return "validation failed"
	}
}

func isDomainValidationError(err error) bool {
	if errors.Is(err, domain.ErrValidation) {
		return true
	}
	for _, target := range []error{
		domain.ErrInvalidTaskType, domain.ErrInvalidPriority, domain.ErrInvalidPermission,
		domain.ErrInvalidEmail, domain.ErrEmptyEmail, domain.ErrPasswordTooShort,
		domain.ErrPasswordTooLong, domain.ErrEmptyPassword,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// validationDetail returns the part of a wrapped domain.ErrValidation
// message after the sentinel, e.g. "cost must be at least 1".
func validationDetail(err error) string {
	msg := err.Error()
	prefix := domain.ErrValidation.Error() + ": "
	if i := strings.LastIndex(msg, prefix); i >= 0 {
		return capitalize(msg[i+len(prefix):])
	}
	return "Validation error"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
