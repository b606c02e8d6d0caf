package api

import (
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// UserHandler serves the caller's profile, user lookup and administration.
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newUserResponse(user))
}

// SetPermissions handles PUT /users/{id}/permissions.
func (h *UserHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ids, ok := requirePathUUIDs(w, r, "id")
	if !ok {
		return
	}

	var req SetPermissionsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.SetPermissions(r.Context(), actorID, ids[0], domain.Permissions(req.Permissions))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update permissions")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newUserResponse(user))
}

// ListUsers handles GET /users. With a search query parameter it returns
// email matches for any caller; without one it lists every user for a
// user manager.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	if query.Has("search") {
		users, err := h.userService.SearchUsers(r.Context(), query.Get("search"))
		if err != nil {
			HandleAPIError(w, r, err, "Failed to search users")
			return
		}
		out := make([]UserSummaryResponse, 0, len(users))
		for i := range users {
			out = append(out, UserSummaryResponse{ID: users[i].ID, Email: users[i].Email})
		}
		shared.RespondWithJSON(w, r, http.StatusOK, out)
		return
	}

	users, err := h.userService.ListUsers(r.Context(), actorID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list users")
		return
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, newUserResponse(&users[i]))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// DeleteUser handles DELETE /users/{id}.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ids, ok := requirePathUUIDs(w, r, "id")
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(r.Context(), actorID, ids[0]); err != nil {
		HandleAPIError(w, r, err, "Failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
