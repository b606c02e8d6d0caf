package api

import (
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// GroupHandler serves the groups of a task and their members.
type GroupHandler struct {
	groupService service.GroupService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groupService service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// CreateGroup handles POST /tasks/{id}/groups.
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ids, ok := requirePathUUIDs(w, r, "id")
	if !ok {
		return
	}

	group, err := h.groupService.CreateGroup(r.Context(), userID, ids[0])
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create group")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, GroupResponse{
		ID:      group.ID,
		TaskID:  group.TaskID,
		Members: []MemberResponse{},
	})
}

// DeleteGroup handles DELETE /tasks/{id}/groups/{groupID}.
func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ids, ok := requirePathUUIDs(w, r, "id", "groupID")
	if !ok {
		return
	}

	if err := h.groupService.DeleteGroup(r.Context(), userID, ids[0], ids[1]); err != nil {
		HandleAPIError(w, r, err, "Failed to delete group")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// AddMember handles POST /tasks/{id}/groups/{groupID}/members.
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ids, ok := requirePathUUIDs(w, r, "id", "groupID")
	if !ok {
		return
	}

	var req AddMemberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.groupService.AddMember(r.Context(), userID, ids[0], ids[1], req.UserID); err != nil {
		HandleAPIError(w, r, err, "Failed to add member")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// RemoveMember handles DELETE /tasks/{id}/groups/{groupID}/members/{userID}.
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ids, ok := requirePathUUIDs(w, r, "id", "groupID", "userID")
	if !ok {
		return
	}

	if err := h.groupService.RemoveMember(r.Context(), actorID, ids[0], ids[1], ids[2]); err != nil {
		HandleAPIError(w, r, err, "Failed to remove member")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}
