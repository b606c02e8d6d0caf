package api

import (
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// TaskHandler serves task publication, listing and completion.
type TaskHandler struct {
	taskService service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTask handles POST /tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req TaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Type == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid type: required field")
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), userID, req.info(), req.Prev)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, newTaskResponse(task))
}

// UpdateTask handles PUT /tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ids, ok := requirePathUUIDs(w, r, "id")
	if !ok {
		return
	}

	var req TaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), userID, ids[0], req.info(), req.Prev)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponse(task))
}

// DeleteTask handles DELETE /tasks/{id}. When other tasks still depend on
// it the 409 response lists them.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ids, ok := requirePathUUIDs(w, r, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), userID, ids[0]); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// GetTask handles GET /tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ids, ok := requirePathUUIDs(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.taskService.GetTaskDetail(r.Context(), userID, ids[0])
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newTaskDetailResponse(detail))
}

// ListCreated handles GET /tasks/created.
func (h *TaskHandler) ListCreated(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListCreated(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponses(tasks))
}

// ListParticipated handles GET /tasks/participated. The response is in
// working order.
func (h *TaskHandler) ListParticipated(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	items, err := h.taskService.ListParticipated(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	if items == nil {
		items = []domain.Participation{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newParticipationResponses(items))
}

// FinishTask handles POST /tasks/{id}/finish.
func (h *TaskHandler) FinishTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ids, ok := requirePathUUIDs(w, r, "id")
	if !ok {
		return
	}

	if err := h.taskService.FinishTask(r.Context(), userID, ids[0]); err != nil {
		HandleAPIError(w, r, err, "Failed to finish task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}
