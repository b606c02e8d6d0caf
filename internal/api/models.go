package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	// ExpiresAt is the RFC 3339 time at which the access token expires.
	ExpiresAt string `json:"expires_at"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          uuid.UUID           `json:"id"`
	Email       string              `json:"email"`
	Permissions []domain.Permission `json:"permissions"`
	CreatedAt   time.Time           `json:"created_at"`
}

// UserSummaryResponse is what a user search reveals about other users.
type UserSummaryResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// SetPermissionsRequest replaces a user's permission set.
type SetPermissionsRequest struct {
	Permissions []domain.Permission `json:"permissions" validate:"dive,oneof=manage_all_task manage_user assign_task root"`
}

// TaskRequest carries the editable attributes of a task. Type is required
// on create and, when present on update, must equal the current type.
type TaskRequest struct {
	Title       string     `json:"title"       validate:"required,max=200"`
	Type        string     `json:"type"        validate:"omitempty,oneof=homework review discussion extra group"`
	Priority    string     `json:"priority"    validate:"required,oneof=low medium high"`
	Cost        int64      `json:"cost"        validate:"gte=1"`
	Deadline    int64      `json:"deadline"    validate:"gte=0"`
	Description string     `json:"description" validate:"max=10000"`
	Prev        *uuid.UUID `json:"prev"`
}

func (r TaskRequest) info() domain.TaskInfo {
	return domain.TaskInfo{
		Title:       r.Title,
		Type:        domain.TaskType(r.Type),
		Priority:    domain.Priority(r.Priority),
		Cost:        r.Cost,
		Deadline:    r.Deadline,
		Description: r.Description,
	}
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Type        string     `json:"type"`
	Priority    string     `json:"priority"`
	Cost        int64      `json:"cost"`
	Deadline    int64      `json:"deadline"`
	Publisher   uuid.UUID  `json:"publisher"`
	Description string     `json:"description"`
	Prev        *uuid.UUID `json:"prev"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ParticipationResponse is a task with the caller's finished flag.
type ParticipationResponse struct {
	Task     TaskResponse `json:"task"`
	Finished bool         `json:"finished"`
}

// MemberResponse is one member of a group.
type MemberResponse struct {
	UserID     uuid.UUID  `json:"user_id"`
	Email      string     `json:"email,omitempty"`
	Finished   bool       `json:"finished"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// GroupResponse is a group with its members.
type GroupResponse struct {
	ID      uuid.UUID        `json:"id"`
	TaskID  uuid.UUID        `json:"task_id"`
	Members []MemberResponse `json:"members"`
}

// TaskDetailResponse is the detail view of a task for the caller.
type TaskDetailResponse struct {
	Task      TaskResponse    `json:"task"`
	Prev      *TaskResponse   `json:"prev"`
	Finished  *bool           `json:"finished"`
	MyGroup   *GroupResponse  `json:"my_group"`
	AllGroups []GroupResponse `json:"all_groups"`
}

// AddMemberRequest names the user to put into a group.
type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// PlanResponse is the public view of a time plan.
type PlanResponse struct {
	ID           uuid.UUID `json:"id"`
	Status       string    `json:"status"`
	Content      string    `json:"content,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newUserResponse(u *domain.User) UserResponse {
	perms := make([]domain.Permission, 0, len(u.Permissions))
	perms = append(perms, u.Permissions...)
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
	}
}

func newTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Type:        string(t.Type),
		Priority:    string(t.Priority),
		Cost:        t.Cost,
		Deadline:    t.Deadline,
		Publisher:   t.Publisher,
		Description: t.Description,
		Prev:        t.Prev,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func newTaskResponses(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, newTaskResponse(&tasks[i]))
	}
	return out
}

func newParticipationResponses(items []domain.Participation) []ParticipationResponse {
	out := make([]ParticipationResponse, 0, len(items))
	for i := range items {
		out = append(out, ParticipationResponse{
			Task:     newTaskResponse(&items[i].Task),
			Finished: items[i].Finished,
		})
	}
	return out
}

func newGroupResponse(g domain.GroupMembers) GroupResponse {
	members := make([]MemberResponse, 0, len(g.Members))
	for _, m := range g.Members {
		members = append(members, MemberResponse{
			UserID:     m.UserID,
			Email:      m.Email,
			Finished:   m.Finished,
			FinishedAt: m.FinishedAt,
		})
	}
	return GroupResponse{ID: g.Group.ID, TaskID: g.Group.TaskID, Members: members}
}

func newTaskDetailResponse(d *service.TaskDetail) TaskDetailResponse {
	resp := TaskDetailResponse{Task: newTaskResponse(&d.Task)}
	if d.Prev != nil {
		prev := newTaskResponse(d.Prev)
		resp.Prev = &prev
	}
	if d.Participating {
		finished := d.Finished
		resp.Finished = &finished
	}
	if d.MyGroup != nil {
		g := newGroupResponse(*d.MyGroup)
		resp.MyGroup = &g
	}
	if d.AllGroups != nil {
		resp.AllGroups = make([]GroupResponse, 0, len(d.AllGroups))
		for _, g := range d.AllGroups {
			resp.AllGroups = append(resp.AllGroups, newGroupResponse(g))
		}
	}
	return resp
}

func newPlanResponse(p *domain.TimePlan) PlanResponse {
	return PlanResponse{
		ID:           p.ID,
		Status:       string(p.Status),
		Content:      p.Content,
		ErrorMessage: p.ErrorMessage,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
