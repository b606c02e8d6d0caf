package domain

import (
	"time"

	"github.com/google/uuid"
)

// Group is a set of users jointly assigned to a task. Every task owns at
// least one group; tasks of type group may own several.
type Group struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewGroup creates a group for the given task.
func NewGroup(taskID uuid.UUID) *Group {
	return &Group{
		ID:        uuid.New(),
		TaskID:    taskID,
		CreatedAt: time.Now().UTC(),
	}
}

// Member is a user's membership in a group with its own finished flag.
type Member struct {
	GroupID    uuid.UUID  `json:"group_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Email      string     `json:"email,omitempty"`
	Finished   bool       `json:"finished"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	JoinedAt   time.Time  `json:"joined_at"`
}

// GroupMembers is a group together with its current members.
type GroupMembers struct {
	Group   Group    `json:"group"`
	Members []Member `json:"members"`
}

// Membership is a user's standing on a task across all of its groups.
type Membership struct {
	GroupID  uuid.UUID
	Finished bool
}
