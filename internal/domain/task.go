package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskType classifies a task. The type of a task never changes after creation.
type TaskType string

const (
	TaskTypeHomework   TaskType = "homework"
	TaskTypeReview     TaskType = "review"
	TaskTypeDiscussion TaskType = "discussion"
	TaskTypeExtra      TaskType = "extra"
	TaskTypeGroup      TaskType = "group"
)

// IsValid reports whether t is one of the known task types.
func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeHomework, TaskTypeReview, TaskTypeDiscussion, TaskTypeExtra, TaskTypeGroup:
		return true
	}
	return false
}

// Priority is an ordered task priority: Low < Medium < High.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank returns the ordinal of p (Low=0, Medium=1, High=2). Unknown values rank
// as Low.
func (p Priority) Rank() int64 {
	switch p {
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	default:
		return 0
	}
}

// IsValid reports whether p is one of the known priorities.
func (p Priority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task is a unit of work published by a user. Deadline is expressed in
// milliseconds since the Unix epoch. Prev, when set, is the single task that
// must be finished before this one.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Type        TaskType   `json:"type"`
	Priority    Priority   `json:"priority"`
	Cost        int64      `json:"cost"`
	Deadline    int64      `json:"deadline"`
	Publisher   uuid.UUID  `json:"publisher"`
	Description string     `json:"description"`
	Prev        *uuid.UUID `json:"prev"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskInfo carries the user-editable attributes of a task.
type TaskInfo struct {
	Title       string
	Type        TaskType
	Priority    Priority
	Cost        int64
	Deadline    int64
	Description string
}

// NewTask creates a validated task owned by publisher.
func NewTask(publisher uuid.UUID, info TaskInfo, prev *uuid.UUID) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(info.Title),
		Type:        info.Type,
		Priority:    info.Priority,
		Cost:        info.Cost,
		Deadline:    info.Deadline,
		Publisher:   publisher,
		Description: info.Description,
		Prev:        prev,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks the invariants of a task.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	}
	if t.Publisher == uuid.Nil {
		return fmt.Errorf("%w: publisher cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if !t.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTaskType, t.Type)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.Cost < 1 {
		return fmt.Errorf("%w: cost must be at least 1", ErrValidation)
	}
	if t.Deadline < 0 {
		return fmt.Errorf("%w: deadline cannot be negative", ErrValidation)
	}
	if t.Prev != nil && *t.Prev == t.ID {
		return fmt.Errorf("%w: task cannot depend on itself", ErrValidation)
	}
	return nil
}

// Apply overwrites the editable attributes of t with info. The type and the
// predecessor link are left untouched: both are fixed when the task is
// published, and callers reject attempts to change them before applying.
func (t *Task) Apply(info TaskInfo) error {
	t.Title = strings.TrimSpace(info.Title)
	t.Priority = info.Priority
	t.Cost = info.Cost
	t.Deadline = info.Deadline
	t.Description = info.Description
	t.UpdatedAt = time.Now().UTC()
	return t.Validate()
}

// Weight is the scheduling score cost / (priority rank + 1) using integer
// division. Lower weights are scheduled earlier among equal deadlines.
func (t *Task) Weight() int64 {
	return t.Cost / (t.Priority.Rank() + 1)
}

// HasPrev reports whether the task depends on another task.
func (t *Task) HasPrev() bool {
	return t.Prev != nil
}

// ExpiredAt reports whether the deadline lies strictly before now. A task is
// still open at exactly its deadline.
func (t *Task) ExpiredAt(now time.Time) bool {
	return now.UnixMilli() > t.Deadline
}

// Participation is a task as seen by one user together with that user's
// finished flag.
type Participation struct {
	Task     Task `json:"task"`
	Finished bool `json:"finished"`
}
