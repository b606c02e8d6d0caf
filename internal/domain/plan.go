package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PlanStatus is the processing state of a time plan.
type PlanStatus string

const (
	PlanStatusPending    PlanStatus = "pending"
	PlanStatusProcessing PlanStatus = "processing"
	PlanStatusCompleted  PlanStatus = "completed"
	PlanStatusFailed     PlanStatus = "failed"
)

var (
	ErrEmptyPlanID     = errors.New("time plan ID cannot be empty")
	ErrEmptyPlanUserID = errors.New("time plan user ID cannot be empty")
)

// TimePlan is a generated schedule suggestion for one user's open tasks.
type TimePlan struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Status       PlanStatus `json:"status"`
	Content      string     `json:"content"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewTimePlan creates a pending plan for userID.
func NewTimePlan(userID uuid.UUID) (*TimePlan, error) {
	now := time.Now().UTC()
	plan := &TimePlan{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    PlanStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Validate checks the plan's identifiers and status.
func (p *TimePlan) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPlanID
	}
	if p.UserID == uuid.Nil {
		return ErrEmptyPlanUserID
	}
	if !p.Status.IsValid() {
		return ErrInvalidPlanStatus
	}
	return nil
}

// IsValid reports whether s is a known plan status.
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusPending, PlanStatusProcessing, PlanStatusCompleted, PlanStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further processing will happen.
func (s PlanStatus) IsTerminal() bool {
	return s == PlanStatusCompleted || s == PlanStatusFailed
}
