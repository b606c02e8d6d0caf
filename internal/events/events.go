package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TypePlanGeneration requests the generation of a pending time plan. Its
// payload is a PlanGenerationPayload.
const TypePlanGeneration = "time_plan_generation"

// PlanGenerationPayload identifies the plan to fill in and its owner.
type PlanGenerationPayload struct {
	PlanID uuid.UUID `json:"plan_id"`
	UserID uuid.UUID `json:"user_id"`
}

// JobRequestEvent asks for a background job to be created.
type JobRequestEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *JobRequestEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewJobRequestEvent serializes payload into a new event of eventType.
func NewJobRequestEvent(eventType string, payload any) (*JobRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &JobRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Handler processes events.
type Handler interface {
	HandleEvent(ctx context.Context, event *JobRequestEvent) error
}

// Emitter publishes events to handlers.
type Emitter interface {
	EmitEvent(ctx context.Context, event *JobRequestEvent) error
}
