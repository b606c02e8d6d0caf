package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/domain/guard"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// guardState answers guard queries from transaction-bound stores.
type guardState struct {
	tasks  store.TaskStore
	groups store.GroupStore
}

var _ guard.State = guardState{}

func (g guardState) Membership(ctx context.Context, taskID, userID uuid.UUID) (*domain.Membership, error) {
	return g.groups.Membership(ctx, taskID, userID)
}

func (g guardState) Dependents(ctx context.Context, taskID uuid.UUID) ([]domain.Task, error) {
	return g.tasks.ListDependents(ctx, taskID)
}

func (g guardState) CountReliantParticipations(ctx context.Context, taskID, userID uuid.UUID) (int, error) {
	return g.groups.CountReliantParticipations(ctx, taskID, userID)
}
