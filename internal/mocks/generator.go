package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/generation"
)

// MockGenerator implements generation.Generator for testing. Without
// GeneratePlanFn it lists the task titles one per line.
type MockGenerator struct {
	GeneratePlanFn func(ctx context.Context, tasks []domain.Task, now time.Time) (string, error)

	mu     sync.Mutex
	titles [][]string
}

var _ generation.Generator = (*MockGenerator)(nil)

// GeneratePlan implements generation.Generator.
func (m *MockGenerator) GeneratePlan(ctx context.Context, tasks []domain.Task, now time.Time) (string, error) {
	titles := make([]string, 0, len(tasks))
	for _, t := range tasks {
		titles = append(titles, t.Title)
	}
	m.mu.Lock()
	m.titles = append(m.titles, titles)
	m.mu.Unlock()

	if m.GeneratePlanFn != nil {
		return m.GeneratePlanFn(ctx, tasks, now)
	}
	if len(tasks) == 0 {
		return "", generation.ErrNoTasks
	}
	return strings.Join(titles, "\n"), nil
}

// Calls returns the task titles of every call, in call order.
func (m *MockGenerator) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.titles))
	copy(out, m.titles)
	return out
}
