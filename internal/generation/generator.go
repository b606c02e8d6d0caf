package generation

import (
	"context"
	"time"

	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Generator writes a time plan for tasks that are already in working order.
type Generator interface {
	// GeneratePlan returns the plan text. now anchors relative wording such
	// as "today" in the plan.
	GeneratePlan(ctx context.Context, tasks []domain.Task, now time.Time) (string, error)
}

// DeadlineLayout is how deadlines are written into prompts.
const DeadlineLayout = "2006-01-02 15:04 MST"

// PromptTask is one task as a prompt template sees it.
type PromptTask struct {
	Position    int
	Title       string
	Type        string
	Priority    string
	Cost        int64
	Deadline    string
	Description string
}

// PromptData is the value prompt templates are executed with.
type PromptData struct {
	Now   string
	Tasks []PromptTask
}

// NewPromptData renders tasks for a prompt, keeping their order. Deadlines
// and now are formatted in loc; a nil loc means UTC.
func NewPromptData(tasks []domain.Task, now time.Time, loc *time.Location) PromptData {
	if loc == nil {
		loc = time.UTC
	}

	data := PromptData{
		Now:   now.In(loc).Format(DeadlineLayout),
		Tasks: make([]PromptTask, 0, len(tasks)),
	}
	for i, t := range tasks {
		data.Tasks = append(data.Tasks, PromptTask{
			Position:    i + 1,
			Title:       t.Title,
			Type:        string(t.Type),
			Priority:    string(t.Priority),
			Cost:        t.Cost,
			Deadline:    time.UnixMilli(t.Deadline).In(loc).Format(DeadlineLayout),
			Description: t.Description,
		})
	}
	return data
}
