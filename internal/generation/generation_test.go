package generation_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPromptData(t *testing.T) {
	t.Parallel()

	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	now := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		{Title: "Essay", Type: domain.TaskTypeHomework, Priority: domain.PriorityHigh, Cost: 4,
			Deadline: time.Date(2030, time.January, 2, 4, 0, 0, 0, time.UTC).UnixMilli()},
		{Title: "Slides", Type: domain.TaskTypeReview, Priority: domain.PriorityLow, Cost: 1,
			Deadline: time.Date(2030, time.January, 3, 16, 30, 0, 0, time.UTC).UnixMilli(), Description: "ch. 2"},
	}

	data := generation.NewPromptData(tasks, now, shanghai)

	assert.Equal(t, "2030-01-01 08:00 CST", data.Now)
	require.Len(t, data.Tasks, 2)
	assert.Equal(t, generation.PromptTask{
		Position: 1, Title: "Essay", Type: "homework", Priority: "high", Cost: 4,
		Deadline: "2030-01-02 12:00 CST",
	}, data.Tasks[0])
	assert.Equal(t, 2, data.Tasks[1].Position)
	assert.Equal(t, "2030-01-04 00:30 CST", data.Tasks[1].Deadline)
	assert.Equal(t, "ch. 2", data.Tasks[1].Description)
}

func TestNewPromptData_NilLocationIsUTC(t *testing.T) {
	t.Parallel()

	now := time.Date(2030, time.January, 1, 9, 15, 0, 0, time.UTC)
	data := generation.NewPromptData(nil, now, nil)

	assert.Equal(t, "2030-01-01 09:15 UTC", data.Now)
	assert.Empty(t, data.Tasks)
}

func TestIsPermanent(t *testing.T) {
	t.Parallel()

	assert.True(t, generation.IsPermanent(fmt.Errorf("call: %w", generation.ErrContentBlocked)))
	assert.True(t, generation.IsPermanent(generation.ErrInvalidResponse))
	assert.False(t, generation.IsPermanent(generation.ErrTransientFailure))
	assert.False(t, generation.IsPermanent(errors.New("timeout")))
}
