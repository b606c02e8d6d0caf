package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskRowColumns = []string{
	"id", "title", "type", "priority", "cost", "deadline", "publisher",
	"description", "prev", "created_at", "updated_at",
}

func sampleTask(prev *uuid.UUID) *domain.Task {
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	return &domain.Task{
		ID:          uuid.New(),
		Title:       "Read chapter 3",
		Type:        domain.TaskTypeHomework,
		Priority:    domain.PriorityHigh,
		Cost:        6,
		Deadline:    now.Add(48 * time.Hour).UnixMilli(),
		Publisher:   uuid.New(),
		Description: "pages 40-62",
		Prev:        prev,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func taskRow(t *domain.Task) []driver.Value {
	var prev any
	if t.Prev != nil {
		prev = t.Prev.String()
	}
	return []driver.Value{
		t.ID.String(), t.Title, string(t.Type), string(t.Priority), t.Cost, t.Deadline,
		t.Publisher.String(), t.Description, prev, t.CreatedAt, t.UpdatedAt,
	}
}

func TestNewPostgresTaskStore_PanicsOnNilDB(t *testing.T) {
	assert.Panics(t, func() { NewPostgresTaskStore(nil, nil) })
}

func TestPostgresTaskStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts task with prev", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())
		prev := uuid.New()
		task := sampleTask(&prev)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
			WithArgs(task.ID, task.Title, "homework", "high", task.Cost, task.Deadline,
				task.Publisher, task.Description, prev, task.CreatedAt, task.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Create(ctx, task))
	})

	t.Run("null prev", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())
		task := sampleTask(nil)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
			WithArgs(task.ID, task.Title, "homework", "high", task.Cost, task.Deadline,
				task.Publisher, task.Description, nil, task.CreatedAt, task.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Create(ctx, task))
	})

	t.Run("invalid task never reaches the database", func(t *testing.T) {
		db, _ := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())
		task := sampleTask(nil)
		task.Cost = 0

		assert.ErrorIs(t, s.Create(ctx, task), domain.ErrValidation)
	})

	t.Run("missing prev maps to invalid entity", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())
		prev := uuid.New()
		task := sampleTask(&prev)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
			WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "tasks_prev_fkey"})

		assert.ErrorIs(t, s.Create(ctx, task), store.ErrInvalidEntity)
	})
}

func TestPostgresTaskStore_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())
		prev := uuid.New()
		want := sampleTask(&prev)

		mock.ExpectQuery(regexp.QuoteMeta("FROM tasks t WHERE t.id = $1")).
			WithArgs(want.ID).
			WillReturnRows(sqlmock.NewRows(taskRowColumns).AddRow(taskRow(want)...))

		got, err := s.GetByID(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())
		id := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta("FROM tasks t WHERE t.id = $1")).
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		_, err := s.GetByID(ctx, id)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.True(t, store.IsNotFoundError(err))
	})

	t.Run("for update locks the row", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())
		want := sampleTask(nil)

		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs(want.ID).
			WillReturnRows(sqlmock.NewRows(taskRowColumns).AddRow(taskRow(want)...))

		got, err := s.GetForUpdate(ctx, want.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Prev)
	})
}

func TestPostgresTaskStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("update", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())
		task := sampleTask(nil)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks")).
			WithArgs(task.Title, "high", task.Cost, task.Deadline, task.Description, nil,
				task.UpdatedAt, task.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Update(ctx, task))
	})

	t.Run("update missing", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())

		mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks")).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, s.Update(ctx, sampleTask(nil)), store.ErrTaskNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())
		id := uuid.New()

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = $1")).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Delete(ctx, id))
	})

	t.Run("delete blocked by dependents", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks")).
			WillReturnError(&pgconn.PgError{Code: restrictViolationCode, ConstraintName: "tasks_prev_fkey"})

		assert.ErrorIs(t, s.Delete(ctx, uuid.New()), store.ErrInvalidEntity)
	})
}

func TestPostgresTaskStore_Lists(t *testing.T) {
	ctx := context.Background()

	t.Run("by publisher", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())
		a, b := sampleTask(nil), sampleTask(nil)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE t.publisher = $1")).
			WithArgs(a.Publisher).
			WillReturnRows(sqlmock.NewRows(taskRowColumns).AddRow(taskRow(a)...).AddRow(taskRow(b)...))

		got, err := s.ListByPublisher(ctx, a.Publisher)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, a.ID, got[0].ID)
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("WHERE t.prev = $1")).
			WillReturnRows(sqlmock.NewRows(taskRowColumns))

		got, err := s.ListDependents(ctx, uuid.New())
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("participated carries finished flag", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())
		task := sampleTask(nil)
		userID := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta("JOIN group_members gm")).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(append(taskRowColumns, "finished")).
				AddRow(append(taskRow(task), true)...))

		got, err := s.ListParticipated(ctx, userID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].Finished)
		assert.Equal(t, task.ID, got[0].Task.ID)
	})

	t.Run("query error", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, testLogger())

		mock.ExpectQuery(regexp.QuoteMeta("FROM tasks t")).WillReturnError(errors.New("conn reset"))

		_, err := s.ListAll(ctx)
		assert.ErrorContains(t, err, "conn reset")
	})
}
