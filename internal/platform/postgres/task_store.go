package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

const taskColumns = `t.id, t.title, t.type, t.priority, t.cost, t.deadline, t.publisher,
	t.description, t.prev, t.created_at, t.updated_at`

// PostgresTaskStore implements store.TaskStore on PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a task store. A nil logger uses slog.Default.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner, extra ...any) (domain.Task, error) {
	var (
		t        domain.Task
		taskType string
		priority string
		prev     uuid.NullUUID
	)
	dest := []any{
		&t.ID, &t.Title, &taskType, &priority, &t.Cost, &t.Deadline, &t.Publisher,
		&t.Description, &prev, &t.CreatedAt, &t.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Task{}, err
	}

	t.Type = domain.TaskType(taskType)
	t.Priority = domain.Priority(priority)
	if prev.Valid {
		id := prev.UUID
		t.Prev = &id
	}
	return t, nil
}

func nullablePrev(prev *uuid.UUID) uuid.NullUUID {
	if prev == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *prev, Valid: true}
}

// Create implements store.TaskStore.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, type, priority, cost, deadline, publisher,
			description, prev, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		task.ID,
		task.Title,
		string(task.Type),
		string(task.Priority),
		task.Cost,
		task.Deadline,
		task.Publisher,
		task.Description,
		nullablePrev(task.Prev),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("publisher", task.Publisher.String()))
	return nil
}

// GetByID implements store.TaskStore.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.getOne(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1`, id)
}

// GetForUpdate implements store.TaskStore. It only locks when the store
// runs inside a transaction.
func (s *PostgresTaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.getOne(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1 FOR UPDATE`, id)
}

func (s *PostgresTaskStore) getOne(ctx context.Context, query string, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}
	return &task, nil
}

// Update implements store.TaskStore. The type column is never written.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $1, priority = $2, cost = $3, deadline = $4,
			description = $5, prev = $6, updated_at = $7
		WHERE id = $8
	`,
		task.Title,
		string(task.Priority),
		task.Cost,
		task.Deadline,
		task.Description,
		nullablePrev(task.Prev),
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task updated", slog.String("task_id", task.ID.String()))
	return nil
}

// Delete implements store.TaskStore.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task deleted", slog.String("task_id", id.String()))
	return nil
}

// ListAll implements store.TaskStore.
func (s *PostgresTaskStore) ListAll(ctx context.Context) ([]domain.Task, error) {
	return s.list(ctx, `SELECT `+taskColumns+` FROM tasks t ORDER BY t.deadline, t.created_at`)
}

// ListByPublisher implements store.TaskStore.
func (s *PostgresTaskStore) ListByPublisher(ctx context.Context, userID uuid.UUID) ([]domain.Task, error) {
	return s.list(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		WHERE t.publisher = $1
		ORDER BY t.deadline, t.created_at
	`, userID)
}

// ListDependents implements store.TaskStore.
func (s *PostgresTaskStore) ListDependents(ctx context.Context, taskID uuid.UUID) ([]domain.Task, error) {
	return s.list(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		WHERE t.prev = $1
		ORDER BY t.deadline, t.created_at
	`, taskID)
}

func (s *PostgresTaskStore) list(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return tasks, nil
}

// ListParticipated implements store.TaskStore.
func (s *PostgresTaskStore) ListParticipated(ctx context.Context, userID uuid.UUID) ([]domain.Participation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`, gm.finished
		FROM tasks t
		JOIN task_groups g ON g.task_id = t.id
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1
		ORDER BY t.deadline, t.created_at
	`, userID)
	if err != nil {
		log.Error("failed to query participations",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Participation{}
	for rows.Next() {
		var finished bool
		task, err := scanTask(rows, &finished)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participation row: %w", err)
		}
		out = append(out, domain.Participation{Task: task, Finished: finished})
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}
