package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/job"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// PostgresJobStore implements job.Store on PostgreSQL.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a job store. A nil logger uses slog.Default.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

var _ job.Store = (*PostgresJobStore)(nil)

// WithTx implements job.Store.
func (s *PostgresJobStore) WithTx(tx *sql.Tx) job.Store {
	return &PostgresJobStore{db: tx, logger: s.logger}
}

// SaveJob implements job.Store.
func (s *PostgresJobStore) SaveJob(ctx context.Context, j job.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, j.ID(), j.Type(), j.Payload(), string(j.Status()), now, now)
	if err != nil {
		log.Error("failed to save job",
			"job_id", j.ID(),
			"job_type", j.Type(),
			"error", err)
		return fmt.Errorf("failed to save job to database: %w", MapError(err))
	}
	return nil
}

// UpdateJobStatus implements job.Store.
func (s *PostgresJobStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status job.Status, errorMsg string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`, string(status), errorMsg, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update job status",
			"job_id", id,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update job status: %w", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrJobNotFound)
}

// GetPendingJobs implements job.Store.
func (s *PostgresJobStore) GetPendingJobs(ctx context.Context) ([]job.Record, error) {
	return s.byStatus(ctx, job.StatusPending, 0)
}

// GetProcessingJobs implements job.Store.
func (s *PostgresJobStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]job.Record, error) {
	return s.byStatus(ctx, job.StatusProcessing, olderThan)
}

func (s *PostgresJobStore) byStatus(ctx context.Context, status job.Status, olderThan time.Duration) ([]job.Record, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM jobs
		WHERE status = $1
		ORDER BY created_at ASC
	`
	args := []any{string(status)}
	if olderThan > 0 {
		query = `
			SELECT id, type, payload, status, error_message, created_at, updated_at
			FROM jobs
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs by status", "status", status, "error", err)
		return nil, fmt.Errorf("failed to query jobs by status: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []job.Record
	for rows.Next() {
		var (
			rec       job.Record
			recStatus string
		)
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Payload, &recStatus, &rec.ErrorMessage,
			&rec.CreatedAt, &rec.UpdatedAt); err != nil {
			log.Error("failed to scan job row", "status", status, "error", err)
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		rec.Status = job.Status(recStatus)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating job rows", "status", status, "error", err)
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}
	return records, nil
}
