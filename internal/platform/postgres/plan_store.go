package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// PostgresPlanStore implements store.PlanStore on PostgreSQL.
type PostgresPlanStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPlanStore creates a plan store. A nil logger uses slog.Default.
func NewPostgresPlanStore(db store.DBTX, logger *slog.Logger) *PostgresPlanStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPlanStore{
		db:     db,
		logger: logger.With(slog.String("component", "plan_store")),
	}
}

var _ store.PlanStore = (*PostgresPlanStore)(nil)

// WithTx implements store.PlanStore.
func (s *PostgresPlanStore) WithTx(tx *sql.Tx) store.PlanStore {
	return &PostgresPlanStore{db: tx, logger: s.logger}
}

// Create implements store.PlanStore. Returns store.ErrInvalidEntity when the
// user does not exist.
func (s *PostgresPlanStore) Create(ctx context.Context, plan *domain.TimePlan) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := plan.Validate(); err != nil {
		log.Warn("time plan validation failed during create",
			slog.String("error", err.Error()),
			slog.String("plan_id", plan.ID.String()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_plans (id, user_id, status, content, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		plan.ID,
		plan.UserID,
		string(plan.Status),
		plan.Content,
		plan.ErrorMessage,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create time plan",
			slog.String("error", err.Error()),
			slog.String("plan_id", plan.ID.String()),
			slog.String("user_id", plan.UserID.String()))
		return MapError(err)
	}

	log.Info("time plan created",
		slog.String("plan_id", plan.ID.String()),
		slog.String("user_id", plan.UserID.String()))
	return nil
}

const planColumns = `id, user_id, status, content, error_message, created_at, updated_at`

// GetByID implements store.PlanStore.
func (s *PostgresPlanStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TimePlan, error) {
	return s.getOne(ctx, `SELECT `+planColumns+` FROM time_plans WHERE id = $1`, id)
}

// GetLatestByUser implements store.PlanStore.
func (s *PostgresPlanStore) GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.TimePlan, error) {
	return s.getOne(ctx, `
		SELECT `+planColumns+`
		FROM time_plans
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
}

func (s *PostgresPlanStore) getOne(ctx context.Context, query string, id uuid.UUID) (*domain.TimePlan, error) {
	var (
		plan   domain.TimePlan
		status string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&plan.ID,
		&plan.UserID,
		&status,
		&plan.Content,
		&plan.ErrorMessage,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPlanNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get time plan",
			slog.String("error", err.Error()),
			slog.String("id", id.String()))
		return nil, MapError(err)
	}

	plan.Status = domain.PlanStatus(status)
	return &plan, nil
}

// UpdateStatus implements store.PlanStore.
func (s *PostgresPlanStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.PlanStatus,
	content, errorMessage string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !status.IsValid() {
		return domain.ErrInvalidPlanStatus
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE time_plans
		SET status = $1, content = $2, error_message = $3, updated_at = $4
		WHERE id = $5
	`, string(status), content, errorMessage, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update time plan status",
			slog.String("error", err.Error()),
			slog.String("plan_id", id.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrPlanNotFound); err != nil {
		return err
	}

	log.Debug("time plan status updated",
		slog.String("plan_id", id.String()),
		slog.String("status", string(status)))
	return nil
}
