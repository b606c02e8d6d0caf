package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// PostgresGroupStore implements store.GroupStore on PostgreSQL.
type PostgresGroupStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGroupStore creates a group store. A nil logger uses slog.Default.
func NewPostgresGroupStore(db store.DBTX, logger *slog.Logger) *PostgresGroupStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresGroupStore{
		db:     db,
		logger: logger.With(slog.String("component", "group_store")),
	}
}

var _ store.GroupStore = (*PostgresGroupStore)(nil)

// WithTx implements store.GroupStore.
func (s *PostgresGroupStore) WithTx(tx *sql.Tx) store.GroupStore {
	return &PostgresGroupStore{db: tx, logger: s.logger}
}

// Create implements store.GroupStore.
func (s *PostgresGroupStore) Create(ctx context.Context, group *domain.Group) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_groups (id, task_id, created_at) VALUES ($1, $2, $3)`,
		group.ID, group.TaskID, group.CreatedAt)
	if err != nil {
		log.Error("failed to create group",
			slog.String("error", err.Error()),
			slog.String("group_id", group.ID.String()),
			slog.String("task_id", group.TaskID.String()))
		return MapError(err)
	}

	log.Debug("group created",
		slog.String("group_id", group.ID.String()),
		slog.String("task_id", group.TaskID.String()))
	return nil
}

// GetByID implements store.GroupStore.
func (s *PostgresGroupStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	var g domain.Group
	err := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, created_at FROM task_groups WHERE id = $1`, id,
	).Scan(&g.ID, &g.TaskID, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrGroupNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get group",
			slog.String("error", err.Error()),
			slog.String("group_id", id.String()))
		return nil, MapError(err)
	}
	return &g, nil
}

// Delete implements store.GroupStore. Memberships go with the group.
func (s *PostgresGroupStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM task_groups WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete group",
			slog.String("error", err.Error()),
			slog.String("group_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrGroupNotFound); err != nil {
		return err
	}

	log.Info("group deleted", slog.String("group_id", id.String()))
	return nil
}

// ListByTask implements store.GroupStore.
func (s *PostgresGroupStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]domain.GroupMembers, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, created_at
		FROM task_groups
		WHERE task_id = $1
		ORDER BY created_at, id
	`, taskID)
	if err != nil {
		log.Error("failed to list groups",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}

	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.TaskID, &g.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, MapError(err)
	}
	_ = rows.Close()

	out := make([]domain.GroupMembers, 0, len(groups))
	for _, g := range groups {
		members, err := s.ListMembers(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.GroupMembers{Group: g, Members: members})
	}
	return out, nil
}

// AddMember implements store.GroupStore.
func (s *PostgresGroupStore) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, finished, joined_at)
		VALUES ($1, $2, FALSE, $3)
	`, groupID, userID, time.Now().UTC())
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrMemberExists) {
			return store.ErrMemberExists
		}
		log.Error("failed to add group member",
			slog.String("error", err.Error()),
			slog.String("group_id", groupID.String()),
			slog.String("user_id", userID.String()))
		return mapped
	}

	log.Info("group member added",
		slog.String("group_id", groupID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// RemoveMember implements store.GroupStore.
func (s *PostgresGroupStore) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		log.Error("failed to remove group member",
			slog.String("error", err.Error()),
			slog.String("group_id", groupID.String()),
			slog.String("user_id", userID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, fmt.Errorf("%w: group member", store.ErrNotFound)); err != nil {
		return err
	}

	log.Info("group member removed",
		slog.String("group_id", groupID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// ListMembers implements store.GroupStore.
func (s *PostgresGroupStore) ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT gm.group_id, gm.user_id, u.email, gm.finished, gm.finished_at, gm.joined_at
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at, gm.user_id
	`, groupID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list group members",
			slog.String("error", err.Error()),
			slog.String("group_id", groupID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	members := []domain.Member{}
	for rows.Next() {
		var (
			m          domain.Member
			finishedAt sql.NullTime
		)
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Email, &m.Finished, &finishedAt, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		if finishedAt.Valid {
			at := finishedAt.Time
			m.FinishedAt = &at
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return members, nil
}

// MarkFinished implements store.GroupStore.
func (s *PostgresGroupStore) MarkFinished(ctx context.Context, groupID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE group_members
		SET finished = TRUE, finished_at = $1
		WHERE group_id = $2 AND user_id = $3
	`, time.Now().UTC(), groupID, userID)
	if err != nil {
		log.Error("failed to mark member finished",
			slog.String("error", err.Error()),
			slog.String("group_id", groupID.String()),
			slog.String("user_id", userID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, fmt.Errorf("%w: group member", store.ErrNotFound))
}

// Membership implements store.GroupStore.
func (s *PostgresGroupStore) Membership(ctx context.Context, taskID, userID uuid.UUID) (*domain.Membership, error) {
	var m domain.Membership
	err := s.db.QueryRowContext(ctx, `
		SELECT gm.group_id, gm.finished
		FROM group_members gm
		JOIN task_groups g ON g.id = gm.group_id
		WHERE g.task_id = $1 AND gm.user_id = $2
		ORDER BY gm.joined_at
		LIMIT 1
	`, taskID, userID).Scan(&m.GroupID, &m.Finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load membership",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	return &m, nil
}

// CountReliantParticipations implements store.GroupStore.
func (s *PostgresGroupStore) CountReliantParticipations(ctx context.Context, taskID, userID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM tasks t
		JOIN task_groups g ON g.task_id = t.id
		JOIN group_members gm ON gm.group_id = g.id
		WHERE t.prev = $1 AND gm.user_id = $2
	`, taskID, userID).Scan(&n)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count reliant participations",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return 0, MapError(err)
	}
	return n, nil
}
