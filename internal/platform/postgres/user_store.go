package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// PostgresUserStore implements store.UserStore on PostgreSQL.
type PostgresUserStore struct {
	db         store.DBTX
	bcryptCost int
	logger     *slog.Logger
}

// NewPostgresUserStore creates a user store. A bcrypt cost outside the range
// the library accepts falls back to bcrypt.DefaultCost.
func NewPostgresUserStore(db store.DBTX, bcryptCost int, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:         db,
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "user_store")),
	}
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, bcryptCost: s.bcryptCost, logger: s.logger}
}

// Create implements store.UserStore. The plaintext password is cleared once
// hashed.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}

	if user.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.bcryptCost)
		if err != nil {
			log.Error("failed to hash password", slog.String("error", err.Error()))
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.HashedPassword = string(hash)
		user.Password = ""
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.HashedPassword, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrEmailExists) {
			log.Debug("email already registered", slog.String("user_id", user.ID.String()))
			return store.ErrEmailExists
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return mapped
	}

	if err := s.insertPermissions(ctx, user.ID, user.Permissions.Normalize()); err != nil {
		return err
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))
	return nil
}

// GetByID implements store.UserStore.
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
}

// GetByEmail implements store.UserStore. Lookup is case-insensitive.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM users
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email)))
}

func (s *PostgresUserStore) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var user domain.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	perms, err := s.loadPermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Permissions = perms
	return &user, nil
}

// SetPermissions implements store.UserStore. Callers run it in a
// transaction so the set is replaced atomically.
func (s *PostgresUserStore) SetPermissions(ctx context.Context, id uuid.UUID, perms domain.Permissions) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := perms.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to touch user", slog.String("error", err.Error()), slog.String("user_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, id); err != nil {
		log.Error("failed to clear permissions", slog.String("error", err.Error()), slog.String("user_id", id.String()))
		return MapError(err)
	}

	if err := s.insertPermissions(ctx, id, perms.Normalize()); err != nil {
		return err
	}

	log.Info("user permissions replaced",
		slog.String("user_id", id.String()),
		slog.Int("count", len(perms)))
	return nil
}

// List implements store.UserStore. Permissions are read in a second query
// and merged by user id instead of once per user.
func (s *PostgresUserStore) List(ctx context.Context) ([]domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM users
		ORDER BY created_at, id
	`)
	if err != nil {
		log.Error("failed to list users", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, err
	}

	perms, err := s.db.QueryContext(ctx,
		`SELECT user_id, permission FROM user_permissions ORDER BY user_id, permission`)
	if err != nil {
		log.Error("failed to list permissions", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = perms.Close() }()

	byUser := make(map[uuid.UUID]domain.Permissions, len(users))
	for perms.Next() {
		var (
			id uuid.UUID
			p  string
		)
		if err := perms.Scan(&id, &p); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		byUser[id] = append(byUser[id], domain.Permission(p))
	}
	if err := perms.Err(); err != nil {
		return nil, MapError(err)
	}

	for i := range users {
		users[i].Permissions = byUser[users[i].ID]
		if users[i].Permissions == nil {
			users[i].Permissions = domain.Permissions{}
		}
	}
	return users, nil
}

// searchEscaper makes LIKE wildcards in a keyword match literally.
var searchEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search implements store.UserStore.
func (s *PostgresUserStore) Search(ctx context.Context, keyword string, limit int) ([]domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM users
		WHERE email ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY email
		LIMIT $2
	`, searchEscaper.Replace(keyword), limit)
	if err != nil {
		log.Error("failed to search users",
			slog.String("error", err.Error()),
			slog.String("keyword", keyword))
		return nil, MapError(err)
	}
	return scanUsers(rows)
}

// Delete implements store.UserStore. Published tasks, their groups and the
// user's memberships and permissions go with the row by foreign key
// cascade.
func (s *PostgresUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete user",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	log.Info("user deleted", slog.String("user_id", id.String()))
	return nil
}

// scanUsers reads user rows and closes them.
func scanUsers(rows *sql.Rows) ([]domain.User, error) {
	defer func() { _ = rows.Close() }()

	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return users, nil
}

func (s *PostgresUserStore) insertPermissions(ctx context.Context, id uuid.UUID, perms domain.Permissions) error {
	for _, p := range perms {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO user_permissions (user_id, permission) VALUES ($1, $2)`, id, string(p)); err != nil {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert permission",
				slog.String("error", err.Error()),
				slog.String("user_id", id.String()),
				slog.String("permission", string(p)))
			return MapError(err)
		}
	}
	return nil
}

func (s *PostgresUserStore) loadPermissions(ctx context.Context, id uuid.UUID) (domain.Permissions, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT permission FROM user_permissions WHERE user_id = $1 ORDER BY permission`, id)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	perms := domain.Permissions{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, domain.Permission(p))
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return perms, nil
}
