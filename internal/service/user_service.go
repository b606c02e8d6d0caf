package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// UserService provides registration, lookup and permission management.
type UserService interface {
	// GetUser retrieves a user with permissions by ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// GetUserByEmail retrieves a user with permissions by email address
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CreateUser registers a user without permissions
	CreateUser(ctx context.Context, email, password string) (*domain.User, error)

	// SetPermissions replaces targetID's permissions on behalf of actorID.
	// The actor needs root, and the update may not add or remove root.
	SetPermissions(ctx context.Context, actorID, targetID uuid.UUID, perms domain.Permissions) (*domain.User, error)

	// SearchUsers returns users whose email contains keyword.
	SearchUsers(ctx context.Context, keyword string) ([]domain.User, error)

	// ListUsers returns every user with permissions. The actor needs
	// manage_user.
	ListUsers(ctx context.Context, actorID uuid.UUID) ([]domain.User, error)

	// DeleteUser removes targetID on behalf of actorID. Users cannot delete
	// themselves and root users cannot be deleted.
	DeleteUser(ctx context.Context, actorID, targetID uuid.UUID) error

	// GrantPermissions adds perms to the user identified by email without an
	// acting user. Used by the operator command line.
	GrantPermissions(ctx context.Context, email string, perms domain.Permissions) (*domain.User, error)
}

// SearchLimit caps the number of users a search returns.
const SearchLimit = 20

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	logger    *slog.Logger
	db        *sql.DB
	runTx     TxRunner
}

// NewUserService creates a new UserService
func NewUserService(userStore store.UserStore, db *sql.DB, logger *slog.Logger) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		userStore: userStore,
		db:        db,
		runTx:     store.RunInTransaction,
		logger:    logger.With("component", "user_service"),
	}
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("user not found", "user_id", userID)
		} else {
			s.logger.Error("failed to retrieve user",
				"error", err,
				"user_id", userID)
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by their email address
func (s *UserServiceImpl) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("user not found by email",
				"email", email)
		} else {
			s.logger.Error("failed to retrieve user by email",
				"error", err,
				"email", email)
		}
		return nil, fmt.Errorf("failed to retrieve user by email: %w", err)
	}

	return user, nil
}

// CreateUser creates a new user with the specified email and password.
// The user row and its permission rows are written in one transaction.
func (s *UserServiceImpl) CreateUser(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := domain.NewUser(email, password)
	if err != nil {
		s.logger.Debug("rejected invalid user",
			"error", err,
			"email", email)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("attempted to create user with existing email",
				"email", email)
		} else {
			s.logger.Error("failed to save user to database",
				"error", err,
				"email", email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created",
		"user_id", user.ID,
		"email", user.Email)

	return user, nil
}

// SetPermissions replaces the permission set of targetID.
func (s *UserServiceImpl) SetPermissions(
	ctx context.Context,
	actorID, targetID uuid.UUID,
	perms domain.Permissions,
) (*domain.User, error) {
	if err := perms.Validate(); err != nil {
		return nil, err
	}
	perms = perms.Normalize()

	var updated *domain.User
	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)

		actor, err := txStore.GetByID(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to load acting user: %w", err)
		}
		if !actor.Can(domain.PermissionRoot) {
			return ErrPermissionDenied
		}

		target, err := txStore.GetByID(ctx, targetID)
		if err != nil {
			return fmt.Errorf("failed to load target user: %w", err)
		}

		// Root is granted only from the command line.
		if perms.Has(domain.PermissionRoot) != target.Permissions.Has(domain.PermissionRoot) {
			return ErrRootImmutable
		}

		if err := txStore.SetPermissions(ctx, targetID, perms); err != nil {
			return fmt.Errorf("failed to set permissions: %w", err)
		}
		target.Permissions = perms
		updated = target
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrPermissionDenied) && !errors.Is(err, ErrRootImmutable) {
			s.logger.Error("failed to set permissions",
				"error", err,
				"actor", actorID,
				"user_id", targetID)
		}
		return nil, err
	}

	s.logger.Info("permissions updated",
		"actor", actorID,
		"user_id", targetID,
		"permissions", perms)
	return updated, nil
}

// SearchUsers looks users up by a fragment of their email. Any
// authenticated user may search; results carry no permissions.
func (s *UserServiceImpl) SearchUsers(ctx context.Context, keyword string) ([]domain.User, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptySearch
	}

	users, err := s.userStore.Search(ctx, keyword, SearchLimit)
	if err != nil {
		s.logger.Error("failed to search users",
			"error", err,
			"keyword", keyword)
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// ListUsers returns all users for a user manager.
func (s *UserServiceImpl) ListUsers(ctx context.Context, actorID uuid.UUID) ([]domain.User, error) {
	actor, err := s.userStore.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load acting user: %w", err)
	}
	if !actor.Can(domain.PermissionManageUser) {
		return nil, ErrPermissionDenied
	}

	users, err := s.userStore.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes targetID. The checks run in a fixed order: self
// deletion, the actor's permission, existence, then the root guard.
func (s *UserServiceImpl) DeleteUser(ctx context.Context, actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return ErrCannotDeleteSelf
	}

	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)

		actor, err := txStore.GetByID(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to load acting user: %w", err)
		}
		if !actor.Can(domain.PermissionManageUser) {
			return ErrPermissionDenied
		}

		target, err := txStore.GetByID(ctx, targetID)
		if err != nil {
			return fmt.Errorf("failed to load target user: %w", err)
		}
		if target.Permissions.Has(domain.PermissionRoot) {
			return fmt.Errorf("%w: root users cannot be deleted", ErrPermissionDenied)
		}

		if err := txStore.Delete(ctx, targetID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrPermissionDenied) && !errors.Is(err, store.ErrUserNotFound) {
			s.logger.Error("failed to delete user",
				"error", err,
				"actor", actorID,
				"user_id", targetID)
		}
		return err
	}

	s.logger.Info("user deleted",
		"actor", actorID,
		"user_id", targetID)
	return nil
}

// GrantPermissions adds perms to the existing set of the user with email.
func (s *UserServiceImpl) GrantPermissions(
	ctx context.Context,
	email string,
	perms domain.Permissions,
) (*domain.User, error) {
	if err := perms.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.User
	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)

		user, err := txStore.GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
		merged := append(append(domain.Permissions{}, user.Permissions...), perms...).Normalize()
		if err := txStore.SetPermissions(ctx, user.ID, merged); err != nil {
			return fmt.Errorf("failed to set permissions: %w", err)
		}
		user.Permissions = merged
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("permissions granted",
		"user_id", updated.ID,
		"permissions", updated.Permissions)
	return updated, nil
}
