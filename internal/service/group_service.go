package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/domain/guard"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// GroupService manages the groups of a task and their members.
type GroupService interface {
	// CreateGroup adds an empty group to a group-type task.
	CreateGroup(ctx context.Context, actorID, taskID uuid.UUID) (*domain.Group, error)

	// DeleteGroup removes a group of a group-type task together with its
	// members, provided none of them is relied upon by a dependent task.
	DeleteGroup(ctx context.Context, actorID, taskID, groupID uuid.UUID) error

	// AddMember puts userID into the group.
	AddMember(ctx context.Context, actorID, taskID, groupID, userID uuid.UUID) error

	// RemoveMember takes userID out of the group.
	RemoveMember(ctx context.Context, actorID, taskID, groupID, userID uuid.UUID) error
}

type groupServiceImpl struct {
	tasks  store.TaskStore
	groups store.GroupStore
	users  store.UserStore
	db     *sql.DB
	runTx  TxRunner
	logger *slog.Logger
}

var _ GroupService = (*groupServiceImpl)(nil)

// NewGroupService creates a GroupService.
func NewGroupService(
	tasks store.TaskStore,
	groups store.GroupStore,
	users store.UserStore,
	db *sql.DB,
	logger *slog.Logger,
) (GroupService, error) {
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if groups == nil {
		return nil, errors.New("group store cannot be nil")
	}
	if users == nil {
		return nil, errors.New("user store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &groupServiceImpl{
		tasks:  tasks,
		groups: groups,
		users:  users,
		db:     db,
		runTx:  store.RunInTransaction,
		logger: logger.With("component", "group_service"),
	}, nil
}

func (s *groupServiceImpl) CreateGroup(ctx context.Context, actorID, taskID uuid.UUID) (*domain.Group, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load acting user: %w", err)
	}

	var group *domain.Group
	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		task, err := s.lockGroupTask(ctx, s.tasks.WithTx(tx), actor, taskID)
		if err != nil {
			return err
		}
		group = domain.NewGroup(task.ID)
		if err := s.groups.WithTx(tx).Create(ctx, group); err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("group created", "task_id", taskID, "group_id", group.ID)
	return group, nil
}

func (s *groupServiceImpl) DeleteGroup(ctx context.Context, actorID, taskID, groupID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to load acting user: %w", err)
	}

	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		txGroups := s.groups.WithTx(tx)
		st := guardState{tasks: txTasks, groups: txGroups}

		task, err := s.lockGroupTask(ctx, txTasks, actor, taskID)
		if err != nil {
			return err
		}
		if err := checkGroupOwner(ctx, txGroups, task.ID, groupID); err != nil {
			return err
		}

		all, err := txGroups.ListByTask(ctx, task.ID)
		if err != nil {
			return fmt.Errorf("failed to list groups: %w", err)
		}
		if len(all) <= 1 {
			return ErrLastGroup
		}
		for _, gm := range all {
			if gm.Group.ID != groupID {
				continue
			}
			for _, m := range gm.Members {
				if err := guard.CheckRemoveMember(ctx, st, m.UserID, task); err != nil {
					return err
				}
			}
		}

		if err := txGroups.Delete(ctx, groupID); err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("group deleted", "task_id", taskID, "group_id", groupID)
	return nil
}

func (s *groupServiceImpl) AddMember(ctx context.Context, actorID, taskID, groupID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to load acting user: %w", err)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to load member: %w", err)
	}

	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		txGroups := s.groups.WithTx(tx)
		st := guardState{tasks: txTasks, groups: txGroups}

		// Locks are always taken predecessor first. RemoveMember on the
		// predecessor holds the same row while it counts reliant members, so
		// a join here and a leave there cannot both pass their checks.
		current, err := txTasks.GetByID(ctx, taskID)
		if err != nil {
			return fmt.Errorf("failed to load task: %w", err)
		}
		if current.Prev != nil {
			if _, err := txTasks.GetForUpdate(ctx, *current.Prev); err != nil {
				return fmt.Errorf("failed to lock predecessor: %w", err)
			}
		}

		task, err := lockStaffedTask(ctx, txTasks, actor, taskID, userID)
		if err != nil {
			return err
		}
		if err := checkGroupOwner(ctx, txGroups, task.ID, groupID); err != nil {
			return err
		}
		if err := guard.CheckAddMember(ctx, st, userID, task); err != nil {
			return err
		}
		if err := txGroups.AddMember(ctx, groupID, userID); err != nil {
			if errors.Is(err, store.ErrMemberExists) {
				return guard.ErrAlreadyJoined
			}
			return fmt.Errorf("failed to add member: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("member added", "task_id", taskID, "group_id", groupID, "user_id", userID, "actor", actorID)
	return nil
}

func (s *groupServiceImpl) RemoveMember(ctx context.Context, actorID, taskID, groupID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to load acting user: %w", err)
	}

	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		txGroups := s.groups.WithTx(tx)
		st := guardState{tasks: txTasks, groups: txGroups}

		task, err := lockStaffedTask(ctx, txTasks, actor, taskID, userID)
		if err != nil {
			return err
		}
		if err := checkGroupOwner(ctx, txGroups, task.ID, groupID); err != nil {
			return err
		}
		if err := guard.CheckRemoveMember(ctx, st, userID, task); err != nil {
			return err
		}

		m, err := txGroups.Membership(ctx, task.ID, userID)
		if err != nil {
			return fmt.Errorf("failed to load membership: %w", err)
		}
		if m == nil || m.GroupID != groupID {
			return guard.ErrNotAMember
		}
		if err := txGroups.RemoveMember(ctx, groupID, userID); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("member removed", "task_id", taskID, "group_id", groupID, "user_id", userID, "actor", actorID)
	return nil
}

// lockGroupTask locks the task and checks that actor may manage the groups
// of a group-type task.
func (s *groupServiceImpl) lockGroupTask(
	ctx context.Context,
	tasks store.TaskStore,
	actor *domain.User,
	taskID uuid.UUID,
) (*domain.Task, error) {
	task, err := tasks.GetForUpdate(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if task.Type != domain.TaskTypeGroup {
		return nil, ErrNotGroupTask
	}
	if !canManage(actor, task) {
		return nil, ErrPermissionDenied
	}
	return task, nil
}

// lockStaffedTask locks the task and checks that actor may change userID's
// membership: managers of the task may change their own, and need
// assign_task to change anyone else's.
func lockStaffedTask(
	ctx context.Context,
	tasks store.TaskStore,
	actor *domain.User,
	taskID, userID uuid.UUID,
) (*domain.Task, error) {
	task, err := tasks.GetForUpdate(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if !canManage(actor, task) {
		return nil, ErrPermissionDenied
	}
	if userID != actor.ID && !actor.Can(domain.PermissionAssignTask) {
		return nil, ErrPermissionDenied
	}
	return task, nil
}

func checkGroupOwner(ctx context.Context, groups store.GroupStore, taskID, groupID uuid.UUID) error {
	group, err := groups.GetByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load group: %w", err)
	}
	if group.TaskID != taskID {
		return ErrGroupMismatch
	}
	return nil
}
