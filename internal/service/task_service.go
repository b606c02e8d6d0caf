package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/domain/arrange"
	"github.com/phrazzld/taskflow-api/internal/domain/guard"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// TaskService publishes, edits, lists and finishes tasks.
type TaskService interface {
	// CreateTask publishes a task owned by actorID together with its first
	// group. prev, when set, must be an existing task of the same publisher.
	CreateTask(ctx context.Context, actorID uuid.UUID, info domain.TaskInfo, prev *uuid.UUID) (*domain.Task, error)

	// UpdateTask replaces the editable attributes of a task. Neither the type
	// nor the predecessor can change; a nil prev keeps the current link.
	UpdateTask(
		ctx context.Context,
		actorID, taskID uuid.UUID,
		info domain.TaskInfo,
		prev *uuid.UUID,
	) (*domain.Task, error)

	// DeleteTask removes a task nobody depends on. When dependents exist the
	// error is a *guard.HasDependentsError.
	DeleteTask(ctx context.Context, actorID, taskID uuid.UUID) error

	// GetTaskDetail returns the task as visible to actorID.
	GetTaskDetail(ctx context.Context, actorID, taskID uuid.UUID) (*TaskDetail, error)

	// ListCreated returns the tasks published by actorID, or every task for
	// users allowed to manage all tasks.
	ListCreated(ctx context.Context, actorID uuid.UUID) ([]domain.Task, error)

	// ListParticipated returns actorID's tasks in the order they should be
	// worked on.
	ListParticipated(ctx context.Context, actorID uuid.UUID) ([]domain.Participation, error)

	// FinishTask marks actorID's membership of the task finished.
	FinishTask(ctx context.Context, actorID, taskID uuid.UUID) error
}

// TaskDetail is a task with the surrounding state a client displays.
type TaskDetail struct {
	Task domain.Task
	Prev *domain.Task
	// Participating and Finished describe the acting user's own standing.
	Participating bool
	Finished      bool
	MyGroup       *domain.GroupMembers
	// AllGroups is only filled for the publisher and task managers.
	AllGroups []domain.GroupMembers
}

// TxRunner runs fn inside a database transaction.
type TxRunner func(ctx context.Context, db *sql.DB, fn store.TxFn) error

type taskServiceImpl struct {
	tasks  store.TaskStore
	groups store.GroupStore
	users  store.UserStore
	db     *sql.DB
	runTx  TxRunner
	now    func() time.Time
	logger *slog.Logger
}

var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a TaskService.
func NewTaskService(
	tasks store.TaskStore,
	groups store.GroupStore,
	users store.UserStore,
	db *sql.DB,
	logger *slog.Logger,
) (TaskService, error) {
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

	return &taskServiceImpl{
		tasks:  tasks,
		groups: groups,
		users:  users,
		db:     db,
		runTx:  store.RunInTransaction,
		now:    time.Now,
		logger: logger.With("component", "task_service"),
	}, nil
}

func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	actorID uuid.UUID,
	info domain.TaskInfo,
	prev *uuid.UUID,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(actorID, info, prev)
	if err != nil {
		log.Debug("rejected invalid task", "error", err, "publisher", actorID)
		return nil, err
	}

	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		txGroups := s.groups.WithTx(tx)

		if prev != nil {
			if err := checkPrevOwner(ctx, txTasks, *prev, actorID); err != nil {
				return err
			}
		}

		if err := txTasks.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		if err := txGroups.Create(ctx, domain.NewGroup(task.ID)); err != nil {
			return fmt.Errorf("failed to create initial group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("task created", "task_id", task.ID, "publisher", actorID, "type", task.Type)
	return task, nil
}

func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	actorID, taskID uuid.UUID,
	info domain.TaskInfo,
	prev *uuid.UUID,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Task
	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		task, err := txTasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return fmt.Errorf("failed to load task: %w", err)
		}
		if !canManage(actor, task) {
			return ErrPermissionDenied
		}
		if info.Type != "" && info.Type != task.Type {
			return ErrTypeImmutable
		}

		// The predecessor link is fixed at publication; restating it is fine.
		if prev != nil && (task.Prev == nil || *task.Prev != *prev) {
			return fmt.Errorf("%w: predecessor cannot be changed", ErrInvalidPrev)
		}

		if err := task.Apply(info); err != nil {
			return err
		}
		if err := txTasks.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("task updated", "task_id", taskID, "actor", actorID)
	return updated, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, actorID, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}

	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		st := guardState{tasks: txTasks, groups: s.groups.WithTx(tx)}

		task, err := txTasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return fmt.Errorf("failed to load task: %w", err)
		}
		if !canManage(actor, task) {
			return ErrPermissionDenied
		}
		if err := guard.CheckDelete(ctx, st, task); err != nil {
			return err
		}
		if err := txTasks.Delete(ctx, task.ID); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		if guard.IsViolation(err) {
			log.Debug("task deletion rejected", "task_id", taskID, "reason", err)
		}
		return err
	}

	log.Info("task deleted", "task_id", taskID, "actor", actorID)
	return nil
}

func (s *taskServiceImpl) GetTaskDetail(ctx context.Context, actorID, taskID uuid.UUID) (*TaskDetail, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	membership, err := s.groups.Membership(ctx, taskID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	manager := canManage(actor, task)
	if !manager && membership == nil {
		return nil, ErrPermissionDenied
	}

	groups, err := s.groups.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}

	detail := &TaskDetail{Task: *task}
	if task.Prev != nil {
		prev, err := s.tasks.GetByID(ctx, *task.Prev)
		switch {
		case err == nil:
			detail.Prev = prev
		case !store.IsNotFoundError(err):
			return nil, fmt.Errorf("failed to load predecessor: %w", err)
		}
	}
	if membership != nil {
		detail.Participating = true
		detail.Finished = membership.Finished
		for i := range groups {
			if groups[i].Group.ID == membership.GroupID {
				detail.MyGroup = &groups[i]
				break
			}
		}
	}
	if manager {
		detail.AllGroups = groups
	}
	return detail, nil
}

func (s *taskServiceImpl) ListCreated(ctx context.Context, actorID uuid.UUID) ([]domain.Task, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var tasks []domain.Task
	if actor.Can(domain.PermissionManageAllTask) {
		tasks, err = s.tasks.ListAll(ctx)
	} else {
		tasks, err = s.tasks.ListByPublisher(ctx, actorID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) ListParticipated(ctx context.Context, actorID uuid.UUID) ([]domain.Participation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	items, err := s.tasks.ListParticipated(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participated tasks: %w", err)
	}

	arranged := arrange.Arrange(items)
	if omitted := arrange.Omitted(items, arranged); len(omitted) > 0 {
		log.Warn("dependency cycle left tasks out of arrangement",
			"user_id", actorID,
			"omitted", omitted)
	}
	return arranged, nil
}

func (s *taskServiceImpl) FinishTask(ctx context.Context, actorID, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		txGroups := s.groups.WithTx(tx)
		st := guardState{tasks: txTasks, groups: txGroups}

		task, err := txTasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return fmt.Errorf("failed to load task: %w", err)
		}
		if err := guard.CheckFinish(ctx, st, actorID, task, s.now()); err != nil {
			return err
		}

		m, err := st.Membership(ctx, task.ID, actorID)
		if err != nil {
			return fmt.Errorf("failed to load membership: %w", err)
		}
		if m == nil {
			return guard.ErrNotParticipating
		}
		if err := txGroups.MarkFinished(ctx, m.GroupID, actorID); err != nil {
			return fmt.Errorf("failed to mark task finished: %w", err)
		}
		return nil
	})
	if err != nil {
		if guard.IsViolation(err) {
			log.Debug("finish rejected", "task_id", taskID, "user_id", actorID, "reason", err)
		}
		return err
	}

	log.Info("task finished", "task_id", taskID, "user_id", actorID)
	return nil
}

func (s *taskServiceImpl) loadActor(ctx context.Context, actorID uuid.UUID) (*domain.User, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load acting user: %w", err)
	}
	return actor, nil
}

// canManage reports whether actor may edit, delete or staff task.
func canManage(actor *domain.User, task *domain.Task) bool {
	return actor.ID == task.Publisher || actor.Can(domain.PermissionManageAllTask)
}

// checkPrevOwner verifies that prevID exists and was published by owner. The
// predecessor row stays locked until the transaction ends so it cannot be
// deleted while a dependent is being attached to it.
func checkPrevOwner(ctx context.Context, tasks store.TaskStore, prevID, owner uuid.UUID) error {
	prev, err := tasks.GetForUpdate(ctx, prevID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return fmt.Errorf("%w: %s does not exist", ErrInvalidPrev, prevID)
		}
		return fmt.Errorf("failed to load predecessor: %w", err)
	}
	if prev.Publisher != owner {
		return fmt.Errorf("%w: predecessor belongs to another user", ErrPermissionDenied)
	}
	return nil
}
