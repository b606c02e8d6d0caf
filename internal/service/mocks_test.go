package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// inlineTx runs fn without a database. Mocked stores ignore the nil tx.
func inlineTx(ctx context.Context, _ *sql.DB, fn store.TxFn) error {
	return fn(ctx, nil)
}

type mockTaskStore struct{ mock.Mock }

var _ store.TaskStore = (*mockTaskStore)(nil)

func (m *mockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*domain.Task)
	return t, args.Error(1)
}

func (m *mockTaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*domain.Task)
	return t, args.Error(1)
}

func (m *mockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTaskStore) ListAll(ctx context.Context) ([]domain.Task, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).([]domain.Task)
	return t, args.Error(1)
}

func (m *mockTaskStore) ListByPublisher(ctx context.Context, userID uuid.UUID) ([]domain.Task, error) {
	args := m.Called(ctx, userID)
	t, _ := args.Get(0).([]domain.Task)
	return t, args.Error(1)
}

func (m *mockTaskStore) ListParticipated(ctx context.Context, userID uuid.UUID) ([]domain.Participation, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).([]domain.Participation)
	return p, args.Error(1)
}

func (m *mockTaskStore) ListDependents(ctx context.Context, taskID uuid.UUID) ([]domain.Task, error) {
	args := m.Called(ctx, taskID)
	t, _ := args.Get(0).([]domain.Task)
	return t, args.Error(1)
}

func (m *mockTaskStore) WithTx(*sql.Tx) store.TaskStore { return m }

type mockGroupStore struct{ mock.Mock }

var _ store.GroupStore = (*mockGroupStore)(nil)

func (m *mockGroupStore) Create(ctx context.Context, group *domain.Group) error {
	return m.Called(ctx, group).Error(0)
}

func (m *mockGroupStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	args := m.Called(ctx, id)
	g, _ := args.Get(0).(*domain.Group)
	return g, args.Error(1)
}

func (m *mockGroupStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockGroupStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]domain.GroupMembers, error) {
	args := m.Called(ctx, taskID)
	g, _ := args.Get(0).([]domain.GroupMembers)
	return g, args.Error(1)
}

func (m *mockGroupStore) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	return m.Called(ctx, groupID, userID).Error(0)
}

func (m *mockGroupStore) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	return m.Called(ctx, groupID, userID).Error(0)
}

func (m *mockGroupStore) ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.Member, error) {
	args := m.Called(ctx, groupID)
	ms, _ := args.Get(0).([]domain.Member)
	return ms, args.Error(1)
}

func (m *mockGroupStore) MarkFinished(ctx context.Context, groupID, userID uuid.UUID) error {
	return m.Called(ctx, groupID, userID).Error(0)
}

func (m *mockGroupStore) Membership(ctx context.Context, taskID, userID uuid.UUID) (*domain.Membership, error) {
	args := m.Called(ctx, taskID, userID)
	ms, _ := args.Get(0).(*domain.Membership)
	return ms, args.Error(1)
}

func (m *mockGroupStore) CountReliantParticipations(ctx context.Context, taskID, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, taskID, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockGroupStore) WithTx(*sql.Tx) store.GroupStore { return m }

type mockUserStore struct{ mock.Mock }

var _ store.UserStore = (*mockUserStore)(nil)

func (m *mockUserStore) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUserStore) SetPermissions(ctx context.Context, id uuid.UUID, perms domain.Permissions) error {
	return m.Called(ctx, id, perms).Error(0)
}

func (m *mockUserStore) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).([]domain.User)
	return u, args.Error(1)
}

func (m *mockUserStore) Search(ctx context.Context, keyword string, limit int) ([]domain.User, error) {
	args := m.Called(ctx, keyword, limit)
	u, _ := args.Get(0).([]domain.User)
	return u, args.Error(1)
}

func (m *mockUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserStore) WithTx(*sql.Tx) store.UserStore { return m }

type mockPlanStore struct{ mock.Mock }

var _ store.PlanStore = (*mockPlanStore)(nil)

func (m *mockPlanStore) Create(ctx context.Context, plan *domain.TimePlan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *mockPlanStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TimePlan, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*domain.TimePlan)
	return p, args.Error(1)
}

func (m *mockPlanStore) GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.TimePlan, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*domain.TimePlan)
	return p, args.Error(1)
}

func (m *mockPlanStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.PlanStatus,
	content, errorMessage string,
) error {
	return m.Called(ctx, id, status, content, errorMessage).Error(0)
}

func (m *mockPlanStore) WithTx(*sql.Tx) store.PlanStore { return m }

type mockEmitter struct{ mock.Mock }

func (m *mockEmitter) EmitEvent(ctx context.Context, event *events.JobRequestEvent) error {
	return m.Called(ctx, event).Error(0)
}

type fakeThrottle struct {
	allow    bool
	released []string
}

func (f *fakeThrottle) Allow(string) bool { return f.allow }

func (f *fakeThrottle) Release(key string) { f.released = append(f.released, key) }

func newUser(perms ...domain.Permission) *domain.User {
	return &domain.User{
		ID:             uuid.New(),
		Email:          "user@example.com",
		HashedPassword: "hash",
		Permissions:    perms,
	}
}

func newTask(publisher uuid.UUID, typ domain.TaskType) *domain.Task {
	return &domain.Task{
		ID:        uuid.New(),
		Title:     "task",
		Type:      typ,
		Priority:  domain.PriorityMedium,
		Cost:      3,
		Deadline:  4102444800000, // 2100-01-01
		Publisher: publisher,
	}
}
