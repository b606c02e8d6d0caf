package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/stretchr/testify/require"
)

// MockTaskService is a mock implementation of service.TaskService.
type MockTaskService struct {
	CreateTaskFn       func(ctx context.Context, actorID uuid.UUID, info domain.TaskInfo, prev *uuid.UUID) (*domain.Task, error)
	UpdateTaskFn       func(ctx context.Context, actorID, taskID uuid.UUID, info domain.TaskInfo, prev *uuid.UUID) (*domain.Task, error)
	DeleteTaskFn       func(ctx context.Context, actorID, taskID uuid.UUID) error
	GetTaskDetailFn    func(ctx context.Context, actorID, taskID uuid.UUID) (*service.TaskDetail, error)
	ListCreatedFn      func(ctx context.Context, actorID uuid.UUID) ([]domain.Task, error)
	ListParticipatedFn func(ctx context.Context, actorID uuid.UUID) ([]domain.Participation, error)
	FinishTaskFn       func(ctx context.Context, actorID, taskID uuid.UUID) error
}

func (m *MockTaskService) CreateTask(
	ctx context.Context,
	actorID uuid.UUID,
	info domain.TaskInfo,
	prev *uuid.UUID,
) (*domain.Task, error) {
	return m.CreateTaskFn(ctx, actorID, info, prev)
}

func (m *MockTaskService) UpdateTask(
	ctx context.Context,
	actorID, taskID uuid.UUID,
	info domain.TaskInfo,
	prev *uuid.UUID,
) (*domain.Task, error) {
	return m.UpdateTaskFn(ctx, actorID, taskID, info, prev)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, actorID, taskID uuid.UUID) error {
	return m.DeleteTaskFn(ctx, actorID, taskID)
}

func (m *MockTaskService) GetTaskDetail(ctx context.Context, actorID, taskID uuid.UUID) (*service.TaskDetail, error) {
	return m.GetTaskDetailFn(ctx, actorID, taskID)
}

func (m *MockTaskService) ListCreated(ctx context.Context, actorID uuid.UUID) ([]domain.Task, error) {
	return m.ListCreatedFn(ctx, actorID)
}

func (m *MockTaskService) ListParticipated(ctx context.Context, actorID uuid.UUID) ([]domain.Participation, error) {
	return m.ListParticipatedFn(ctx, actorID)
}

func (m *MockTaskService) FinishTask(ctx context.Context, actorID, taskID uuid.UUID) error {
	return m.FinishTaskFn(ctx, actorID, taskID)
}

// MockGroupService is a mock implementation of service.GroupService.
type MockGroupService struct {
	CreateGroupFn  func(ctx context.Context, actorID, taskID uuid.UUID) (*domain.Group, error)
	DeleteGroupFn  func(ctx context.Context, actorID, taskID, groupID uuid.UUID) error
	AddMemberFn    func(ctx context.Context, actorID, taskID, groupID, userID uuid.UUID) error
	RemoveMemberFn func(ctx context.Context, actorID, taskID, groupID, userID uuid.UUID) error
}

func (m *MockGroupService) CreateGroup(ctx context.Context, actorID, taskID uuid.UUID) (*domain.Group, error) {
	return m.CreateGroupFn(ctx, actorID, taskID)
}

func (m *MockGroupService) DeleteGroup(ctx context.Context, actorID, taskID, groupID uuid.UUID) error {
	return m.DeleteGroupFn(ctx, actorID, taskID, groupID)
}

func (m *MockGroupService) AddMember(ctx context.Context, actorID, taskID, groupID, userID uuid.UUID) error {
	return m.AddMemberFn(ctx, actorID, taskID, groupID, userID)
}

func (m *MockGroupService) RemoveMember(ctx context.Context, actorID, taskID, groupID, userID uuid.UUID) error {
	return m.RemoveMemberFn(ctx, actorID, taskID, groupID, userID)
}

// MockUserService is a mock implementation of service.UserService.
type MockUserService struct {
	GetUserFn          func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetUserByEmailFn   func(ctx context.Context, email string) (*domain.User, error)
	CreateUserFn       func(ctx context.Context, email, password string) (*domain.User, error)
	SetPermissionsFn   func(ctx context.Context, actorID, targetID uuid.UUID, perms domain.Permissions) (*domain.User, error)
	GrantPermissionsFn func(ctx context.Context, email string, perms domain.Permissions) (*domain.User, error)
	SearchUsersFn      func(ctx context.Context, keyword string) ([]domain.User, error)
	ListUsersFn        func(ctx context.Context, actorID uuid.UUID) ([]domain.User, error)
	DeleteUserFn       func(ctx context.Context, actorID, targetID uuid.UUID) error
}

func (m *MockUserService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return m.GetUserFn(ctx, userID)
}

func (m *MockUserService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.GetUserByEmailFn(ctx, email)
}

func (m *MockUserService) CreateUser(ctx context.Context, email, password string) (*domain.User, error) {
	return m.CreateUserFn(ctx, email, password)
}

func (m *MockUserService) SetPermissions(
	ctx context.Context,
	actorID, targetID uuid.UUID,
	perms domain.Permissions,
) (*domain.User, error) {
	return m.SetPermissionsFn(ctx, actorID, targetID, perms)
}

func (m *MockUserService) GrantPermissions(
	ctx context.Context,
	email string,
	perms domain.Permissions,
) (*domain.User, error) {
	return m.GrantPermissionsFn(ctx, email, perms)
}

func (m *MockUserService) SearchUsers(ctx context.Context, keyword string) ([]domain.User, error) {
	return m.SearchUsersFn(ctx, keyword)
}

func (m *MockUserService) ListUsers(ctx context.Context, actorID uuid.UUID) ([]domain.User, error) {
	return m.ListUsersFn(ctx, actorID)
}

func (m *MockUserService) DeleteUser(ctx context.Context, actorID, targetID uuid.UUID) error {
	return m.DeleteUserFn(ctx, actorID, targetID)
}

// MockPlanService is a mock implementation of service.PlanService.
type MockPlanService struct {
	RequestPlanFn   func(ctx context.Context, userID uuid.UUID) (*domain.TimePlan, error)
	GetLatestPlanFn func(ctx context.Context, userID uuid.UUID) (*domain.TimePlan, error)
}

func (m *MockPlanService) RequestPlan(ctx context.Context, userID uuid.UUID) (*domain.TimePlan, error) {
	return m.RequestPlanFn(ctx, userID)
}

func (m *MockPlanService) GetLatestPlan(ctx context.Context, userID uuid.UUID) (*domain.TimePlan, error) {
	return m.GetLatestPlanFn(ctx, userID)
}

var (
	fixedUserID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	fixedTaskID  = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	fixedGroupID = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	fixedTime    = time.Date(2030, time.January, 1, 12, 0, 0, 0, time.UTC)
)

// request describes one call routed through a chi router so that URL
// parameters resolve the way they do in production.
type request struct {
	method  string
	pattern string
	target  string
	body    interface{}
	userID  uuid.UUID
	claims  *auth.Claims
}

func serve(t *testing.T, handler http.HandlerFunc, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if req.body != nil {
		if s, ok := req.body.(string); ok {
			body.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&body).Encode(req.body))
		}
	}

	r := chi.NewRouter()
	r.MethodFunc(req.method, req.pattern, handler)

	httpReq := httptest.NewRequest(req.method, req.target, &body)
	ctx := httpReq.Context()
	if req.userID != uuid.Nil {
		ctx = context.WithValue(ctx, shared.UserIDContextKey, req.userID)
	}
	if req.claims != nil {
		ctx = context.WithValue(ctx, shared.ClaimsContextKey, req.claims)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httpReq.WithContext(ctx))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func sampleTask() domain.Task {
	return domain.Task{
		ID:        fixedTaskID,
		Title:     "Read chapter 3",
		Type:      domain.TaskTypeHomework,
		Priority:  domain.PriorityHigh,
		Cost:      3,
		Deadline:  4102444800000,
		Publisher: fixedUserID,
		CreatedAt: fixedTime,
		UpdatedAt: fixedTime,
	}
}
