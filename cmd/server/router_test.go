package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskflow-api/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	return newRouter(handlers{
		auth:         api.NewAuthHandler(nil, nil, nil, nil, nil),
		users:        api.NewUserHandler(nil),
		tasks:        api.NewTaskHandler(nil),
		group:        api.NewGroupHandler(nil),
		plans:        api.NewPlanHandler(nil),
		authenticate: denyAll,
	}, []string{"https://app.example.com"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRouter_Routes(t *testing.T) {
	t.Parallel()

	var got []string
	err := chi.Walk(testRouter(t).(chi.Routes), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got = append(got, method+" "+route)
		return nil
	})
	require.NoError(t, err)

	want := []string{
		"GET /health",
		"POST /api/auth/register",
		"POST /api/auth/login",
		"POST /api/auth/refresh",
		"POST /api/auth/logout",
		"GET /api/users",
		"GET /api/users/me",
		"DELETE /api/users/{id}",
		"PUT /api/users/{id}/permissions",
		"POST /api/tasks",
		"GET /api/tasks/created",
		"GET /api/tasks/participated",
		"GET /api/tasks/{id}/",
		"PUT /api/tasks/{id}/",
		"DELETE /api/tasks/{id}/",
		"POST /api/tasks/{id}/finish",
		"POST /api/tasks/{id}/groups",
		"DELETE /api/tasks/{id}/groups/{groupID}",
		"POST /api/tasks/{id}/groups/{groupID}/members",
		"DELETE /api/tasks/{id}/groups/{groupID}/members/{userID}",
		"POST /api/plans",
		"GET /api/plans/latest",
	}
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	t.Parallel()

	router := testRouter(t)
	for _, target := range []string{"/api/users/me", "/api/tasks/created", "/api/plans/latest"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, target)
	}
}

func TestRouter_PublicRouteValidatesBody(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	testRouter(t).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
