package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskflow-api/internal/api"
	"github.com/phrazzld/taskflow-api/internal/api/middleware"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/rs/cors"
)

// handlers groups everything the router mounts.
type handlers struct {
	auth  *api.AuthHandler
	users *api.UserHandler
	tasks *api.TaskHandler
	group *api.GroupHandler
	plans *api.PlanHandler

	authenticate func(http.Handler) http.Handler
}

func newRouter(h handlers, allowedOrigins []string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(middleware.TraceMiddleware(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.auth.Register)
		r.Post("/auth/login", h.auth.Login)
		r.Post("/auth/refresh", h.auth.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Post("/auth/logout", h.auth.Logout)

			r.Get("/users", h.users.ListUsers)
			r.Get("/users/me", h.users.Me)
			r.Delete("/users/{id}", h.users.DeleteUser)
			r.Put("/users/{id}/permissions", h.users.SetPermissions)

			r.Post("/tasks", h.tasks.CreateTask)
			r.Get("/tasks/created", h.tasks.ListCreated)
			r.Get("/tasks/participated", h.tasks.ListParticipated)
			r.Route("/tasks/{id}", func(r chi.Router) {
				r.Get("/", h.tasks.GetTask)
				r.Put("/", h.tasks.UpdateTask)
				r.Delete("/", h.tasks.DeleteTask)
				r.Post("/finish", h.tasks.FinishTask)

				r.Post("/groups", h.group.CreateGroup)
				r.Delete("/groups/{groupID}", h.group.DeleteGroup)
				r.Post("/groups/{groupID}/members", h.group.AddMember)
				r.Delete("/groups/{groupID}/members/{userID}", h.group.RemoveMember)
			})

			r.Post("/plans", h.plans.RequestPlan)
			r.Get("/plans/latest", h.plans.GetLatestPlan)
		})
	})

	return r
}
