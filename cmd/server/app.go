package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/taskflow-api/internal/api"
	"github.com/phrazzld/taskflow-api/internal/api/middleware"
	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/generation"
	"github.com/phrazzld/taskflow-api/internal/job"
	"github.com/phrazzld/taskflow-api/internal/platform/gemini"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
)

// application owns the long-lived components behind the HTTP handler.
type application struct {
	handler http.Handler
	runner  *job.Runner
	caches  []interface {
		Start()
		Stop()
	}
	logger *slog.Logger
}

// newApplication wires stores, services, the job runner and the router.
// The generator is injected so tests can run without a Gemini key.
func newApplication(
	cfg *config.Config,
	db *sql.DB,
	generator generation.Generator,
	logger *slog.Logger,
) (*application, error) {
	users := postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
	tasks := postgres.NewPostgresTaskStore(db, logger)
	groups := postgres.NewPostgresGroupStore(db, logger)
	plans := postgres.NewPostgresPlanStore(db, logger)
	jobs := postgres.NewPostgresJobStore(db, logger)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	revoked := cache.NewRevocationList()
	limiter := cache.NewLoginLimiter(
		cfg.Cache.LoginMaxFailures,
		time.Duration(cfg.Cache.LoginLockoutSeconds)*time.Second,
	)
	throttle := cache.NewThrottle(time.Duration(cfg.Cache.PlanThrottleSeconds) * time.Second)

	userService := service.NewUserService(users, db, logger)
	taskService, err := service.NewTaskService(tasks, groups, users, db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	groupService, err := service.NewGroupService(tasks, groups, users, db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create group service: %w", err)
	}

	emitter := events.NewInMemoryEmitter(logger)
	planService, err := service.NewPlanService(plans, emitter, throttle, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan service: %w", err)
	}

	factory, err := job.NewPlanJobFactory(plans, taskService, generator, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan job factory: %w", err)
	}
	registry := job.NewRegistry()
	registry.Register(job.TypePlanGeneration, factory)

	runner := job.NewRunner(jobs, registry, job.RunnerConfig{
		WorkerCount:           cfg.Task.WorkerCount,
		QueueSize:             cfg.Task.QueueSize,
		StuckJobAge:           time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
		StuckJobCheckInterval: time.Minute,
	}, logger)
	emitter.RegisterHandler(job.NewPlanEventHandler(factory, runner, logger))

	h := handlers{
		auth:         api.NewAuthHandler(userService, jwtService, auth.NewBcryptVerifier(), limiter, revoked),
		users:        api.NewUserHandler(userService),
		tasks:        api.NewTaskHandler(taskService),
		group:        api.NewGroupHandler(groupService),
		plans:        api.NewPlanHandler(planService),
		authenticate: middleware.NewAuthMiddleware(jwtService, revoked).Authenticate,
	}

	app := &application{
		handler: newRouter(h, cfg.CORS.AllowedOrigins, logger),
		runner:  runner,
		logger:  logger,
	}
	app.caches = append(app.caches, revoked, limiter, throttle)
	return app, nil
}

// newGenerator builds the Gemini-backed plan generator.
func newGenerator(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Generator, error) {
	g, err := gemini.NewGenerator(ctx, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan generator: %w", err)
	}
	return g, nil
}

// start launches cache janitors and the job runner, which first requeues
// jobs left unfinished by an earlier run.
func (a *application) start() error {
	for _, c := range a.caches {
		c.Start()
	}
	if err := a.runner.Start(); err != nil {
		a.stopCaches()
		return fmt.Errorf("failed to start job runner: %w", err)
	}
	a.logger.Info("background components started")
	return nil
}

func (a *application) stop() {
	a.runner.Stop()
	a.stopCaches()
	a.logger.Info("background components stopped")
}

func (a *application) stopCaches() {
	for _, c := range a.caches {
		c.Stop()
	}
}
