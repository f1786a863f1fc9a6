package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/shepherd-hq/shepherd/internal/app"
	"github.com/shepherd-hq/shepherd/internal/audit"
	audithttp "github.com/shepherd-hq/shepherd/internal/audit/http"
	"github.com/shepherd-hq/shepherd/internal/auth"
	"github.com/shepherd-hq/shepherd/internal/dashboard"
	"github.com/shepherd-hq/shepherd/internal/observability"
	"github.com/shepherd-hq/shepherd/internal/platform/cache"
	"github.com/shepherd-hq/shepherd/internal/platform/db"
	"github.com/shepherd-hq/shepherd/internal/rbac"
	"github.com/shepherd-hq/shepherd/internal/roles"
	"github.com/shepherd-hq/shepherd/internal/routes"
	"github.com/shepherd-hq/shepherd/internal/shared"
	"github.com/shepherd-hq/shepherd/internal/users"
	"github.com/shepherd-hq/shepherd/internal/view"
	"github.com/shepherd-hq/shepherd/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogFormat, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("shepherd exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	registry := routes.Default()
	templates, err := view.NewEngine(registry)
	if err != nil {
		return err
	}
	sessionManager := shared.NewSessionManager(redisClient, "shepherd_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	rolesService := roles.NewService(roles.NewRepository(pool))
	if drift, err := rolesService.CheckDrift(ctx); err != nil {
		logger.Warn("role drift check", slog.Any("error", err))
	} else if !drift.Empty() {
		logger.Warn("roles table differs from the role enumeration, run the seeder",
			slog.Any("missing", drift.Missing),
			slog.Any("unknown", drift.Unknown))
	}

	rbacService := rbac.NewService(users.NewRepository(pool))
	rbacMiddleware := rbac.Middleware{
		Principals: rbacService,
		Logger:     logger,
		LoginURL:   registry.MustURL(routes.Login),
	}

	authHandler := auth.NewHandler(auth.HandlerDeps{
		Logger:     logger,
		Service:    auth.NewService(auth.NewRepository(pool)),
		Templates:  templates,
		Sessions:   sessionManager,
		CSRF:       csrfManager,
		Principals: rbacService,
		Routes:     registry,
		Observer:   metrics,
		Audit:      shared.NewAuditLogger(pool),
		LoginLimit: cfg.LoginRateLimit,
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Registry:         registry,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		DashboardHandler: dashboard.NewHandler(logger, templates, csrfManager, rbacService, registry, cfg.RegistrationEnabled),
		RolesHandler:     roles.NewHandler(logger, rolesService),
		AuditHandler:     audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(pool))),
		JobHandler:       jobs.NewHandler(inspector, logger),
		RBACMiddleware:   rbacMiddleware,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
