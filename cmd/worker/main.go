package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/shepherd-hq/shepherd/internal/app"
	"github.com/shepherd-hq/shepherd/internal/auth"
	jobmetrics "github.com/shepherd-hq/shepherd/internal/jobs"
	"github.com/shepherd-hq/shepherd/internal/observability"
	"github.com/shepherd-hq/shepherd/internal/platform/db"
	"github.com/shepherd-hq/shepherd/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	pruneNow := flag.Bool("prune-now", false, "enqueue one session prune run and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.LogFormat, cfg.LogLevel)
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	if *pruneNow {
		client := jobs.NewClient(redisOpts)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		info, err := client.EnqueueSessionPrune(ctx)
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			logger.Info("session prune already queued")
			return
		}
		if err != nil {
			logger.Error("enqueue session prune", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("session prune enqueued", slog.String("task_id", info.ID))
		return
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	authService := auth.NewService(auth.NewRepository(pool))
	registry := observability.NewMetrics()
	metrics := jobmetrics.NewMetrics(registry.Registerer())

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: 2,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionPrune, Handler: jobs.SessionPruneHandler(authService, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.SessionPruneSchedule, Task: jobs.NewSessionPruneTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("worker started", slog.String("redis", cfg.RedisAddr))
		return worker.Run(groupCtx)
	})
	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", registry.Handler())
		srv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		group.Go(func() error {
			logger.Info("worker metrics listening", slog.String("addr", cfg.WorkerMetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
