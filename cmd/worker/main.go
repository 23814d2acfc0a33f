package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/fincompare/fincompare/internal/app"
	"github.com/fincompare/fincompare/internal/comparison/export"
	"github.com/fincompare/fincompare/internal/directory"
	"github.com/fincompare/fincompare/internal/platform/cache"
	"github.com/fincompare/fincompare/internal/platform/db"
	"github.com/fincompare/fincompare/jobs"
	"github.com/fincompare/fincompare/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cache.WithDB(cfg.RedisDB))
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	stack, err := app.NewComparisonStack(cfg, logger, nil)
	if err != nil {
		logger.Error("init comparison", slog.Any("error", err))
		os.Exit(1)
	}

	var pdf export.PDFRenderer
	if cfg.GotenbergURL != "" {
		pdf = report.NewClient(cfg.GotenbergURL)
	}
	exportJob := jobs.NewExportBuildJob(stack.Service, export.NewStore(redisClient, cfg.ExportTTL), pdf, logger, nil)

	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskExportBuild, Handler: exportJob.Handle},
	}
	var cron []jobs.CronRegistration

	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN, db.WithMaxConns(cfg.PGMaxConns))
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		repo := directory.NewPGRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Error("ensure directory schema", slog.Any("error", err))
			os.Exit(1)
		}
		syncJob := jobs.NewDirectorySyncJob(repo, logger, nil)
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskDirectorySync, Handler: syncJob.Handle})

		if cfg.CorpCodeFile != "" {
			syncTask, err := jobs.NewDirectorySyncTask(cfg.CorpCodeFile)
			if err != nil {
				logger.Error("build directory sync task", slog.Any("error", err))
				os.Exit(1)
			}
			cron = append(cron, jobs.CronRegistration{Spec: "0 3 * * *", Task: syncTask})
		}
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    handlers,
		Cron:        cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.Int("handlers", len(handlers)), slog.Int("cron", len(cron)))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
