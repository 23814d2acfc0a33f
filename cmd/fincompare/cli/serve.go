package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/fincompare/fincompare/internal/app"
	"github.com/fincompare/fincompare/internal/comparison/export"
	comparisonhttp "github.com/fincompare/fincompare/internal/comparison/http"
	"github.com/fincompare/fincompare/internal/directory"
	"github.com/fincompare/fincompare/internal/observability"
	"github.com/fincompare/fincompare/internal/platform/cache"
	"github.com/fincompare/fincompare/internal/platform/db"
	"github.com/fincompare/fincompare/jobs"
	"github.com/fincompare/fincompare/report"
)

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return Serve(cmd.Context(), cfg, app.NewLogger(cfg))
		},
	}
}

// Serve wires the API and blocks until ctx is cancelled. Postgres, Redis and
// Gotenberg are optional; the routes depending on them answer 503 when absent.
func Serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()
	stack, err := app.NewComparisonStack(cfg, logger, metrics.Registerer())
	if err != nil {
		return err
	}

	params := comparisonhttp.Params{
		Logger:  logger,
		Service: stack.Service,
		Catalog: stack.Catalog,
		Audit:   stack.Source,
	}

	switch {
	case cfg.PGDSN != "":
		pool, err := db.New(ctx, cfg.PGDSN, db.WithMaxConns(cfg.PGMaxConns))
		if err != nil {
			return err
		}
		defer pool.Close()
		repo := directory.NewPGRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		params.Companies = repo
	case cfg.CorpCodeFile != "":
		companies, err := directory.LoadFile(cfg.CorpCodeFile)
		if err != nil {
			return err
		}
		logger.Info("company directory loaded", slog.Int("companies", len(companies)))
		params.Companies = directory.NewMemory(companies)
	default:
		logger.Warn("company directory disabled: set PG_DSN or CORP_CODE_FILE")
	}

	var jobHandler *jobs.Handler
	redisClient, err := cache.New(ctx, cfg.RedisAddr, cache.WithDB(cfg.RedisDB))
	if err != nil {
		logger.Warn("background exports disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
		jobClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			return err
		}
		defer func() { _ = jobClient.Close() }()
		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		params.Jobs = jobClient
		params.Artifacts = export.NewStore(redisClient, cfg.ExportTTL)
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	var reportHandler *report.Handler
	if cfg.GotenbergURL != "" {
		pdf := report.NewClient(cfg.GotenbergURL)
		params.PDF = pdf
		reportHandler = report.NewHandler(pdf, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		ComparisonHandler: comparisonhttp.NewHandler(params),
		ReportHandler:     reportHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return err
	}
	return nil
}
