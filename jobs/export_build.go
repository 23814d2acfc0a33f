package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fincompare/fincompare/internal/comparison"
	"github.com/fincompare/fincompare/internal/comparison/export"
	jobmetrics "github.com/fincompare/fincompare/internal/jobs"
)

const (
	// TaskExportBuild renders a comparison export in the background.
	TaskExportBuild = "export:build"
)

// ExportBuildPayload carries everything needed to rebuild the comparison and render it.
type ExportBuildPayload struct {
	ID      string             `json:"id"`
	Format  string             `json:"format"`
	Request comparison.Request `json:"request"`
	Options export.Options     `json:"options"`
}

// NewExportBuildTask creates an Asynq task for an export build.
func NewExportBuildTask(payload ExportBuildPayload) (*asynq.Task, error) {
	if payload.ID == "" {
		return nil, errors.New("export build: id required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportBuild, body, asynq.Queue(QueueExports), asynq.MaxRetry(3), asynq.Timeout(5*time.Minute)), nil
}

// Comparer runs comparisons.
type Comparer interface {
	Compare(ctx context.Context, req comparison.Request) (comparison.Result, error)
}

// ArtifactWriter persists export artifacts.
type ArtifactWriter interface {
	Put(ctx context.Context, a export.Artifact) error
}

// ExportBuildJob handles TaskExportBuild.
type ExportBuildJob struct {
	Service Comparer
	Store   ArtifactWriter
	PDF     export.PDFRenderer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewExportBuildJob constructs the job handler.
func NewExportBuildJob(service Comparer, store ArtifactWriter, pdf export.PDFRenderer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExportBuildJob {
	return &ExportBuildJob{Service: service, Store: store, PDF: pdf, Logger: logger, Metrics: metrics}
}

// Handle executes the export build.
func (j *ExportBuildJob) Handle(ctx context.Context, task *asynq.Task) (resultErr error) {
	if j == nil || j.Service == nil || j.Store == nil {
		return errors.New("export build: dependencies not configured")
	}
	var payload ExportBuildPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.ID == "" {
		return asynq.SkipRetry
	}
	if payload.Format == "" {
		payload.Format = export.FormatXLSX
	}

	tracker := j.metrics().Track(TaskExportBuild)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	logger := j.log().With(slog.String("export_id", payload.ID), slog.String("format", payload.Format))

	base := export.Artifact{ID: payload.ID, Format: payload.Format}
	running := base
	running.Status = export.StatusRunning
	if err := j.Store.Put(ctx, running); err != nil {
		return err
	}

	start := time.Now()
	result, err := j.Service.Compare(ctx, payload.Request)
	if err != nil {
		j.fail(ctx, base, err)
		logger.Error("compare", slog.Any("error", err))
		if errors.Is(err, comparison.ErrInvalidRequest) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	doc, err := export.Render(ctx, export.Project(result, payload.Options), payload.Format, j.PDF)
	if err != nil {
		j.fail(ctx, base, err)
		logger.Error("render export", slog.Any("error", err))
		return err
	}
	j.metrics().ObserveArtifact(doc.Extension, len(doc.Data))

	ready := base
	ready.Status = export.StatusReady
	ready.Filename = "financial_comparison." + doc.Extension
	ready.ContentType = doc.ContentType
	ready.Data = doc.Data
	if err := j.Store.Put(ctx, ready); err != nil {
		return err
	}
	logger.Info("export ready",
		slog.Int("bytes", len(doc.Data)),
		slog.Int("incomplete", len(result.Incomplete())),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *ExportBuildJob) fail(ctx context.Context, base export.Artifact, cause error) {
	base.Status = export.StatusFailed
	base.Error = cause.Error()
	if err := j.Store.Put(ctx, base); err != nil {
		j.log().Warn("record export failure", slog.String("export_id", base.ID), slog.Any("error", err))
	}
}

func (j *ExportBuildJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ExportBuildJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskExportBuild))
	}
	return slog.Default().With(slog.String("job", TaskExportBuild))
}
