package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/fincompare/fincompare/internal/directory"
	jobmetrics "github.com/fincompare/fincompare/internal/jobs"
)

const (
	// TaskDirectorySync reloads the corporation code list into the directory store.
	TaskDirectorySync = "directory:sync"
)

// DirectorySyncPayload names the corporation code file to import.
type DirectorySyncPayload struct {
	Path string `json:"path"`
}

// NewDirectorySyncTask builds a directory sync task.
func NewDirectorySyncTask(path string) (*asynq.Task, error) {
	if path == "" {
		return nil, errors.New("directory sync: path required")
	}
	body, err := json.Marshal(DirectorySyncPayload{Path: path})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDirectorySync, body, asynq.Queue(QueueDefault), asynq.MaxRetry(2)), nil
}

// DirectoryImporter upserts companies into a directory store.
type DirectoryImporter interface {
	Import(ctx context.Context, companies []directory.Company) (int, error)
}

// DirectorySyncJob handles TaskDirectorySync.
type DirectorySyncJob struct {
	Importer DirectoryImporter
	Load     func(path string) ([]directory.Company, error)
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewDirectorySyncJob constructs the job with the file loader from the directory package.
func NewDirectorySyncJob(importer DirectoryImporter, logger *slog.Logger, metrics *jobmetrics.Metrics) *DirectorySyncJob {
	return &DirectorySyncJob{Importer: importer, Load: directory.LoadFile, Logger: logger, Metrics: metrics}
}

// Handle imports the configured file.
func (j *DirectorySyncJob) Handle(ctx context.Context, task *asynq.Task) (resultErr error) {
	if j == nil || j.Importer == nil || j.Load == nil {
		return errors.New("directory sync: dependencies not configured")
	}
	var payload DirectorySyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.Path == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskDirectorySync)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	companies, err := j.Load(payload.Path)
	if err != nil {
		j.log().Error("load corp codes", slog.String("path", payload.Path), slog.Any("error", err))
		return err
	}
	n, err := j.Importer.Import(ctx, companies)
	if err != nil {
		return err
	}
	j.log().Info("directory synced", slog.String("path", payload.Path), slog.Int("companies", n))
	return nil
}

func (j *DirectorySyncJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DirectorySyncJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDirectorySync))
	}
	return slog.Default().With(slog.String("job", TaskDirectorySync))
}
