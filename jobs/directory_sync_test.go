package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/fincompare/fincompare/internal/directory"
	jobmetrics "github.com/fincompare/fincompare/internal/jobs"
)

type recordingImporter struct {
	got []directory.Company
	err error
}

func (r *recordingImporter) Import(_ context.Context, companies []directory.Company) (int, error) {
	r.got = companies
	return len(companies), r.err
}

func TestDirectorySyncJobImportsFile(t *testing.T) {
	importer := &recordingImporter{}
	job := NewDirectorySyncJob(importer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.Load = func(path string) ([]directory.Company, error) {
		require.Equal(t, "/data/CORPCODE.xml", path)
		return []directory.Company{{Name: "삼성전자", CorpCode: "00126380"}}, nil
	}

	task, err := NewDirectorySyncTask("/data/CORPCODE.xml")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, importer.got, 1)
}

func TestDirectorySyncJobPropagatesFailures(t *testing.T) {
	importer := &recordingImporter{err: errors.New("db down")}
	job := NewDirectorySyncJob(importer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.Load = func(string) ([]directory.Company, error) { return nil, nil }

	task, err := NewDirectorySyncTask("corp.xml")
	require.NoError(t, err)
	require.EqualError(t, job.Handle(context.Background(), task), "db down")

	require.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskDirectorySync, []byte(`{}`))), asynq.SkipRetry)

	_, err = NewDirectorySyncTask("")
	require.Error(t, err)
}
