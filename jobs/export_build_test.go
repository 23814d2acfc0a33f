package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/fincompare/fincompare/internal/comparison"
	"github.com/fincompare/fincompare/internal/comparison/export"
	jobmetrics "github.com/fincompare/fincompare/internal/jobs"
)

type stubComparer struct {
	result comparison.Result
	err    error
	got    comparison.Request
}

func (s *stubComparer) Compare(_ context.Context, req comparison.Request) (comparison.Result, error) {
	s.got = req
	return s.result, s.err
}

type memoryArtifacts struct {
	mu      sync.Mutex
	history []export.Artifact
}

func (m *memoryArtifacts) Put(_ context.Context, a export.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, a)
	return nil
}

func (m *memoryArtifacts) last() export.Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[len(m.history)-1]
}

func ratio(v float64) *float64 { return &v }

func newJob(cmp Comparer, store ArtifactWriter) *ExportBuildJob {
	return NewExportBuildJob(cmp, store, nil, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestExportBuildJobWritesArtifact(t *testing.T) {
	key := comparison.Key{CorpCode: "00126380", Year: 2023}
	cmp := &stubComparer{result: comparison.Result{
		Entries: map[comparison.Key]*comparison.Entry{key: {CorpCode: key.CorpCode, Year: key.Year}},
		Order:   []comparison.Key{key},
		Summary: []comparison.SummaryRow{{CorpCode: key.CorpCode, Year: key.Year, ROE: ratio(12.5)}},
	}}
	store := &memoryArtifacts{}
	req := comparison.Request{Companies: []comparison.Company{{CorpCode: key.CorpCode}}, Years: []int{2023}}

	task, err := NewExportBuildTask(ExportBuildPayload{ID: "exp-1", Format: export.FormatCSV, Request: req})
	require.NoError(t, err)
	require.Equal(t, TaskExportBuild, task.Type())

	require.NoError(t, newJob(cmp, store).Handle(context.Background(), task))
	require.Equal(t, req, cmp.got)
	require.Len(t, store.history, 2)
	require.Equal(t, export.StatusRunning, store.history[0].Status)

	ready := store.last()
	require.Equal(t, export.StatusReady, ready.Status)
	require.Equal(t, "financial_comparison.csv", ready.Filename)
	require.Contains(t, string(ready.Data), "12.5")
}

func TestExportBuildJobInvalidRequestSkipsRetry(t *testing.T) {
	cmp := &stubComparer{err: fmt.Errorf("%w: no companies", comparison.ErrInvalidRequest)}
	store := &memoryArtifacts{}
	task, err := NewExportBuildTask(ExportBuildPayload{ID: "exp-2"})
	require.NoError(t, err)

	err = newJob(cmp, store).Handle(context.Background(), task)
	require.True(t, errors.Is(err, asynq.SkipRetry))
	require.Equal(t, export.StatusFailed, store.last().Status)
	require.Contains(t, store.last().Error, "no companies")
}

func TestExportBuildJobRejectsBadPayload(t *testing.T) {
	err := newJob(&stubComparer{}, &memoryArtifacts{}).Handle(context.Background(), asynq.NewTask(TaskExportBuild, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	_, err = NewExportBuildTask(ExportBuildPayload{})
	require.Error(t, err)
}

func TestExportBuildJobRequiresDependencies(t *testing.T) {
	var job *ExportBuildJob
	require.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskExportBuild, nil)))
}
