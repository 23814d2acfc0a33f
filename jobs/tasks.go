package jobs

import (
	jobmetrics "github.com/fincompare/fincompare/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueExports holds export rendering tasks.
	QueueExports = "exports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)
