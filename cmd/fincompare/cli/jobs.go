package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/fincompare/fincompare/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers against the worker's Redis database.
func NewJobsCLI(redisAddr string, redisDB int) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr, DB: redisDB}
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// TriggerDirectorySync enqueues a directory sync for path.
func (c *JobsCLI) TriggerDirectorySync(ctx context.Context, path string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := jobs.NewDirectorySyncTask(path)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Failed    int
}

// InspectQueues reports counts for the export and default queues. Queues that
// were never used report zeros.
func (c *JobsCLI) InspectQueues(ctx context.Context) ([]QueueStats, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	out := make([]QueueStats, 0, 2)
	for _, queue := range []string{jobs.QueueExports, jobs.QueueDefault} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats := QueueStats{Queue: queue}
		info, err := c.inspector.GetQueueInfo(queue)
		switch {
		case errors.Is(err, asynq.ErrQueueNotFound):
		case err != nil:
			return nil, err
		default:
			stats.Pending = info.Pending
			stats.Active = info.Active
			stats.Scheduled = info.Scheduled
			stats.Retry = info.Retry
			stats.Failed = info.Failed
		}
		out = append(out, stats)
	}
	return out, nil
}

// ListScheduled returns scheduled task infos from the default queue.
func (c *JobsCLI) ListScheduled(size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

func printQueueStats(w io.Writer, stats []QueueStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tFAILED")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Failed)
	}
	return tw.Flush()
}

func newJobsCommand(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	withCLI := func(run func(cmd *cobra.Command, c *JobsCLI, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			c := NewJobsCLI(cfg.RedisAddr, cfg.RedisDB)
			defer func() { _ = c.Close() }()
			return run(cmd, c, args)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show queue counts",
		RunE: withCLI(func(cmd *cobra.Command, c *JobsCLI, _ []string) error {
			stats, err := c.InspectQueues(cmd.Context())
			if err != nil {
				return err
			}
			return printQueueStats(cmd.OutOrStdout(), stats)
		}),
	})

	var size int
	scheduled := &cobra.Command{
		Use:   "scheduled",
		Short: "List scheduled tasks on the default queue",
		RunE: withCLI(func(cmd *cobra.Command, c *JobsCLI, _ []string) error {
			tasks, err := c.ListScheduled(size)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		}),
	}
	scheduled.Flags().IntVar(&size, "size", 10, "page size")
	cmd.AddCommand(scheduled)

	cmd.AddCommand(&cobra.Command{
		Use:   "sync-directory <file>",
		Short: "Enqueue a directory sync from a corp code file",
		Args:  cobra.ExactArgs(1),
		RunE: withCLI(func(cmd *cobra.Command, c *JobsCLI, args []string) error {
			info, err := c.TriggerDirectorySync(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s\n", info.ID, info.Queue)
			return nil
		}),
	})
	return cmd
}
