// Package cli implements sourcingctl, the operator command line.
//
// Command Structure:
//
//	sourcingctl
//	├── jobs list [--status in_progress|completed|failed]
//	├── jobs status ID
//	├── jobs result ID
//	├── jobs export ID -o candidates.xlsx
//	├── jobs delete-cache ID
//	├── queue stats
//	└── queue requeue-stale [--older-than 11m] [--max 100]
//
// Commands talk to Redis directly with the same configuration as the
// gateway and worker processes.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/export"
	"talent-sourcing-service/internal/service"
)

type Jobs interface {
	GetStatus(ctx context.Context, jobID string) (entity.StatusRecord, error)
	GetResult(ctx context.Context, jobID string) ([]byte, error)
	Result(ctx context.Context, jobID string) (entity.JobResult, error)
	ListJobs(ctx context.Context, filter string) (service.JobList, error)
	DeleteJobCache(ctx context.Context, jobID string) bool
}

type QueueOps interface {
	RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error)
	Stats(ctx context.Context) (service.QueueStats, error)
}

// Env is what commands operate on.
type Env struct {
	Jobs             Jobs
	Queue            QueueOps
	VisibilityWindow time.Duration
}

// Opener connects to the backing services. The returned func releases them.
type Opener func(ctx context.Context) (*Env, func(), error)

func BuildCLI(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "sourcingctl",
		Short:         "Operate the talent sourcing job system",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	withEnv := func(fn func(cmd *cobra.Command, env *Env, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			env, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			return fn(cmd, env, args)
		}
	}

	root.AddCommand(buildJobsCommand(withEnv), buildQueueCommand(withEnv))
	return root
}

type envRunner func(fn func(cmd *cobra.Command, env *Env, args []string) error) func(*cobra.Command, []string) error

func buildJobsCommand(withEnv envRunner) *cobra.Command {
	jobs := &cobra.Command{Use: "jobs", Short: "Inspect and manage jobs"}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: withEnv(func(cmd *cobra.Command, env *Env, _ []string) error {
			l, err := env.Jobs.ListJobs(cmd.Context(), status)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), l)
		}),
	}
	list.Flags().StringVar(&status, "status", "", "filter: in_progress, completed, failed")

	statusCmd := &cobra.Command{
		Use:   "status ID",
		Short: "Show a job's status record",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, env *Env, args []string) error {
			rec, err := env.Jobs.GetStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		}),
	}

	result := &cobra.Command{
		Use:   "result ID",
		Short: "Print a completed job's result",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, env *Env, args []string) error {
			raw, err := env.Jobs.GetResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		}),
	}

	var outPath string
	exportCmd := &cobra.Command{
		Use:   "export ID",
		Short: "Write a completed job's candidates to an XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, env *Env, args []string) error {
			res, err := env.Jobs.Result(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			b, err := export.ResultXLSX(res)
			if err != nil {
				return err
			}
			path := outPath
			if path == "" {
				path = fmt.Sprintf("candidates-%s.xlsx", args[0])
			}
			if err := os.WriteFile(path, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d candidates to %s\n", len(res.Candidates), path)
			return err
		}),
	}
	exportCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default candidates-ID.xlsx)")

	deleteCache := &cobra.Command{
		Use:   "delete-cache ID",
		Short: "Delete a job's status and result records",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, env *Env, args []string) error {
			deleted := env.Jobs.DeleteJobCache(cmd.Context(), args[0])
			return printJSON(cmd.OutOrStdout(), map[string]any{"job_id": args[0], "deleted": deleted})
		}),
	}

	jobs.AddCommand(list, statusCmd, result, exportCmd, deleteCache)
	return jobs
}

func buildQueueCommand(withEnv envRunner) *cobra.Command {
	queue := &cobra.Command{Use: "queue", Short: "Inspect the job queue"}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show pending and in-flight deliveries",
		RunE: withEnv(func(cmd *cobra.Command, env *Env, _ []string) error {
			s, err := env.Queue.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		}),
	}

	var (
		olderThan time.Duration
		max       int64
	)
	requeue := &cobra.Command{
		Use:   "requeue-stale",
		Short: "Return deliveries claimed longer than --older-than to the queue",
		RunE: withEnv(func(cmd *cobra.Command, env *Env, _ []string) error {
			window := olderThan
			if window <= 0 {
				window = env.VisibilityWindow
			}
			n, err := env.Queue.RequeueStale(cmd.Context(), window, max)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "requeued %d deliveries\n", n)
			return err
		}),
	}
	requeue.Flags().DurationVar(&olderThan, "older-than", 0, "claim age threshold (default: job timeout plus grace)")
	requeue.Flags().Int64Var(&max, "max", 100, "maximum deliveries to move")

	queue.AddCommand(stats, requeue)
	return queue
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
