package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"faceswap/internal/jobs"
	"faceswap/internal/workflow"
)

type runSpec struct {
	use    string
	short  string
	args   cobra.PositionalArgs
	one    func(*workflow.Manager) func(context.Context, string) (*jobs.Job, error)
	all    func(*workflow.Manager) func(context.Context) (bool, error)
	source jobs.Status
}

func newJobRunCommands(ctx *commandContext) []*cobra.Command {
	specs := []runSpec{
		{
			use:   "run <job-id>",
			short: "Run the pending steps of a queued job",
			args:  cobra.ExactArgs(1),
			one:   func(m *workflow.Manager) func(context.Context, string) (*jobs.Job, error) { return m.RunJob },
		},
		{
			use:   "retry <job-id>",
			short: "Retry the failed steps of a failed job",
			args:  cobra.ExactArgs(1),
			one:   func(m *workflow.Manager) func(context.Context, string) (*jobs.Job, error) { return m.RetryJob },
		},
		{
			use:    "run-all",
			short:  "Run every queued job in creation order",
			args:   cobra.NoArgs,
			all:    func(m *workflow.Manager) func(context.Context) (bool, error) { return m.RunJobs },
			source: jobs.StatusQueued,
		},
		{
			use:    "retry-all",
			short:  "Retry every failed job in creation order",
			args:   cobra.NoArgs,
			all:    func(m *workflow.Manager) func(context.Context) (bool, error) { return m.RetryJobs },
			source: jobs.StatusFailed,
		},
	}

	cmds := make([]*cobra.Command, 0, len(specs))
	for _, spec := range specs {
		cmds = append(cmds, newJobRunCommand(ctx, spec))
	}
	return cmds
}

func newJobRunCommand(ctx *commandContext, spec runSpec) *cobra.Command {
	var halt bool
	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  spec.args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				applyHaltFlag(cmd, rt, halt)
				c := commandCtx(cmd)
				if spec.one != nil {
					return runOne(c, cmd, spec.one(rt.manager), args[0])
				}
				return runAll(c, cmd, rt, spec.all(rt.manager), spec.source)
			})
		},
	}
	cmd.Flags().BoolVar(&halt, "halt-on-error", false, "Fail remaining steps after the first failure")
	return cmd
}

func runOne(ctx context.Context, cmd *cobra.Command, run func(context.Context, string) (*jobs.Job, error), id string) error {
	job, err := run(ctx, id)
	if job != nil {
		renderJob(cmd, job)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Interrupted; job %s stays queued\n", id)
		}
		return err
	}
	if job.Status != jobs.StatusCompleted {
		return fmt.Errorf("job %s %s", job.ID, job.Status)
	}
	return nil
}

func runAll(ctx context.Context, cmd *cobra.Command, rt *runtime, run func(context.Context) (bool, error), source jobs.Status) error {
	pending, err := rt.store.Count(source)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if pending == 0 {
		fmt.Fprintf(out, "No %s jobs\n", source)
		return nil
	}
	ok, err := run(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(out, "All %d job(s) completed\n", pending)
		return nil
	}
	summary := rt.manager.Status(ctx)
	return fmt.Errorf("not every job completed (%d failed, %d queued)",
		summary.JobCounts[jobs.StatusFailed], summary.JobCounts[jobs.StatusQueued])
}
