package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"faceswap/internal/jobs"
	"faceswap/internal/processors"
	"faceswap/internal/state"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Create, edit and run batch jobs",
	}

	jobCmd.AddCommand(newJobCreateCommand(ctx))
	jobCmd.AddCommand(newJobAddStepCommand(ctx))
	jobCmd.AddCommand(newJobInsertStepCommand(ctx))
	jobCmd.AddCommand(newJobRemixStepCommand(ctx))
	jobCmd.AddCommand(newJobRemoveStepCommand(ctx))
	jobCmd.AddCommand(newJobSubmitCommand(ctx))
	jobCmd.AddCommand(newJobUnsubmitCommand(ctx))
	jobCmd.AddCommand(newJobDeleteCommand(ctx))
	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobHistoryCommand(ctx))
	for _, cmd := range newJobRunCommands(ctx) {
		jobCmd.AddCommand(cmd)
	}

	return jobCmd
}

func newJobCreateCommand(ctx *commandContext) *cobra.Command {
	var id string
	var sources []string
	var target, output string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a drafted job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				job, err := rt.manager.CreateJob(commandCtx(cmd), id, jobs.Args{
					SourcePaths: sources,
					TargetPath:  strings.TrimSpace(target),
					OutputPath:  strings.TrimSpace(output),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created job %s\n", job.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Job id (generated when omitted)")
	cmd.Flags().StringArrayVarP(&sources, "source", "s", nil, "Source path (repeatable)")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target path (defaults to the configured target)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path")
	return cmd
}

func newJobAddStepCommand(ctx *commandContext) *cobra.Command {
	var flags stepFlags
	cmd := &cobra.Command{
		Use:   "add-step <job-id>",
		Short: "Append a step to a drafted job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stepArgs, err := flags.args()
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *runtime) error {
				step, err := rt.manager.AddStep(commandCtx(cmd), args[0], flags.processors, stepArgs)
				if err != nil {
					return err
				}
				printStepChange(cmd, "Added", args[0], step)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newJobInsertStepCommand(ctx *commandContext) *cobra.Command {
	var flags stepFlags
	cmd := &cobra.Command{
		Use:   "insert-step <job-id> <index>",
		Short: "Insert a step before the given index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseStepIndex(args[1])
			if err != nil {
				return err
			}
			stepArgs, err := flags.args()
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *runtime) error {
				step, err := rt.manager.InsertStep(commandCtx(cmd), args[0], index, flags.processors, stepArgs)
				if err != nil {
					return err
				}
				printStepChange(cmd, "Inserted", args[0], step)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newJobRemixStepCommand(ctx *commandContext) *cobra.Command {
	var flags stepFlags
	cmd := &cobra.Command{
		Use:   "remix-step <job-id> <index>",
		Short: "Append a step that processes the output of step index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseStepIndex(args[1])
			if err != nil {
				return err
			}
			stepArgs, err := flags.args()
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *runtime) error {
				step, err := rt.manager.RemixStep(commandCtx(cmd), args[0], index, flags.processors, stepArgs)
				if err != nil {
					return err
				}
				printStepChange(cmd, "Remixed", args[0], step)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newJobRemoveStepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-step <job-id> <index>",
		Short: "Remove a step from a drafted job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseStepIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *runtime) error {
				if err := rt.manager.RemoveStep(commandCtx(cmd), args[0], index); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed step %d from job %s\n", index, args[0])
				return nil
			})
		},
	}
}

func newJobSubmitCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "submit [job-id...]",
		Short: "Queue drafted jobs for execution",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("provide job ids or --all")
			}
			return ctx.withRuntime(func(rt *runtime) error {
				ids := args
				if all {
					drafted, err := collectJobIDs(rt, jobs.StatusDrafted)
					if err != nil {
						return err
					}
					ids = drafted
				}
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No drafted jobs")
					return nil
				}
				var failed []string
				for _, id := range ids {
					job, err := rt.manager.SubmitJob(commandCtx(cmd), id)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Submit %s: %v\n", id, err)
						failed = append(failed, id)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s (%d steps)\n", job.ID, len(job.Steps))
				}
				if len(failed) > 0 {
					return fmt.Errorf("failed to submit %d job(s): %s", len(failed), strings.Join(failed, ", "))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Submit every drafted job")
	return cmd
}

func newJobUnsubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unsubmit <job-id>",
		Short: "Return a queued job that has not started to drafted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				job, err := rt.manager.UnsubmitJob(commandCtx(cmd), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s returned to drafted\n", job.ID)
				return nil
			})
		},
	}
}

func newJobDeleteCommand(ctx *commandContext) *cobra.Command {
	var keepHistory bool
	cmd := &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a drafted, completed or failed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				c := commandCtx(cmd)
				if err := rt.manager.DeleteJob(c, args[0]); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Deleted job %s\n", args[0])
				if keepHistory || rt.history == nil {
					return nil
				}
				removed, err := rt.history.DeleteJob(c, args[0])
				if err != nil {
					return fmt.Errorf("delete run history: %w", err)
				}
				if removed > 0 {
					fmt.Fprintf(out, "Removed %d run(s) from history\n", removed)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&keepHistory, "keep-history", false, "Keep the job's run history")
	return cmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *runtime) error {
				var list []*jobs.Job
				for job, err := range rt.manager.ListJobs(commandCtx(cmd), statuses...) {
					if err != nil {
						return err
					}
					list = append(list, job)
				}
				if jsonOutput {
					views := make([]jobView, 0, len(list))
					for _, job := range list {
						views = append(views, newJobView(job))
					}
					return writeJSON(cmd, views)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
					return nil
				}
				printTable(cmd.OutOrStdout(),
					[]column{left("ID"), left("Status"), right("Steps"), left("Target"), left("Created")},
					buildJobListRows(list),
				)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Filter by status (drafted, queued, completed, failed)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job and its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				job, err := rt.manager.GetJob(commandCtx(cmd), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, job)
				}
				renderJob(cmd, job)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newJobHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "history <job-id>",
		Short: "Show recorded run attempts for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if rt.history == nil {
					return errors.New("run history is unavailable; check paths.history_db")
				}
				runs, err := rt.history.Runs(commandCtx(cmd), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No runs recorded for job %s\n", args[0])
					return nil
				}
				printTable(cmd.OutOrStdout(),
					[]column{right("Attempt"), left("Status"), left("Origin"), left("Started"), right("Duration"), left("Error")},
					buildRunRows(runs),
				)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printStepChange(cmd *cobra.Command, verb, jobID string, step jobs.Step) {
	names := make([]string, 0, len(step.Processors))
	for _, name := range step.Processors {
		names = append(names, processors.DisplayName(name))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s step %d to job %s (%s)\n", verb, step.Index, jobID, strings.Join(names, ", "))
}

func parseStatuses(values []string) ([]jobs.Status, error) {
	statuses := make([]jobs.Status, 0, len(values))
	for _, value := range values {
		status, ok := jobs.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func collectJobIDs(rt *runtime, status jobs.Status) ([]string, error) {
	var ids []string
	for job, err := range rt.store.List(status) {
		if err != nil {
			return nil, err
		}
		ids = append(ids, job.ID)
	}
	return ids, nil
}

// applyHaltFlag overrides the cli halt_on_error setting when the flag was given.
func applyHaltFlag(cmd *cobra.Command, rt *runtime, halt bool) {
	if cmd.Flags().Changed("halt-on-error") {
		rt.view().Set(state.KeyHaltOnError, halt)
	}
}
