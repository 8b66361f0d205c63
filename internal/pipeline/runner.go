package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"faceswap/internal/fileutil"
	"faceswap/internal/jobs"
	"faceswap/internal/logging"
	"faceswap/internal/processors"
	"faceswap/internal/services"
)

const component = "pipeline"

// Result describes a completed step run.
type Result struct {
	Frame    *processors.Frame
	Applied  []string
	Duration time.Duration
}

// Runner drives a step's processor chain through a registry.
type Runner struct {
	registry *processors.Registry
	logger   *slog.Logger
	copyFile func(src, dst string) error
	now      func() time.Time
}

// NewRunner constructs a Runner.
func NewRunner(registry *processors.Registry, logger *slog.Logger) *Runner {
	return &Runner{
		registry: registry,
		logger:   logging.NewComponentLogger(logger, component),
		copyFile: fileutil.CopyFileVerified,
		now:      time.Now,
	}
}

// FrameFromArgs builds the initial payload from a step's argument snapshot.
func FrameFromArgs(args jobs.Args) *processors.Frame {
	snapshot := args.Clone()
	return &processors.Frame{
		SourcePaths: snapshot.SourcePaths,
		TargetPath:  snapshot.TargetPath,
		OutputPath:  snapshot.OutputPath,
		MediaPath:   snapshot.TargetPath,
		Options:     snapshot.Options,
		Data:        map[string]any{},
	}
}

// RunStep executes step. Pre-check and inference failures return errors
// marked services.ErrProcessorFailure; if any pre-check fails no processor
// runs.
func (r *Runner) RunStep(ctx context.Context, step jobs.Step) (Result, error) {
	start := r.now()
	logger := logging.WithContext(ctx, r.logger)

	if strings.TrimSpace(step.Args.TargetPath) == "" {
		return Result{}, services.Wrap(services.ErrProcessorFailure, component, "run step", "step has no target path", nil)
	}

	r.registry.Retain(step.Processors)
	procs, err := r.registry.Resolve(step.Processors)
	if err != nil {
		return Result{}, services.Wrap(services.ErrProcessorFailure, component, "resolve", "processor unavailable", err)
	}

	frame := FrameFromArgs(step.Args)
	for _, proc := range procs {
		health := r.registry.PreCheckFrame(ctx, proc, frame)
		if !health.Ready {
			detail := health.Detail
			if detail == "" {
				detail = "prerequisites not met"
			}
			logging.WarnWithContext(logger, "processor pre-check failed", "processor_precheck_failed",
				logging.Processor(proc.Name()),
				logging.String("detail", detail),
				logging.String(logging.FieldErrorHint, "provision the processor models under paths.models_dir"),
			)
			return Result{}, services.Wrap(services.ErrProcessorFailure, component, "pre-check",
				fmt.Sprintf("%s pre-check failed: %s", proc.Name(), detail), nil)
		}
	}

	applied := make([]string, 0, len(procs))
	for _, proc := range procs {
		procStart := r.now()
		frame, err = r.registry.Invoke(ctx, proc, frame)
		if err != nil {
			return Result{Applied: applied, Duration: r.now().Sub(start)}, err
		}
		applied = append(applied, proc.Name())
		logger.Debug("processor applied",
			logging.Processor(proc.Name()),
			logging.Duration("elapsed", r.now().Sub(procStart)),
		)
	}

	if err := r.finalize(frame); err != nil {
		return Result{Frame: frame, Applied: applied, Duration: r.now().Sub(start)}, err
	}

	return Result{Frame: frame, Applied: applied, Duration: r.now().Sub(start)}, nil
}

// finalize publishes the final artifact at the output path when one is set.
func (r *Runner) finalize(frame *processors.Frame) error {
	output := strings.TrimSpace(frame.OutputPath)
	if output == "" || fileutil.SameFile(output, frame.MediaPath) {
		return nil
	}
	if _, err := os.Stat(frame.MediaPath); err != nil {
		return services.Wrap(services.ErrProcessorFailure, component, "finalize",
			fmt.Sprintf("media %s unavailable", frame.MediaPath), err)
	}
	if err := r.copyFile(frame.MediaPath, output); err != nil {
		return services.Wrap(services.ErrProcessorFailure, component, "finalize",
			fmt.Sprintf("write output %s", output), err)
	}
	return nil
}
