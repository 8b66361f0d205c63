package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"faceswap/internal/history"
	"faceswap/internal/jobs"
	"faceswap/internal/logging"
	"faceswap/internal/services"
	"faceswap/internal/state"
)

// RunJob executes the pending steps of a queued job in index order and
// resolves its terminal status. Processor failures are recorded on the
// steps and reflected in the returned job, not returned as errors. When ctx
// is cancelled the run stops at the next step boundary, the job stays queued
// and ctx's error is returned alongside it.
func (m *Manager) RunJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	lock, err := m.acquireRunLock(jobID, "run job")
	if err != nil {
		return nil, err
	}
	defer lock.release()
	return m.runLocked(ctx, jobID)
}

// RetryJob resets the failed steps of a failed job to pending, queues it
// again and runs it. Successful steps are not executed again.
func (m *Manager) RetryJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	lock, err := m.acquireRunLock(jobID, "retry job")
	if err != nil {
		return nil, err
	}
	defer lock.release()

	job, err := m.store.Read(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != jobs.StatusFailed {
		return nil, services.InvalidState(component, "retry job", fmt.Sprintf("job %s is %s, only failed jobs can be retried", job.ID, job.Status))
	}

	reset := 0
	for i := range job.Steps {
		if job.Steps[i].Outcome == jobs.OutcomeFailed {
			job.Steps[i].Reset()
			reset++
		}
	}
	job.Touch(m.now())
	if err := m.store.Update(job); err != nil {
		return nil, err
	}
	if err := m.transition(job, jobs.StatusFailed, jobs.StatusQueued); err != nil {
		return nil, err
	}
	m.jobLogger(ctx, job.ID).Info("job requeued for retry",
		logging.String(logging.FieldEventType, "job_retry"),
		logging.Int("reset_steps", reset),
	)
	return m.runLocked(ctx, jobID)
}

// RunJobs runs every queued job in creation order. It reports true only when
// at least one job ran and every job completed.
func (m *Manager) RunJobs(ctx context.Context) (bool, error) {
	return m.drain(ctx, jobs.StatusQueued, m.RunJob, nil)
}

// RunQueued behaves like RunJobs and calls onFinish with the record of every
// job that ran to a resting status.
func (m *Manager) RunQueued(ctx context.Context, onFinish func(context.Context, *jobs.Job)) (bool, error) {
	return m.drain(ctx, jobs.StatusQueued, m.RunJob, onFinish)
}

// RetryJobs retries every failed job in creation order. It reports true only
// when at least one job was retried and every job completed.
func (m *Manager) RetryJobs(ctx context.Context) (bool, error) {
	return m.drain(ctx, jobs.StatusFailed, m.RetryJob, nil)
}

func (m *Manager) drain(ctx context.Context, status jobs.Status, run func(context.Context, string) (*jobs.Job, error), onFinish func(context.Context, *jobs.Job)) (bool, error) {
	pending, err := m.collect(status)
	if err != nil {
		return false, err
	}
	if len(pending) == 0 {
		return false, nil
	}
	allCompleted := true
	for _, job := range pending {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		result, err := run(ctx, job.ID)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false, err
			}
			if !services.IsStructural(err) {
				return false, err
			}
			// Another caller moved or is running the job; report and continue.
			m.jobLogger(ctx, job.ID).Warn("job skipped",
				logging.String(logging.FieldEventType, "job_skipped"),
				logging.ErrorKind(err),
				logging.Error(err),
			)
			allCompleted = false
			continue
		}
		if result.Status != jobs.StatusCompleted {
			allCompleted = false
		}
		if onFinish != nil {
			onFinish(ctx, result)
		}
	}
	return allCompleted, nil
}

func (m *Manager) collect(status jobs.Status) ([]*jobs.Job, error) {
	var out []*jobs.Job
	for job, err := range m.store.List(status) {
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Manager) runLocked(ctx context.Context, jobID string) (*jobs.Job, error) {
	job, err := m.store.Read(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != jobs.StatusQueued {
		return nil, services.InvalidState(component, "run job", fmt.Sprintf("job %s is %s, not queued", job.ID, job.Status))
	}
	if len(job.Steps) == 0 {
		return nil, services.InvalidState(component, "run job", fmt.Sprintf("job %s has no steps", job.ID))
	}

	haltOnError, _ := m.Settings(ctx).Bool(state.KeyHaltOnError)
	origin := string(state.ScopeFromContext(ctx))
	ctx = services.WithJobID(ctx, job.ID)
	runID := m.beginRun(ctx, job.ID, origin)
	ctx = services.WithRequestID(ctx, runID)
	logger := m.jobLogger(ctx, job.ID)
	logger.Info("job run started",
		logging.String(logging.FieldEventType, "job_run_start"),
		logging.Int("steps", len(job.Steps)),
		logging.Bool("halt_on_error", haltOnError),
	)

	halted := false
	var stopErr error
	for i := range job.Steps {
		step := &job.Steps[i]
		switch step.Outcome {
		case jobs.OutcomeSuccess:
			continue
		case jobs.OutcomeFailed:
			if haltOnError {
				halted = true
			}
			continue
		}
		if halted {
			m.skipStep(ctx, job, i, runID)
			continue
		}
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}
		failed, err := m.executeStep(ctx, job, i, runID)
		if err != nil {
			m.setLastError(err)
			m.finishRun(ctx, runID, string(jobs.StatusQueued), services.Summary(err))
			return job, err
		}
		if failed && haltOnError {
			halted = true
		}
	}

	if halted {
		job.Touch(m.now())
		if err := m.store.Update(job); err != nil {
			m.setLastError(err)
			m.finishRun(ctx, runID, string(jobs.StatusQueued), services.Summary(err))
			return job, err
		}
	}

	if stopErr != nil {
		logger.Info("job run interrupted",
			logging.String(logging.FieldEventType, "job_run_cancelled"),
			logging.Int("pending_steps", job.CountOutcomes()[jobs.OutcomePending]),
		)
		m.finishRun(ctx, runID, string(jobs.StatusQueued), stopErr.Error())
		m.setLastJob(job)
		return job, stopErr
	}

	status := jobs.Resolve(job.Steps)
	if status.Terminal() {
		if err := m.transition(job, jobs.StatusQueued, status); err != nil {
			m.setLastError(err)
			m.finishRun(ctx, runID, string(jobs.StatusQueued), services.Summary(err))
			return job, err
		}
	}
	m.logOutcome(logger, job)
	m.finishRun(ctx, runID, string(job.Status), FailureSummary(job))
	m.setLastJob(job)
	return job, nil
}

// executeStep runs one step and persists its outcome. The returned bool is
// true when the step failed; an error means persistence failed.
func (m *Manager) executeStep(ctx context.Context, job *jobs.Job, index int, runID string) (bool, error) {
	step := &job.Steps[index]
	stepCtx := services.WithStepIndex(ctx, index)
	logger := m.jobLogger(stepCtx, job.ID)

	started := m.now().UTC()
	step.Reset()
	step.StartedAt = &started
	job.Touch(started)
	if err := m.store.Update(job); err != nil {
		return false, err
	}
	logger.Info("step started",
		logging.String(logging.FieldEventType, "step_start"),
		logging.Strings("processors", step.Processors),
	)

	// The step in flight always finishes; cancellation is observed between steps.
	result, runErr := m.runner.RunStep(context.WithoutCancel(stepCtx), *step)
	finished := m.now().UTC()

	failed := runErr != nil
	if failed {
		step.SetOutcome(jobs.OutcomeFailed, m.classifyStepFailure(step, runErr), finished)
		m.logStepFailure(logger, step, runErr)
	} else {
		step.SetOutcome(jobs.OutcomeSuccess, "", finished)
		logger.Info("step completed",
			logging.String(logging.FieldEventType, "step_complete"),
			logging.Strings("applied", result.Applied),
			logging.Duration("elapsed", finished.Sub(started)),
		)
	}
	job.Touch(finished)
	if err := m.store.Update(job); err != nil {
		return failed, err
	}
	m.recordStep(ctx, runID, job.ID, *step, finished.Sub(started))
	return failed, nil
}

// skipStep marks a pending step failed without running it.
func (m *Manager) skipStep(ctx context.Context, job *jobs.Job, index int, runID string) {
	step := &job.Steps[index]
	step.SetOutcome(jobs.OutcomeFailed, jobs.HaltSkipDetail, m.now())
	m.jobLogger(services.WithStepIndex(ctx, index), job.ID).Info("step skipped",
		logging.String(logging.FieldEventType, "step_skipped"),
		logging.String("reason", jobs.HaltSkipDetail),
	)
	m.recordStep(ctx, runID, job.ID, *step, 0)
}

func (m *Manager) logOutcome(logger *slog.Logger, job *jobs.Job) {
	counts := job.CountOutcomes()
	attrs := []logging.Attr{
		logging.String("status", string(job.Status)),
		logging.Int("steps_succeeded", counts[jobs.OutcomeSuccess]),
		logging.Int("steps_failed", counts[jobs.OutcomeFailed]),
	}
	if job.Status == jobs.StatusFailed {
		logging.WarnWithContext(logger, "job failed", "job_failed",
			append(attrs, logging.String(logging.FieldErrorHint, "inspect step errors with `faceswap job show`"))...)
		return
	}
	logger.Info("job finished", logging.Args(append(attrs, logging.String(logging.FieldEventType, "job_finished"))...)...)
}

func (m *Manager) beginRun(ctx context.Context, jobID, origin string) string {
	if m.recorder == nil {
		return ""
	}
	run, err := m.recorder.BeginRun(ctx, jobID, origin)
	if err != nil {
		m.jobLogger(ctx, jobID).Warn("run history unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_begin_failed"),
			logging.String(logging.FieldErrorHint, "check paths.history_db"),
		)
		return ""
	}
	return run.ID
}

func (m *Manager) recordStep(ctx context.Context, runID, jobID string, step jobs.Step, elapsed time.Duration) {
	if m.recorder == nil || runID == "" {
		return
	}
	event := history.StepEvent{
		RunID:      runID,
		JobID:      jobID,
		StepIndex:  step.Index,
		Processors: step.Processors,
		Outcome:    string(step.Outcome),
		Error:      step.Error,
		Duration:   elapsed,
	}
	if err := m.recorder.RecordStep(context.WithoutCancel(ctx), event); err != nil {
		m.jobLogger(ctx, jobID).Warn("failed to record step history",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_step_failed"),
		)
	}
}

func (m *Manager) finishRun(ctx context.Context, runID, status, message string) {
	if m.recorder == nil || runID == "" {
		return
	}
	if err := m.recorder.FinishRun(context.WithoutCancel(ctx), runID, status, message); err != nil {
		m.logger.Warn("failed to finish run history",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_finish_failed"),
		)
	}
}

var _ Recorder = (*history.Store)(nil)
