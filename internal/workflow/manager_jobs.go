package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"faceswap/internal/jobs"
	"faceswap/internal/logging"
	"faceswap/internal/services"
	"faceswap/internal/state"
)

// snapshotSettings are copied from the configuration view into each step.
var snapshotSettings = []string{
	state.KeyExecutionProviders,
	state.KeyExecutionThreads,
	state.KeyOutputImageQuality,
	state.KeyOutputVideoEncoder,
	state.KeyOutputVideoPreset,
	state.KeyOutputVideoQuality,
}

// CreateJob allocates a drafted job with no steps. An empty id is replaced
// with a random UUID. Missing paths fall back to the scope's settings; a
// target path is mandatory.
func (m *Manager) CreateJob(ctx context.Context, id string, args jobs.Args) (*jobs.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	if !jobs.ValidID(id) {
		return nil, services.InvalidArgument(component, "create job", fmt.Sprintf("invalid job id %q", id))
	}

	view := m.Settings(ctx)
	jobArgs := args.Clone()
	if jobArgs.TargetPath == "" {
		jobArgs.TargetPath, _ = view.String(state.KeyTargetPath)
	}
	if len(jobArgs.SourcePaths) == 0 {
		jobArgs.SourcePaths, _ = view.Strings(state.KeySourcePaths)
	}
	if jobArgs.OutputPath == "" {
		jobArgs.OutputPath, _ = view.String(state.KeyOutputPath)
	}
	jobArgs.TargetPath = strings.TrimSpace(jobArgs.TargetPath)
	if jobArgs.TargetPath == "" {
		return nil, services.InvalidArgument(component, "create job", "target path is required")
	}

	now := m.now().UTC()
	job := &jobs.Job{
		ID:        id,
		Status:    jobs.StatusDrafted,
		Args:      jobArgs,
		Steps:     []jobs.Step{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Create(job); err != nil {
		return nil, err
	}
	m.jobLogger(ctx, job.ID).Info("job created",
		logging.String(logging.FieldEventType, "job_created"),
		logging.String("target_path", job.Args.TargetPath),
	)
	return job, nil
}

// AddStep appends a step to a drafted job.
func (m *Manager) AddStep(ctx context.Context, jobID string, processorNames []string, args jobs.Args) (jobs.Step, error) {
	job, err := m.draftedJob(jobID, "add step")
	if err != nil {
		return jobs.Step{}, err
	}
	step, err := m.buildStep(ctx, job, processorNames, args, "add step")
	if err != nil {
		return jobs.Step{}, err
	}
	step.Index = len(job.Steps)
	job.Steps = append(job.Steps, step)
	if err := m.saveDraft(job); err != nil {
		return jobs.Step{}, err
	}
	m.jobLogger(ctx, job.ID).Info("step added",
		logging.String(logging.FieldEventType, "step_added"),
		logging.StepIndex(step.Index),
		logging.Strings("processors", step.Processors),
	)
	return step, nil
}

// InsertStep places a new step at index, shifting later steps back.
func (m *Manager) InsertStep(ctx context.Context, jobID string, index int, processorNames []string, args jobs.Args) (jobs.Step, error) {
	job, err := m.draftedJob(jobID, "insert step")
	if err != nil {
		return jobs.Step{}, err
	}
	if index < 0 || index > len(job.Steps) {
		return jobs.Step{}, services.InvalidArgument(component, "insert step", fmt.Sprintf("step index %d out of range 0..%d", index, len(job.Steps)))
	}
	step, err := m.buildStep(ctx, job, processorNames, args, "insert step")
	if err != nil {
		return jobs.Step{}, err
	}
	job.Steps = slices.Insert(job.Steps, index, step)
	job.Reindex()
	if err := m.saveDraft(job); err != nil {
		return jobs.Step{}, err
	}
	m.jobLogger(ctx, job.ID).Info("step inserted",
		logging.String(logging.FieldEventType, "step_inserted"),
		logging.StepIndex(index),
	)
	return job.Steps[index], nil
}

// RemixStep appends a step whose target is the output of step index.
func (m *Manager) RemixStep(ctx context.Context, jobID string, index int, processorNames []string, args jobs.Args) (jobs.Step, error) {
	job, err := m.draftedJob(jobID, "remix step")
	if err != nil {
		return jobs.Step{}, err
	}
	if index < 0 || index >= len(job.Steps) {
		return jobs.Step{}, services.InvalidArgument(component, "remix step", fmt.Sprintf("step index %d out of range", index))
	}
	output := strings.TrimSpace(job.Steps[index].Args.OutputPath)
	if output == "" {
		return jobs.Step{}, services.InvalidArgument(component, "remix step", fmt.Sprintf("step %d has no output path to remix", index))
	}
	args = args.Clone()
	args.TargetPath = output
	return m.AddStep(ctx, jobID, processorNames, args)
}

// RemoveStep deletes the step at index and renumbers the rest.
func (m *Manager) RemoveStep(ctx context.Context, jobID string, index int) error {
	job, err := m.draftedJob(jobID, "remove step")
	if err != nil {
		return err
	}
	if index < 0 || index >= len(job.Steps) {
		return services.InvalidArgument(component, "remove step", fmt.Sprintf("step index %d out of range", index))
	}
	job.Steps = slices.Delete(job.Steps, index, index+1)
	job.Reindex()
	if err := m.saveDraft(job); err != nil {
		return err
	}
	m.jobLogger(ctx, job.ID).Info("step removed",
		logging.String(logging.FieldEventType, "step_removed"),
		logging.StepIndex(index),
	)
	return nil
}

// SubmitJob moves a drafted job with at least one step to queued.
func (m *Manager) SubmitJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	job, err := m.draftedJob(jobID, "submit job")
	if err != nil {
		return nil, err
	}
	if len(job.Steps) == 0 {
		return nil, services.InvalidState(component, "submit job", fmt.Sprintf("job %s has no steps", job.ID))
	}
	if err := m.transition(job, jobs.StatusDrafted, jobs.StatusQueued); err != nil {
		return nil, err
	}
	m.jobLogger(ctx, job.ID).Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.Int("steps", len(job.Steps)),
	)
	return job, nil
}

// UnsubmitJob returns a queued job to drafted when none of its steps has
// started and no run holds it.
func (m *Manager) UnsubmitJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	lock, err := m.acquireRunLock(jobID, "unsubmit job")
	if err != nil {
		return nil, err
	}
	defer lock.release()

	job, err := m.store.Read(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != jobs.StatusQueued {
		return nil, services.InvalidState(component, "unsubmit job", fmt.Sprintf("job %s is %s, not queued", job.ID, job.Status))
	}
	if job.Started() {
		return nil, services.InvalidState(component, "unsubmit job", fmt.Sprintf("job %s has already started", job.ID))
	}
	if err := m.transition(job, jobs.StatusQueued, jobs.StatusDrafted); err != nil {
		return nil, err
	}
	m.jobLogger(ctx, job.ID).Info("job unsubmitted", logging.String(logging.FieldEventType, "job_unsubmitted"))
	return job, nil
}

// DeleteJob removes a drafted or terminal job. Queued jobs are in flight and
// must be unsubmitted first.
func (m *Manager) DeleteJob(ctx context.Context, jobID string) error {
	job, err := m.store.Read(jobID)
	if err != nil {
		return err
	}
	if job.Status == jobs.StatusQueued {
		return services.InvalidState(component, "delete job", fmt.Sprintf("job %s is queued; unsubmit it first", job.ID))
	}
	if err := m.store.Delete(job.ID, job.Status); err != nil {
		return err
	}
	m.jobLogger(ctx, job.ID).Info("job deleted",
		logging.String(logging.FieldEventType, "job_deleted"),
		logging.String("status", string(job.Status)),
	)
	return nil
}

func (m *Manager) draftedJob(jobID, operation string) (*jobs.Job, error) {
	job, err := m.store.Read(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != jobs.StatusDrafted {
		return nil, services.InvalidState(component, operation, fmt.Sprintf("job %s is %s; steps can only change while drafted", job.ID, job.Status))
	}
	return job, nil
}

// buildStep snapshots processors and arguments for a new step. Nothing is
// persisted here, so validation failures leave the job unchanged.
func (m *Manager) buildStep(ctx context.Context, job *jobs.Job, processorNames []string, args jobs.Args, operation string) (jobs.Step, error) {
	view := m.Settings(ctx)
	names := normalizeNames(processorNames)
	if len(names) == 0 {
		defaults, _ := view.Strings(state.KeyProcessors)
		names = normalizeNames(defaults)
	}
	if len(names) == 0 {
		return jobs.Step{}, services.InvalidArgument(component, operation, "at least one processor is required")
	}
	if err := m.registry.Validate(names); err != nil {
		return jobs.Step{}, err
	}

	snapshot := args.Merge(job.Args)
	for _, name := range names {
		if _, ok := snapshot.Options[name]; ok {
			continue
		}
		opts, ok := view.Get(state.ProcessorOptionsKey(name)).(map[string]any)
		if !ok || len(opts) == 0 {
			continue
		}
		if snapshot.Options == nil {
			snapshot.Options = make(map[string]map[string]any)
		}
		snapshot.Options[name] = opts
	}
	for _, key := range snapshotSettings {
		value, ok := view.Lookup(key)
		if !ok {
			continue
		}
		if snapshot.Settings == nil {
			snapshot.Settings = make(map[string]any)
		}
		if _, exists := snapshot.Settings[key]; !exists {
			snapshot.Settings[key] = value
		}
	}
	if strings.TrimSpace(snapshot.TargetPath) == "" {
		return jobs.Step{}, services.InvalidArgument(component, operation, "target path is required")
	}

	return jobs.Step{
		Processors: names,
		Args:       snapshot,
		Outcome:    jobs.OutcomePending,
	}, nil
}

func (m *Manager) saveDraft(job *jobs.Job) error {
	job.Touch(m.now())
	return m.store.Update(job)
}

// transition moves job between partitions and refreshes the record so the
// stored status matches its location.
func (m *Manager) transition(job *jobs.Job, from, to jobs.Status) error {
	if err := m.store.Move(job.ID, from, to); err != nil {
		return err
	}
	job.Status = to
	job.Touch(m.now())
	return m.store.Update(job)
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out
}
