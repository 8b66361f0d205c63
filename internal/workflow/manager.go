package workflow

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"faceswap/internal/history"
	"faceswap/internal/jobs"
	"faceswap/internal/jobstore"
	"faceswap/internal/logging"
	"faceswap/internal/pipeline"
	"faceswap/internal/processors"
	"faceswap/internal/state"
)

const component = "workflow"

// Recorder journals run attempts. history.Store satisfies it.
type Recorder interface {
	BeginRun(ctx context.Context, jobID, appContext string) (history.Run, error)
	RecordStep(ctx context.Context, event history.StepEvent) error
	FinishRun(ctx context.Context, runID, status, errorMessage string) error
}

// StepRunner executes one step. pipeline.Runner satisfies it.
type StepRunner interface {
	RunStep(ctx context.Context, step jobs.Step) (pipeline.Result, error)
}

// Manager coordinates job transitions and execution.
type Manager struct {
	store    *jobstore.Store
	registry *processors.Registry
	runner   StepRunner
	settings *state.Store
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
	lockDir  string

	mu      sync.Mutex
	active  map[string]struct{}
	lastErr error
	lastJob *jobs.Job
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithRecorder journals every run attempt.
func WithRecorder(recorder Recorder) ManagerOption {
	return func(m *Manager) {
		m.recorder = recorder
	}
}

// WithStepRunner replaces the pipeline runner.
func WithStepRunner(runner StepRunner) ManagerOption {
	return func(m *Manager) {
		if runner != nil {
			m.runner = runner
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a Manager. settings supplies run configuration per
// invocation scope; a nil settings store behaves as empty.
func NewManager(store *jobstore.Store, registry *processors.Registry, settings *state.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if settings == nil {
		settings = state.New()
	}
	m := &Manager{
		store:    store,
		registry: registry,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, component),
		now:      time.Now,
		lockDir:  lockDirFor(store.Root()),
		active:   make(map[string]struct{}),
	}
	m.runner = pipeline.NewRunner(registry, logger)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Settings returns the configuration view for the scope carried by ctx.
func (m *Manager) Settings(ctx context.Context) *state.View {
	return m.settings.For(ctx)
}

// ListJobs lazily yields jobs in the given statuses, or all jobs.
func (m *Manager) ListJobs(ctx context.Context, statuses ...jobs.Status) iter.Seq2[*jobs.Job, error] {
	return m.store.List(statuses...)
}

// GetJob returns the current persisted job.
func (m *Manager) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	return m.store.Read(id)
}

// CountSteps returns the number of steps in a job.
func (m *Manager) CountSteps(ctx context.Context, id string) (int, error) {
	job, err := m.store.Read(id)
	if err != nil {
		return 0, err
	}
	return len(job.Steps), nil
}
