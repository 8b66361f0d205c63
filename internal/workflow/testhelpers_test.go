package workflow_test

import (
	"context"
	"testing"

	"faceswap/internal/config"
	"faceswap/internal/history"
	"faceswap/internal/jobs"
	"faceswap/internal/jobstore"
	"faceswap/internal/logging"
	"faceswap/internal/state"
	"faceswap/internal/testsupport"
	"faceswap/internal/workflow"
)

type harness struct {
	cfg      *config.Config
	store    *jobstore.Store
	history  *history.Store
	settings *state.Store
	swapper  *testsupport.FakeProcessor
	enhancer *testsupport.FakeProcessor
	manager  *workflow.Manager
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		cfg:      cfg,
		store:    testsupport.MustOpenJobStore(t, cfg),
		history:  testsupport.MustOpenHistory(t, cfg),
		settings: state.New(),
		swapper:  testsupport.NewFakeProcessor("face_swapper"),
		enhancer: testsupport.NewFakeProcessor("face_enhancer"),
	}
	state.SeedFromConfig(h.settings.Scope(state.ScopeCLI), cfg)
	state.SeedFromConfig(h.settings.Scope(state.ScopeUI), cfg)
	registry := testsupport.NewRegistry(t, h.swapper, h.enhancer)
	h.manager = workflow.NewManager(h.store, registry, h.settings, logging.NewNop(), workflow.WithRecorder(h.history))
	return h
}

// queuedJob creates, fills and submits a job with one step per chain.
func (h *harness) queuedJob(t *testing.T, id string, chains ...[]string) *jobs.Job {
	t.Helper()
	ctx := context.Background()
	h.draftJob(t, id, chains...)
	job, err := h.manager.SubmitJob(ctx, id)
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	return job
}

func (h *harness) draftJob(t *testing.T, id string, chains ...[]string) *jobs.Job {
	t.Helper()
	ctx := context.Background()
	job, err := h.manager.CreateJob(ctx, id, jobs.Args{TargetPath: "t.mp4", SourcePaths: []string{"s.jpg"}})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	for _, chain := range chains {
		if _, err := h.manager.AddStep(ctx, id, chain, jobs.Args{}); err != nil {
			t.Fatalf("AddStep: %v", err)
		}
	}
	return job
}

func (h *harness) mustGet(t *testing.T, id string) *jobs.Job {
	t.Helper()
	job, err := h.manager.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	return job
}

func outcomes(job *jobs.Job) []jobs.Outcome {
	out := make([]jobs.Outcome, len(job.Steps))
	for i, step := range job.Steps {
		out[i] = step.Outcome
	}
	return out
}
