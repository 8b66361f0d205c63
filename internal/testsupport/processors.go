package testsupport

import (
	"context"
	"sync"
	"testing"

	"faceswap/internal/processors"
)

// FakeProcessor is a scriptable processors.Processor for tests.
type FakeProcessor struct {
	ProcessorName string

	mu           sync.Mutex
	ready        bool
	detail       string
	processErr   error
	hook         func(context.Context, *processors.Frame) error
	preChecks    int
	processCalls int
	clearCalls   int
	builds       int
}

// NewFakeProcessor returns a ready processor that appends its name to the
// frame trail.
func NewFakeProcessor(name string) *FakeProcessor {
	return &FakeProcessor{ProcessorName: name, ready: true}
}

// Factory returns a registry factory yielding this instance.
func (f *FakeProcessor) Factory() processors.Factory {
	return func(processors.Env) (processors.Processor, error) {
		f.mu.Lock()
		f.builds++
		f.mu.Unlock()
		return f, nil
	}
}

// SetReady scripts the pre-check result.
func (f *FakeProcessor) SetReady(ready bool, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = ready
	f.detail = detail
}

// SetProcessError scripts the inference result; nil restores success.
func (f *FakeProcessor) SetProcessError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processErr = err
}

// SetProcessHook installs a callback run at the start of every Process call.
// A non-nil return fails the call.
func (f *FakeProcessor) SetProcessHook(hook func(context.Context, *processors.Frame) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = hook
}

func (f *FakeProcessor) Name() string { return f.ProcessorName }

func (f *FakeProcessor) PreCheck(context.Context) processors.Health {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preChecks++
	if f.ready {
		return processors.Healthy(f.ProcessorName)
	}
	return processors.Unhealthy(f.ProcessorName, f.detail)
}

func (f *FakeProcessor) Process(ctx context.Context, frame *processors.Frame) (*processors.Frame, error) {
	f.mu.Lock()
	f.processCalls++
	hook := f.hook
	err := f.processErr
	f.mu.Unlock()

	if hook != nil {
		if hookErr := hook(ctx, frame); hookErr != nil {
			return nil, hookErr
		}
	}
	if err != nil {
		return nil, err
	}
	frame.Trail = append(frame.Trail, f.ProcessorName)
	return frame, nil
}

func (f *FakeProcessor) ClearInferencePool() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
}

// PreCheckCalls reports how many pre-checks ran.
func (f *FakeProcessor) PreCheckCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.preChecks
}

// ProcessCalls reports how many times Process ran.
func (f *FakeProcessor) ProcessCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processCalls
}

// ClearCalls reports how many times the inference pool was cleared.
func (f *FakeProcessor) ClearCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clearCalls
}

// Builds reports how many times the factory constructed this processor.
func (f *FakeProcessor) Builds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builds
}

// NewRegistry builds a registry holding only the given fakes.
func NewRegistry(t testing.TB, fakes ...*FakeProcessor) *processors.Registry {
	t.Helper()
	registry := processors.NewRegistry(processors.Env{})
	for _, fake := range fakes {
		if err := registry.Register(fake.ProcessorName, fake.Factory()); err != nil {
			t.Fatalf("register %s: %v", fake.ProcessorName, err)
		}
	}
	return registry
}
