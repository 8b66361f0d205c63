package processors

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"faceswap/internal/logging"
	"faceswap/internal/services"
)

const component = "processors"

type slot struct {
	once   sync.Once
	proc   Processor
	err    error
	loaded atomic.Bool
}

// Registry maps processor names to factories and caches loaded instances.
type Registry struct {
	env Env

	mu        sync.Mutex
	factories map[string]Factory
	slots     map[string]*slot
}

// NewRegistry creates an empty registry.
func NewRegistry(env Env) *Registry {
	if env.Logger == nil {
		env.Logger = logging.NewNop()
	}
	env.Logger = logging.NewComponentLogger(env.Logger, component)
	return &Registry{
		env:       env,
		factories: make(map[string]Factory),
		slots:     make(map[string]*slot),
	}
}

// Register associates name with a factory. Names are case-insensitive.
func (r *Registry) Register(name string, factory Factory) error {
	key := normalizeName(name)
	if key == "" {
		return services.InvalidArgument(component, "register", "processor name is empty")
	}
	if factory == nil {
		return services.InvalidArgument(component, "register", fmt.Sprintf("processor %s has no factory", key))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[key]; exists {
		return services.InvalidArgument(component, "register", fmt.Sprintf("processor %s already registered", key))
	}
	r.factories[key] = factory
	return nil
}

// Names lists registered processors in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[normalizeName(name)]
	return ok
}

// Validate checks that names is a non-empty list of registered processors
// without duplicates, without loading anything.
func (r *Registry) Validate(names []string) error {
	if len(names) == 0 {
		return services.InvalidArgument(component, "validate", "at least one processor is required")
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		key := normalizeName(name)
		if _, dup := seen[key]; dup {
			return services.InvalidArgument(component, "validate", fmt.Sprintf("processor %s listed twice", key))
		}
		seen[key] = struct{}{}
		if !r.Has(key) {
			return services.NotFound(component, "validate", fmt.Sprintf("unknown processor %q", name))
		}
	}
	return nil
}

// Resolve returns loaded processors for names in order, constructing each at
// most once.
func (r *Registry) Resolve(names []string) ([]Processor, error) {
	out := make([]Processor, 0, len(names))
	for _, name := range names {
		proc, err := r.load(name)
		if err != nil {
			return nil, err
		}
		out = append(out, proc)
	}
	return out, nil
}

func (r *Registry) load(name string) (Processor, error) {
	key := normalizeName(name)
	r.mu.Lock()
	factory, ok := r.factories[key]
	if !ok {
		r.mu.Unlock()
		return nil, services.NotFound(component, "resolve", fmt.Sprintf("unknown processor %q", name))
	}
	s, ok := r.slots[key]
	if !ok {
		s = &slot{}
		r.slots[key] = s
	}
	r.mu.Unlock()

	s.once.Do(func() {
		s.proc, s.err = factory(r.env)
		if s.err == nil && s.proc == nil {
			s.err = fmt.Errorf("factory returned nil")
		}
		if s.err != nil {
			s.err = services.Wrap(services.ErrProcessorFailure, component, "resolve", fmt.Sprintf("load processor %s", key), s.err)
			return
		}
		s.loaded.Store(true)
		r.env.Logger.Debug("processor loaded", logging.Processor(key))
	})
	if s.err != nil {
		// Drop the failed slot so a later call can retry construction.
		r.mu.Lock()
		if r.slots[key] == s {
			delete(r.slots, key)
		}
		r.mu.Unlock()
		return nil, s.err
	}
	return s.proc, nil
}

// PreCheck runs a processor's prerequisite check. Panics are reported as
// unhealthy.
func (r *Registry) PreCheck(ctx context.Context, proc Processor) Health {
	return r.PreCheckFrame(ctx, proc, nil)
}

// PreCheckFrame is PreCheck against the options of the frame about to be
// processed. Processors that do not implement FrameChecker ignore frame.
func (r *Registry) PreCheckFrame(ctx context.Context, proc Processor, frame *Frame) (health Health) {
	if proc == nil {
		return Unhealthy("", "processor is nil")
	}
	defer func() {
		if rec := recover(); rec != nil {
			health = Unhealthy(proc.Name(), fmt.Sprintf("pre-check panicked: %v", rec))
		}
	}()
	if checker, ok := proc.(FrameChecker); ok {
		health = checker.PreCheckFrame(ctx, frame)
	} else {
		health = proc.PreCheck(ctx)
	}
	if health.Name == "" {
		health.Name = proc.Name()
	}
	return health
}

// Invoke runs one unit of work. Any failure, including a panic, is returned
// as a processor failure carrying the processor name.
func (r *Registry) Invoke(ctx context.Context, proc Processor, frame *Frame) (out *Frame, err error) {
	if proc == nil {
		return nil, services.Wrap(services.ErrProcessorFailure, component, "invoke", "processor is nil", nil)
	}
	name := proc.Name()
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = services.Wrap(services.ErrProcessorFailure, component, "invoke", fmt.Sprintf("%s panicked", name), fmt.Errorf("%v", rec))
		}
	}()
	out, err = proc.Process(ctx, frame.Clone())
	if err != nil {
		return nil, services.Wrap(services.ErrProcessorFailure, component, "invoke", fmt.Sprintf("%s failed", name), err)
	}
	if out == nil {
		return nil, services.Wrap(services.ErrProcessorFailure, component, "invoke", fmt.Sprintf("%s returned no frame", name), nil)
	}
	return out, nil
}

// Clear releases cached resources for name. Unknown or never-loaded names
// are ignored.
func (r *Registry) Clear(name string) {
	key := normalizeName(name)
	r.mu.Lock()
	s, ok := r.slots[key]
	r.mu.Unlock()
	if !ok {
		return
	}
	proc := r.loadedProcessor(s)
	if proc == nil {
		return
	}
	proc.ClearInferencePool()
	r.env.Logger.Debug("processor inference pool cleared", logging.Processor(key))
}

// Retain clears every loaded processor whose name is not in keep.
func (r *Registry) Retain(keep []string) {
	normalized := make([]string, 0, len(keep))
	for _, name := range keep {
		normalized = append(normalized, normalizeName(name))
	}
	for _, name := range r.Loaded() {
		if !slices.Contains(normalized, name) {
			r.Clear(name)
		}
	}
}

// ClearAll clears every loaded processor.
func (r *Registry) ClearAll() {
	for _, name := range r.Loaded() {
		r.Clear(name)
	}
}

// Loaded lists processors constructed so far.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	slots := make(map[string]*slot, len(r.slots))
	for name, s := range r.slots {
		slots[name] = s
	}
	r.mu.Unlock()

	names := make([]string, 0, len(slots))
	for name, s := range slots {
		if r.loadedProcessor(s) != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (r *Registry) loadedProcessor(s *slot) Processor {
	if !s.loaded.Load() {
		return nil
	}
	return s.proc
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
