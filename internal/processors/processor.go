package processors

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// Processor is the capability contract every pipeline stage implements.
type Processor interface {
	Name() string
	PreCheck(context.Context) Health
	Process(context.Context, *Frame) (*Frame, error)
	ClearInferencePool()
}

// FrameChecker is implemented by processors whose prerequisites depend on
// the options a step carries, such as a per-step model override.
type FrameChecker interface {
	PreCheckFrame(context.Context, *Frame) Health
}

// Health summarizes whether a processor's prerequisites are satisfied.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Frame is the payload handed from one processor to the next.
type Frame struct {
	SourcePaths []string
	TargetPath  string
	OutputPath  string
	// MediaPath is the artifact the next processor reads. It starts at the
	// target and is advanced by processors that write intermediate files.
	MediaPath string
	Options   map[string]map[string]any
	Data      map[string]any
	Trail     []string
}

// Clone returns a copy whose slices and maps can be mutated independently.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return &Frame{}
	}
	out := &Frame{
		SourcePaths: slices.Clone(f.SourcePaths),
		TargetPath:  f.TargetPath,
		OutputPath:  f.OutputPath,
		MediaPath:   f.MediaPath,
		Data:        maps.Clone(f.Data),
		Trail:       slices.Clone(f.Trail),
	}
	if f.Options != nil {
		out.Options = make(map[string]map[string]any, len(f.Options))
		for name, opts := range f.Options {
			out.Options[name] = maps.Clone(opts)
		}
	}
	if out.Data == nil {
		out.Data = map[string]any{}
	}
	return out
}

// OptionsFor returns the options captured for one processor.
func (f *Frame) OptionsFor(name string) map[string]any {
	if f == nil || f.Options == nil {
		return nil
	}
	return f.Options[name]
}

// Env carries construction inputs shared by every factory.
type Env struct {
	ModelsDir string
	Options   map[string]map[string]any
	Logger    *slog.Logger
}

// Factory constructs a processor instance.
type Factory func(Env) (Processor, error)
