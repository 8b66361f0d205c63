package jobs

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusDrafted   Status = "drafted"
	StatusQueued    Status = "queued"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusDrafted,
	StatusQueued,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return slices.Clone(allStatuses)
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether no automatic transition leaves the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Outcome records the result of one step.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// HaltSkipDetail is the error detail recorded on steps that were never run
// because an earlier step failed under halt-on-error.
const HaltSkipDetail = "skipped after halt on error"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidID reports whether id is usable as a job identifier and file name.
func ValidID(id string) bool {
	if id == "." || id == ".." || strings.HasPrefix(id, ".") {
		return false
	}
	return idPattern.MatchString(id)
}

// Args is the input snapshot captured when a job or step is created.
type Args struct {
	SourcePaths []string                  `json:"source_paths,omitempty"`
	TargetPath  string                    `json:"target_path,omitempty"`
	OutputPath  string                    `json:"output_path,omitempty"`
	Options     map[string]map[string]any `json:"options,omitempty"`
	Settings    map[string]any            `json:"settings,omitempty"`
}

// Clone returns a deep copy so later mutations of the source cannot reach
// a persisted snapshot.
func (a Args) Clone() Args {
	out := Args{
		SourcePaths: slices.Clone(a.SourcePaths),
		TargetPath:  a.TargetPath,
		OutputPath:  a.OutputPath,
	}
	if len(a.Options) > 0 {
		out.Options = make(map[string]map[string]any, len(a.Options))
		for name, opts := range a.Options {
			out.Options[name] = maps.Clone(opts)
		}
	}
	if len(a.Settings) > 0 {
		out.Settings = maps.Clone(a.Settings)
	}
	return out
}

// Merge fills empty fields of a from defaults and returns the result.
func (a Args) Merge(defaults Args) Args {
	out := a.Clone()
	if len(out.SourcePaths) == 0 {
		out.SourcePaths = slices.Clone(defaults.SourcePaths)
	}
	if out.TargetPath == "" {
		out.TargetPath = defaults.TargetPath
	}
	if out.OutputPath == "" {
		out.OutputPath = defaults.OutputPath
	}
	for name, opts := range defaults.Options {
		if out.Options == nil {
			out.Options = make(map[string]map[string]any, len(defaults.Options))
		}
		if _, ok := out.Options[name]; !ok {
			out.Options[name] = maps.Clone(opts)
		}
	}
	for key, value := range defaults.Settings {
		if out.Settings == nil {
			out.Settings = make(map[string]any, len(defaults.Settings))
		}
		if _, ok := out.Settings[key]; !ok {
			out.Settings[key] = value
		}
	}
	return out
}

// Step is one configured processor chain invocation within a job.
type Step struct {
	Index      int        `json:"index"`
	Processors []string   `json:"processors"`
	Args       Args       `json:"args"`
	Outcome    Outcome    `json:"outcome"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SetOutcome records the result and the finish time.
func (s *Step) SetOutcome(outcome Outcome, detail string, at time.Time) {
	s.Outcome = outcome
	s.Error = detail
	finished := at.UTC()
	s.FinishedAt = &finished
}

// Reset returns the step to pending, clearing run metadata.
func (s *Step) Reset() {
	s.Outcome = OutcomePending
	s.Error = ""
	s.StartedAt = nil
	s.FinishedAt = nil
}

// Job is a persisted unit of batch work.
type Job struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Args      Args      `json:"args"`
	Steps     []Step    `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch stamps UpdatedAt.
func (j *Job) Touch(at time.Time) {
	j.UpdatedAt = at.UTC()
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Args = j.Args.Clone()
	out.Steps = make([]Step, len(j.Steps))
	for i, step := range j.Steps {
		step.Processors = slices.Clone(step.Processors)
		step.Args = step.Args.Clone()
		if step.StartedAt != nil {
			started := *step.StartedAt
			step.StartedAt = &started
		}
		if step.FinishedAt != nil {
			finished := *step.FinishedAt
			step.FinishedAt = &finished
		}
		out.Steps[i] = step
	}
	return &out
}

// Reindex renumbers steps to match their position.
func (j *Job) Reindex() {
	for i := range j.Steps {
		j.Steps[i].Index = i
	}
}

// Started reports whether any step has begun or finished execution.
func (j *Job) Started() bool {
	for _, step := range j.Steps {
		if step.StartedAt != nil || step.Outcome != OutcomePending {
			return true
		}
	}
	return false
}

// CountOutcomes tallies steps per outcome.
func (j *Job) CountOutcomes() map[Outcome]int {
	counts := map[Outcome]int{
		OutcomePending: 0,
		OutcomeSuccess: 0,
		OutcomeFailed:  0,
	}
	for _, step := range j.Steps {
		counts[step.Outcome]++
	}
	return counts
}

// Resolve derives the job status from step outcomes: completed when every
// step succeeded, failed when any step failed and none is pending, and
// queued otherwise. An empty step list resolves to queued.
func Resolve(steps []Step) Status {
	if len(steps) == 0 {
		return StatusQueued
	}
	failed := false
	for _, step := range steps {
		switch step.Outcome {
		case OutcomeSuccess:
		case OutcomeFailed:
			failed = true
		default:
			return StatusQueued
		}
	}
	if failed {
		return StatusFailed
	}
	return StatusCompleted
}
