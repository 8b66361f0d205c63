package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	"faceswap/internal/jobs"
	"faceswap/internal/logging"
	"faceswap/internal/services"
)

func (m *Manager) classifyStepFailure(step *jobs.Step, err error) string {
	if err == nil {
		return fmt.Sprintf("step %d failed without error detail", step.Index)
	}
	message := strings.TrimSpace(services.Summary(err))
	if message == "" {
		message = fmt.Sprintf("step %d failed", step.Index)
	}
	return message
}

func (m *Manager) logStepFailure(logger *slog.Logger, step *jobs.Step, err error) {
	details := services.Details(err)
	attrs := []logging.Attr{
		logging.Strings("processors", step.Processors),
		logging.String("error_message", step.Error),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorHint, failureHint(details.Kind)),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(err))
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "step_failure"))
	logger.Error("step failed", logging.Args(attrs...)...)
}

func failureHint(kind services.Kind) string {
	switch kind {
	case services.KindProcessorFailure:
		return "check processor models and inputs, then `faceswap job retry`"
	case services.KindConfiguration:
		return "check configuration paths and permissions"
	default:
		return "check logs for details"
	}
}

// FailureSummary condenses failed step detail for the run journal and
// notifications. It is empty unless job failed.
func FailureSummary(job *jobs.Job) string {
	if job.Status != jobs.StatusFailed {
		return ""
	}
	var failed []string
	for _, step := range job.Steps {
		if step.Outcome == jobs.OutcomeFailed {
			failed = append(failed, fmt.Sprintf("step %d: %s", step.Index, step.Error))
		}
	}
	return strings.Join(failed, "; ")
}
