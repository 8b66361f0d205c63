package logging

import (
	"context"
	"log/slog"

	"faceswap/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for job identifiers.
	FieldJobID = "job_id"
	// FieldStepIndex is the standardized structured logging key for zero-based step indexes.
	FieldStepIndex = "step_index"
	// FieldProcessor is the standardized structured logging key for processor names.
	FieldProcessor = "processor"
	// FieldAppContext is the standardized structured logging key for the invocation origin.
	FieldAppContext = "app_context"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint is a short operator-facing next step.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the services taxonomy kind of an error.
	FieldErrorKind = "error_kind"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if idx, ok := services.StepIndexFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldStepIndex, idx))
	}
	if origin, ok := services.AppContextFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAppContext, origin))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
