package services

import "context"

type contextKey string

const (
	jobIDKey      contextKey = "job_id"
	stepIndexKey  contextKey = "step_index"
	appContextKey contextKey = "app_context"
	requestIDKey  contextKey = "request_id"
)

// WithJobID annotates context with the job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStepIndex annotates context with the zero-based step index.
func WithStepIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, stepIndexKey, index)
}

// StepIndexFromContext returns the step index if present.
func StepIndexFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(stepIndexKey).(int)
	return v, ok
}

// WithAppContext annotates context with the invocation origin ("cli" or "ui").
func WithAppContext(ctx context.Context, origin string) context.Context {
	if origin == "" {
		return ctx
	}
	return context.WithValue(ctx, appContextKey, origin)
}

// AppContextFromContext returns the invocation origin if present.
func AppContextFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(appContextKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
