package services_test

import (
	"context"
	"testing"

	"faceswap/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-42")
	ctx = services.WithStepIndex(ctx, 0)
	ctx = services.WithAppContext(ctx, "ui")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-42" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if idx, ok := services.StepIndexFromContext(ctx); !ok || idx != 0 {
		t.Fatalf("unexpected step index: %v %v", idx, ok)
	}
	if origin, ok := services.AppContextFromContext(ctx); !ok || origin != "ui" {
		t.Fatalf("unexpected app context: %v %v", origin, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "")
	ctx = services.WithAppContext(ctx, "")
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
	if _, ok := services.AppContextFromContext(ctx); ok {
		t.Fatal("expected no app context value")
	}
	if _, ok := services.StepIndexFromContext(ctx); ok {
		t.Fatal("expected no step index value")
	}
}
