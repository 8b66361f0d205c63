package services_test

import (
	"errors"
	"strings"
	"testing"

	"faceswap/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrProcessorFailure, "face_swapper", "process", "inference failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrProcessorFailure) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"face_swapper", "process", "inference failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindOfMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want services.Kind
	}{
		{"argument", services.InvalidArgument("jobs", "create", "target path required"), services.KindInvalidArgument},
		{"state", services.InvalidState("jobs", "add step", "job is queued"), services.KindInvalidState},
		{"not found", services.NotFound("jobstore", "read", "job x"), services.KindNotFound},
		{"processor", services.Wrap(services.ErrProcessorFailure, "lip_syncer", "pre check", "", nil), services.KindProcessorFailure},
		{"plain", errors.New("io"), services.KindUnknown},
		{"nil", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.KindOf(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsStructural(t *testing.T) {
	if !services.IsStructural(services.InvalidState("jobs", "delete", "queued")) {
		t.Fatal("expected invalid state to be structural")
	}
	if services.IsStructural(services.Wrap(services.ErrProcessorFailure, "x", "y", "z", nil)) {
		t.Fatal("expected processor failure to be non-structural")
	}
}

func TestDetailsPrefersMessageThenCause(t *testing.T) {
	err := services.Wrap(services.ErrProcessorFailure, "face_enhancer", "pre check", "", errors.New("model missing"))
	details := services.Details(err)
	if details.Kind != services.KindProcessorFailure {
		t.Fatalf("unexpected kind %q", details.Kind)
	}
	if details.Message != "model missing" {
		t.Fatalf("expected cause message, got %q", details.Message)
	}
	if details.Component != "face_enhancer" || details.Operation != "pre check" {
		t.Fatalf("unexpected details %+v", details)
	}

	plain := services.Details(errors.New("disk full"))
	if plain.Kind != services.KindUnknown || plain.Message != "disk full" {
		t.Fatalf("unexpected plain details %+v", plain)
	}
}

func TestSummaryJoinsChainMessages(t *testing.T) {
	root := errors.New("cuda out of memory")
	inner := services.Wrap(services.ErrProcessorFailure, "processors", "invoke", "face_swapper failed", root)
	outer := services.Wrap(services.ErrProcessorFailure, "pipeline", "run step", "", inner)

	if got := services.Summary(outer); got != "face_swapper failed: cuda out of memory" {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := services.Summary(root); got != "cuda out of memory" {
		t.Fatalf("unexpected plain summary %q", got)
	}
	if got := services.Summary(nil); got != "" {
		t.Fatalf("expected empty summary, got %q", got)
	}
}
