package processors_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"faceswap/internal/processors"
	"faceswap/internal/services"
)

func TestBuiltinsRegistered(t *testing.T) {
	registry, err := processors.NewDefaultRegistry(processors.Env{})
	if err != nil {
		t.Fatal(err)
	}
	names := registry.Names()
	for _, want := range []string{
		processors.FaceSwapper, processors.FaceEnhancer, processors.FrameEnhancer,
		processors.FrameColorizer, processors.LipSyncer, processors.AgeModifier,
		processors.ExpressionRestorer, processors.FaceEditor, processors.BackgroundRemover,
		processors.FaceDebugger,
	} {
		if !slices.Contains(names, want) {
			t.Fatalf("expected %s registered, got %v", want, names)
		}
	}
}

func TestBuiltinPreCheckReportsMissingModels(t *testing.T) {
	dir := t.TempDir()
	registry, _ := processors.NewDefaultRegistry(processors.Env{ModelsDir: dir})
	procs, err := registry.Resolve([]string{processors.FaceSwapper})
	if err != nil {
		t.Fatal(err)
	}

	health := registry.PreCheck(context.Background(), procs[0])
	if health.Ready || !strings.Contains(health.Detail, "inswapper_128.onnx") {
		t.Fatalf("expected missing model report, got %+v", health)
	}

	writeModels(t, dir, processors.RequiredModels(processors.FaceSwapper, nil)...)
	if health := registry.PreCheck(context.Background(), procs[0]); !health.Ready {
		t.Fatalf("expected ready after provisioning, got %+v", health)
	}
}

func TestBuiltinPreCheckFrameHonorsStepModel(t *testing.T) {
	dir := t.TempDir()
	registry, _ := processors.NewDefaultRegistry(processors.Env{ModelsDir: dir})
	procs, err := registry.Resolve([]string{processors.FaceEnhancer})
	if err != nil {
		t.Fatal(err)
	}
	writeModels(t, dir, processors.RequiredModels(processors.FaceEnhancer, nil)...)
	frame := &processors.Frame{Options: map[string]map[string]any{
		processors.FaceEnhancer: {"model": "codeformer"},
	}}

	if health := registry.PreCheck(context.Background(), procs[0]); !health.Ready {
		t.Fatalf("expected default model ready, got %+v", health)
	}
	health := registry.PreCheckFrame(context.Background(), procs[0], frame)
	if health.Ready || health.Detail != "missing model files: codeformer.onnx" {
		t.Fatalf("expected codeformer reported missing, got %+v", health)
	}
}

func TestBuiltinModelOptionOverridesDefault(t *testing.T) {
	files := processors.RequiredModels(processors.FaceEnhancer, map[string]any{"model": "codeformer"})
	if !slices.Contains(files, "codeformer.onnx") || slices.Contains(files, "gfpgan_1.4.onnx") {
		t.Fatalf("expected configured model, got %v", files)
	}
	if got := processors.RequiredModels(processors.FaceDebugger, nil); len(got) != 0 {
		t.Fatalf("expected face debugger to need no models, got %v", got)
	}
	if got := processors.RequiredModels(processors.FrameColorizer, nil); !slices.Equal(got, []string{"ddcolor.onnx"}) {
		t.Fatalf("expected frame-only model list, got %v", got)
	}
}

func TestBuiltinChainRecordsTrail(t *testing.T) {
	dir := t.TempDir()
	writeModels(t, dir, processors.RequiredModels(processors.FaceSwapper, nil)...)
	writeModels(t, dir, processors.RequiredModels(processors.FaceEnhancer, nil)...)
	registry, _ := processors.NewDefaultRegistry(processors.Env{ModelsDir: dir})

	procs, err := registry.Resolve([]string{processors.FaceSwapper, processors.FaceEnhancer})
	if err != nil {
		t.Fatal(err)
	}
	frame := &processors.Frame{
		SourcePaths: []string{"face.jpg"},
		TargetPath:  "t.mp4",
		MediaPath:   "t.mp4",
		Options:     map[string]map[string]any{processors.FaceEnhancer: {"blend": 80}},
	}
	for _, proc := range procs {
		frame, err = registry.Invoke(context.Background(), proc, frame)
		if err != nil {
			t.Fatalf("Invoke %s: %v", proc.Name(), err)
		}
	}
	if !slices.Equal(frame.Trail, []string{processors.FaceSwapper, processors.FaceEnhancer}) {
		t.Fatalf("unexpected trail %v", frame.Trail)
	}
	applied, ok := frame.Data[processors.FaceEnhancer].(map[string]any)
	if !ok || applied["blend"] != 80 || applied["model"] != "gfpgan_1.4" {
		t.Fatalf("unexpected face enhancer data %#v", frame.Data[processors.FaceEnhancer])
	}
}

func TestFaceSwapperRequiresSource(t *testing.T) {
	dir := t.TempDir()
	writeModels(t, dir, processors.RequiredModels(processors.FaceSwapper, nil)...)
	registry, _ := processors.NewDefaultRegistry(processors.Env{ModelsDir: dir})
	procs, _ := registry.Resolve([]string{processors.FaceSwapper})

	_, err := registry.Invoke(context.Background(), procs[0], &processors.Frame{TargetPath: "t.mp4", MediaPath: "t.mp4"})
	if !errors.Is(err, services.ErrProcessorFailure) || !strings.Contains(err.Error(), "source") {
		t.Fatalf("expected missing source failure, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"face_swapper":    "Face Swapper",
		" FRAME_ENHANCER": "Frame Enhancer",
		"lip-syncer":      "Lip Syncer",
	}
	for in, want := range tests {
		if got := processors.DisplayName(in); got != want {
			t.Fatalf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}
