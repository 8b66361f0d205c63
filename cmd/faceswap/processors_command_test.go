package main

import (
	"encoding/json"
	"testing"
)

func TestProcessorsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"processors"}, env.configPath)
	if err != nil {
		t.Fatalf("processors: %v", err)
	}
	requireContains(t, out, "Face Swapper *")
	requireContains(t, out, "frame_enhancer")

	out, _, err = runCLI(t, []string{"processors", "--json"}, env.configPath)
	if err != nil {
		t.Fatal(err)
	}
	var views []processorView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	ready := map[string]bool{}
	for _, view := range views {
		ready[view.Name] = view.Ready
	}
	if !ready["face_swapper"] || !ready["face_debugger"] {
		t.Fatalf("expected provisioned processors ready, got %v", ready)
	}
	if ready["frame_enhancer"] {
		t.Fatal("expected frame enhancer to be missing models")
	}
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Jobs directory")
	requireContains(t, out, "Processor Face Swapper")
}
