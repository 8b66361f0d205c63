package state_test

import (
	"context"
	"sync"
	"testing"

	"faceswap/internal/config"
	"faceswap/internal/services"
	"faceswap/internal/state"
)

func TestGetReturnsUnsetForMissingKey(t *testing.T) {
	view := state.New().Scope(state.ScopeCLI)

	if got := view.Get("processors"); !state.IsUnset(got) {
		t.Fatalf("expected unset sentinel, got %#v", got)
	}
	if _, ok := view.Lookup("processors"); ok {
		t.Fatal("expected lookup to report missing key")
	}
}

func TestUnsetIsDistinctFromFalsyValues(t *testing.T) {
	view := state.New().Scope(state.ScopeCLI)
	view.Set("empty_list", []string{})
	view.Set("flag", false)
	view.Set("nothing", nil)

	for _, key := range []string{"empty_list", "flag", "nothing"} {
		if state.IsUnset(view.Get(key)) {
			t.Fatalf("expected %s to be set", key)
		}
	}
	if got, ok := view.Strings("empty_list"); !ok || len(got) != 0 {
		t.Fatalf("expected empty list, got %#v ok=%v", got, ok)
	}
	if got := view.Get("nothing"); got != nil {
		t.Fatalf("expected explicit nil, got %#v", got)
	}
}

func TestInitKeepsFirstValue(t *testing.T) {
	view := state.New().Scope(state.ScopeCLI)

	if !view.Init("execution_thread_count", 4) {
		t.Fatal("expected first init to write")
	}
	if view.Init("execution_thread_count", 8) {
		t.Fatal("expected second init to be a no-op")
	}
	if got, _ := view.Int("execution_thread_count"); got != 4 {
		t.Fatalf("expected first default to stick, got %d", got)
	}

	view.Set("execution_thread_count", 16)
	if got, _ := view.Int("execution_thread_count"); got != 16 {
		t.Fatalf("expected set to overwrite, got %d", got)
	}
}

func TestScopesAreIsolated(t *testing.T) {
	store := state.New()
	cliCtx := state.WithScope(context.Background(), state.ScopeCLI)
	uiCtx := state.WithScope(context.Background(), state.ScopeUI)

	store.Set(uiCtx, "target_path", "ui.mp4")
	if got := store.Get(cliCtx, "target_path"); !state.IsUnset(got) {
		t.Fatalf("expected cli scope untouched, got %#v", got)
	}
	store.Init(cliCtx, "target_path", "cli.mp4")
	if got := store.Get(uiCtx, "target_path"); got != "ui.mp4" {
		t.Fatalf("expected ui value preserved, got %#v", got)
	}
}

func TestScopeFromContextDefaultsToCLI(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want state.Scope
	}{
		{name: "background", ctx: context.Background(), want: state.ScopeCLI},
		{name: "ui", ctx: services.WithAppContext(context.Background(), "ui"), want: state.ScopeUI},
		{name: "uppercase ui", ctx: services.WithAppContext(context.Background(), " UI "), want: state.ScopeUI},
		{name: "unknown", ctx: services.WithAppContext(context.Background(), "webhook"), want: state.ScopeCLI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := state.ScopeFromContext(tt.ctx); got != tt.want {
				t.Fatalf("ScopeFromContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStoredSlicesAreCopied(t *testing.T) {
	view := state.New().Scope(state.ScopeCLI)
	processors := []string{"face_swapper"}
	view.Set("processors", processors)
	processors[0] = "lip_syncer"

	got, _ := view.Strings("processors")
	if got[0] != "face_swapper" {
		t.Fatalf("expected stored copy, got %v", got)
	}
	got[0] = "age_modifier"
	again, _ := view.Strings("processors")
	if again[0] != "face_swapper" {
		t.Fatalf("expected read copy, got %v", again)
	}
}

func TestConcurrentInitWritesOnce(t *testing.T) {
	view := state.New().Scope(state.ScopeCLI)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		writes int
	)
	for i := range 32 {
		wg.Add(1)
		go func(value int) {
			defer wg.Done()
			if view.Init("jobs_path", value) {
				mu.Lock()
				writes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if writes != 1 {
		t.Fatalf("expected exactly one init to win, got %d", writes)
	}
}

func TestSeedFromConfigRespectsExplicitValues(t *testing.T) {
	cfg := config.Default()
	cfg.Execution.HaltOnError = true
	cfg.Processors.Options = map[string]map[string]any{"face_swapper": {"model": "inswapper_128"}}

	view := state.New().Scope(state.ScopeCLI)
	view.Set(state.KeyProcessors, []string{"lip_syncer"})

	written := state.SeedFromConfig(view, &cfg)
	if len(written) == 0 {
		t.Fatal("expected seeded keys")
	}
	if got, _ := view.Strings(state.KeyProcessors); len(got) != 1 || got[0] != "lip_syncer" {
		t.Fatalf("expected explicit processors kept, got %v", got)
	}
	if got, _ := view.Bool(state.KeyHaltOnError); !got {
		t.Fatal("expected halt_on_error seeded from config")
	}
	opts, ok := view.Get(state.ProcessorOptionsKey("face_swapper")).(map[string]any)
	if !ok || opts["model"] != "inswapper_128" {
		t.Fatalf("expected processor options seeded, got %#v", opts)
	}
	if again := state.SeedFromConfig(view, &cfg); len(again) != 0 {
		t.Fatalf("expected reseed to write nothing, got %v", again)
	}
}
