package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"faceswap/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantJobs := filepath.Join(tempHome, ".local", "share", "faceswap", "jobs")
	if cfg.Paths.JobsPath != wantJobs {
		t.Fatalf("unexpected jobs path: got %q want %q", cfg.Paths.JobsPath, wantJobs)
	}
	if cfg.Execution.HaltOnError {
		t.Fatal("expected halt_on_error disabled by default")
	}
	if len(cfg.Execution.Providers) != 1 || cfg.Execution.Providers[0] != "cpu" {
		t.Fatalf("unexpected providers: %v", cfg.Execution.Providers)
	}
	if len(cfg.Processors.Default) != 1 || cfg.Processors.Default[0] != "face_swapper" {
		t.Fatalf("unexpected default processors: %v", cfg.Processors.Default)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.JobsPath, cfg.Paths.TempPath, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "faceswap.toml")

	type payload struct {
		Paths struct {
			JobsPath string `toml:"jobs_path"`
		} `toml:"paths"`
		Execution struct {
			HaltOnError bool     `toml:"halt_on_error"`
			Providers   []string `toml:"providers"`
		} `toml:"execution"`
		Processors struct {
			Default []string `toml:"default"`
		} `toml:"processors"`
	}
	custom := payload{}
	custom.Paths.JobsPath = filepath.Join(tempDir, "jobs")
	custom.Execution.HaltOnError = true
	custom.Execution.Providers = []string{" CUDA ", "cuda", "cpu"}
	custom.Processors.Default = []string{"Face_Swapper", "face_enhancer", "face_swapper"}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.JobsPath != filepath.Join(tempDir, "jobs") {
		t.Fatalf("expected jobs path from file, got %q", cfg.Paths.JobsPath)
	}
	if !cfg.Execution.HaltOnError {
		t.Fatal("expected halt_on_error from file")
	}
	if strings.Join(cfg.Execution.Providers, ",") != "cuda,cpu" {
		t.Fatalf("expected normalized providers, got %v", cfg.Execution.Providers)
	}
	if strings.Join(cfg.Processors.Default, ",") != "face_swapper,face_enhancer" {
		t.Fatalf("expected normalized processors, got %v", cfg.Processors.Default)
	}
}

func TestLoadReadsDotEnvNextToConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "faceswap.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"info\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	modelsDir := filepath.Join(tempDir, "models-from-env")
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte("FACESWAP_MODELS_DIR="+modelsDir+"\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("FACESWAP_MODELS_DIR", "")
	os.Unsetenv("FACESWAP_MODELS_DIR")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.ModelsDir != modelsDir {
		t.Fatalf("expected models dir from .env, got %q", cfg.Paths.ModelsDir)
	}
}

func TestEnvOverridesJobsPath(t *testing.T) {
	tempDir := t.TempDir()
	jobs := filepath.Join(tempDir, "env-jobs")
	t.Setenv("FACESWAP_JOBS_PATH", jobs)

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.JobsPath != jobs {
		t.Fatalf("expected env jobs path, got %q", cfg.Paths.JobsPath)
	}
}

func TestEnvSetsNtfyTopic(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("FACESWAP_NTFY_TOPIC", " https://ntfy.sh/faceswap ")

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/faceswap" {
		t.Fatalf("unexpected topic %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Notifications.RequestTimeout != 10 {
		t.Fatalf("unexpected timeout %d", cfg.Notifications.RequestTimeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"threads", func(c *config.Config) { c.Execution.ThreadCount = 0 }, "thread_count"},
		{"poll", func(c *config.Config) { c.Daemon.PollInterval = -1 }, "poll_interval"},
		{"quality", func(c *config.Config) { c.Output.VideoQuality = 101 }, "video_quality"},
		{"jobs", func(c *config.Config) { c.Paths.JobsPath = " " }, "jobs_path"},
		{"ntfy", func(c *config.Config) { c.Notifications.NtfyTopic = "ntfy.sh/topic" }, "ntfy_topic"},
		{"ntfy timeout", func(c *config.Config) { c.Notifications.RequestTimeout = -1 }, "request_timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	path := filepath.Join(tempDir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	opts := cfg.ProcessorOptions("face_swapper")
	if opts["model"] != "inswapper_128" {
		t.Fatalf("expected face_swapper model option, got %v", opts)
	}
	opts["model"] = "mutated"
	if cfg.ProcessorOptions("face_swapper")["model"] != "inswapper_128" {
		t.Fatal("expected ProcessorOptions to return a copy")
	}
}
