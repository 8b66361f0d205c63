package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"faceswap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.JobsPath = filepath.Join(base, "jobs")
	cfgVal.Paths.TempPath = filepath.Join(base, "tmp")
	cfgVal.Paths.ModelsDir = filepath.Join(base, "models")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "history.db")
	cfgVal.Daemon.PollInterval = 1
	cfgVal.Daemon.ErrorRetryInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHaltOnError sets the halt-on-error policy on the test config.
func WithHaltOnError(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Execution.HaltOnError = enabled
	}
}

// WithDefaultProcessors overrides the default processor chain.
func WithDefaultProcessors(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processors.Default = names
	}
}

// WithProvisionedModels writes placeholder model files into the models dir.
func WithProvisionedModels(files ...string) ConfigOption {
	return func(b *configBuilder) {
		ProvisionModels(b.t, b.cfg.Paths.ModelsDir, files...)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.JobsPath)
}
