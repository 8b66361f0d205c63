package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	JobsPath  string `toml:"jobs_path"`
	TempPath  string `toml:"temp_path"`
	ModelsDir string `toml:"models_dir"`
	LogDir    string `toml:"log_dir"`
	HistoryDB string `toml:"history_db"`
}

// Execution contains the run policy applied to jobs.
type Execution struct {
	HaltOnError bool     `toml:"halt_on_error"`
	Providers   []string `toml:"providers"`
	ThreadCount int      `toml:"thread_count"`
}

// Processors contains the default processor selection and per-processor
// options captured into new steps.
type Processors struct {
	Default []string                  `toml:"default"`
	Options map[string]map[string]any `toml:"options"`
}

// Output contains the encoder defaults copied into step arguments.
type Output struct {
	ImageQuality int    `toml:"image_quality"`
	VideoEncoder string `toml:"video_encoder"`
	VideoPreset  string `toml:"video_preset"`
	VideoQuality int    `toml:"video_quality"`
}

// Daemon contains configuration for the queue worker timing.
type Daemon struct {
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Notifications contains ntfy delivery settings. An empty topic disables
// notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for faceswap.
//
// Configuration sections by subsystem:
//   - Paths: jobs root, temp, model and log directories
//   - Execution: halt-on-error policy and inference execution settings
//   - Processors: default processor chain and per-processor options
//   - Output: encoder defaults captured into step arguments
//   - Daemon: queue worker polling intervals
//   - Notifications: ntfy topic for daemon job notifications
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Execution     Execution     `toml:"execution"`
	Processors    Processors    `toml:"processors"`
	Output        Output        `toml:"output"`
	Daemon        Daemon        `toml:"daemon"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("faceswap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv sources dir/.env without overriding variables already exported.
func loadDotEnv(dir string) error {
	envPath := filepath.Join(dir, ".env")
	info, err := os.Stat(envPath)
	if err != nil || info.IsDir() {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("load %s: %w", envPath, err)
	}
	return nil
}

// EnsureDirectories creates required directories for job processing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.JobsPath, c.Paths.TempPath, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.HistoryDB) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Paths.HistoryDB), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	// Models are provisioned separately; a missing directory surfaces through pre-checks.
	if c.Paths.ModelsDir != "" {
		_ = os.MkdirAll(c.Paths.ModelsDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for media muxing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// ProcessorOptions returns a copy of the configured options for name.
func (c *Config) ProcessorOptions(name string) map[string]any {
	src := c.Processors.Options[name]
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
