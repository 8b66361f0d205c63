package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"

	"faceswap/internal/config"
)

const logFileName = "faceswap.log"

// Options describes logger construction parameters.
type Options struct {
	Level string
	// Format is console, json or auto.
	Format string
	// OutputPaths lists destinations: "stdout", "stderr" or file paths.
	// Empty means stdout.
	OutputPaths []string
	// Stderr replaces os.Stderr for the "stderr" destination.
	Stderr    io.Writer
	AddSource bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	outputs := slices.Clone(opts.OutputPaths)
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	w, err := openWriters(outputs, opts.Stderr)
	if err != nil {
		return nil, err
	}

	addSource := opts.AddSource || level <= slog.LevelDebug
	switch resolveFormat(opts.Format, outputs) {
	case "json":
		return slog.New(newJSONHandler(w, levelVar, addSource)), nil
	case "console":
		return slog.New(newPrettyHandler(w, levelVar, addSource)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig creates the daemon logger: stdout plus faceswap.log under
// paths.log_dir when set.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}
	outputs := []string{"stdout"}
	if dir := cfg.Paths.LogDir; dir != "" {
		outputs = append(outputs, LogFilePath(dir))
	}
	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

// LogFilePath returns the shared log file inside logDir.
func LogFilePath(logDir string) string {
	return filepath.Join(logDir, logFileName)
}

// resolveFormat maps "auto" onto console when stdout is an interactive
// terminal and json otherwise.
func resolveFormat(format string, outputs []string) string {
	switch format = strings.ToLower(strings.TrimSpace(format)); format {
	case "":
		return "console"
	case "auto":
		if slices.Contains(outputs, "stdout") && IsTerminal(os.Stdout) {
			return "console"
		}
		return "json"
	default:
		return format
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func openWriters(outputs []string, stderr io.Writer) (io.Writer, error) {
	if stderr == nil {
		stderr = os.Stderr
	}
	var writers []io.Writer
	seen := make(map[string]bool, len(outputs))
	for _, path := range outputs {
		path = strings.TrimSpace(path)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true

		switch path {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory: %w", err)
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", path, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}
