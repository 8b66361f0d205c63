package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"faceswap/internal/config"
	"faceswap/internal/history"
	"faceswap/internal/jobstore"
	"faceswap/internal/logging"
	"faceswap/internal/processors"
	"faceswap/internal/state"
	"faceswap/internal/workflow"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool
	stderr      io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime bundles the components one command invocation works with.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobstore.Store
	history  *history.Store
	registry *processors.Registry
	settings *state.Store
	manager  *workflow.Manager
}

func (r *runtime) close() {
	if r.history != nil {
		_ = r.history.Close()
	}
}

// view returns the cli-scoped settings.
func (r *runtime) view() *state.View {
	return r.settings.Scope(state.ScopeCLI)
}

// newLogger appends to the shared log file and, with --verbose, mirrors
// records to the command's stderr.
func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	var outputs []string
	if cfg.Paths.LogDir != "" {
		outputs = append(outputs, logging.LogFilePath(cfg.Paths.LogDir))
	}
	if c.verboseFlag != nil && *c.verboseFlag {
		outputs = append(outputs, "stderr")
	}
	if len(outputs) == 0 {
		return logging.NewNop(), nil
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		Stderr:      c.stderr,
	})
}

func (c *commandContext) openRuntime() (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	store, err := jobstore.Open(cfg.Paths.JobsPath)
	if err != nil {
		return nil, err
	}
	registry, err := processors.NewDefaultRegistry(processors.Env{
		ModelsDir: cfg.Paths.ModelsDir,
		Options:   cfg.Processors.Options,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	settings := state.New()
	state.SeedFromConfig(settings.Scope(state.ScopeCLI), cfg)

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: registry,
		settings: settings,
	}
	var opts []workflow.ManagerOption
	if cfg.Paths.HistoryDB != "" {
		hist, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			logging.WarnWithContext(logger, "run history disabled", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.history_db"),
			)
		} else {
			rt.history = hist
			opts = append(opts, workflow.WithRecorder(hist))
		}
	}
	rt.manager = workflow.NewManager(store, registry, settings, logger, opts...)
	return rt, nil
}

// withRuntime opens the job store, registry and history for one command.
func (c *commandContext) withRuntime(fn func(*runtime) error) error {
	rt, err := c.openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	return fn(rt)
}

// commandCtx tags cmd's context with the cli settings scope.
func commandCtx(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return state.WithScope(ctx, state.ScopeCLI)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
