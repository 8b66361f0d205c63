package main

import (
	"log/slog"

	"faceswap/internal/config"
	"faceswap/internal/history"
	"faceswap/internal/jobstore"
	"faceswap/internal/logging"
	"faceswap/internal/processors"
	"faceswap/internal/state"
	"faceswap/internal/workflow"
)

type components struct {
	registry *processors.Registry
	history  *history.Store
	manager  *workflow.Manager
}

func (c *components) close() {
	if c.history != nil {
		_ = c.history.Close()
	}
}

func bootstrap(cfg *config.Config, logger *slog.Logger) (*components, error) {
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

	c := &components{registry: registry}
	var opts []workflow.ManagerOption
	if cfg.Paths.HistoryDB != "" {
		hist, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			logging.WarnWithContext(logger, "run history disabled", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.history_db"),
			)
		} else {
			c.history = hist
			opts = append(opts, workflow.WithRecorder(hist))
		}
	}
	c.manager = workflow.NewManager(store, registry, settings, logger, opts...)
	return c, nil
}
