package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"faceswap/internal/config"
	"faceswap/internal/daemon"
	"faceswap/internal/logging"
	"faceswap/internal/notifications"
	"faceswap/internal/preflight"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(os.Getenv("FACESWAP_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	components, err := bootstrap(cfg, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "bootstrap failed", "daemon_bootstrap_failed", logging.Error(err))
		os.Exit(1)
	}
	defer components.close()

	for _, result := range preflight.RunAll(ctx, cfg, components.registry) {
		if result.Passed {
			logger.Info("preflight ok", logging.String("check", result.Name), logging.String("detail", result.Detail))
			continue
		}
		logging.WarnWithContext(logger, "preflight failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run `faceswap doctor` for details"),
		)
	}

	d, err := daemon.New(cfg, logger, components.manager, notifications.NewService(cfg))
	if err != nil {
		logging.ErrorWithContext(logger, "create daemon", "daemon_create_failed", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logging.ErrorWithContext(logger, "daemon start", "daemon_start_failed", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("faceswapd shutting down")
}
