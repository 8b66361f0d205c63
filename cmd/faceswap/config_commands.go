package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"faceswap/internal/config"
	"faceswap/internal/state"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

// initTarget picks --path, then the global --config flag, then the default
// location.
func initTarget(ctx *commandContext, pathFlag string) (string, error) {
	target := strings.TrimSpace(pathFlag)
	if target == "" && ctx.configFlag != nil {
		target = strings.TrimSpace(*ctx.configFlag)
	}
	if target == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(target)
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(ctx, targetPath)
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}

			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			cfg, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("sample config does not load: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Jobs will be stored in %s\n", cfg.Paths.JobsPath)
			fmt.Fprintf(out, "Place .onnx models in %s, then run `faceswap doctor`.\n", cfg.Paths.ModelsDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file (defaults to --config)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagPath string
			if ctx.configFlag != nil {
				flagPath = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(flagPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			printTable(out, []column{left("Setting"), left("Value")}, [][]string{
				{"paths.jobs_path", cfg.Paths.JobsPath},
				{"paths.models_dir", cfg.Paths.ModelsDir},
				{"paths.history_db", cfg.Paths.HistoryDB},
				{"processors.default", strings.Join(cfg.Processors.Default, ", ")},
				{"execution.halt_on_error", yesNo(cfg.Execution.HaltOnError)},
			})
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// newConfigShowCommand prints the cli-scoped settings seeded from the config.
func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			view := state.New().Scope(state.ScopeCLI)
			state.SeedFromConfig(view, cfg)

			keys := view.Keys()
			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				rows = append(rows, []string{key, fmt.Sprintf("%v", view.Get(key))})
			}
			printTable(cmd.OutOrStdout(), []column{left("Key"), left("Value")}, rows)
			return nil
		},
	}
}
