package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"faceswap/internal/config"
	"faceswap/internal/jobs"
)

// stepArgsFile is the YAML layout accepted by --args-file.
type stepArgsFile struct {
	SourcePaths []string                  `yaml:"source_paths"`
	TargetPath  string                    `yaml:"target_path"`
	OutputPath  string                    `yaml:"output_path"`
	Options     map[string]map[string]any `yaml:"options"`
}

type stepFlags struct {
	processors []string
	sources    []string
	target     string
	output     string
	argsFile   string
	options    []string
}

func (f *stepFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.processors, "processors", "p", nil, "Processor chain for the step (defaults to processors.default)")
	cmd.Flags().StringArrayVarP(&f.sources, "source", "s", nil, "Source path (repeatable)")
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "Target path")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output path")
	cmd.Flags().StringVar(&f.argsFile, "args-file", "", "YAML file with step arguments")
	cmd.Flags().StringArrayVar(&f.options, "option", nil, "Processor option as processor.key=value (repeatable)")
}

// args merges the args file with explicit flags; flags win.
func (f *stepFlags) args() (jobs.Args, error) {
	var args jobs.Args
	if strings.TrimSpace(f.argsFile) != "" {
		loaded, err := loadStepArgsFile(f.argsFile)
		if err != nil {
			return jobs.Args{}, err
		}
		args = loaded
	}
	if len(f.sources) > 0 {
		args.SourcePaths = append([]string(nil), f.sources...)
	}
	if strings.TrimSpace(f.target) != "" {
		args.TargetPath = strings.TrimSpace(f.target)
	}
	if strings.TrimSpace(f.output) != "" {
		args.OutputPath = strings.TrimSpace(f.output)
	}
	for _, raw := range f.options {
		processor, key, value, err := parseOption(raw)
		if err != nil {
			return jobs.Args{}, err
		}
		if args.Options == nil {
			args.Options = make(map[string]map[string]any)
		}
		if args.Options[processor] == nil {
			args.Options[processor] = make(map[string]any)
		}
		args.Options[processor][key] = value
	}
	return args, nil
}

func loadStepArgsFile(path string) (jobs.Args, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return jobs.Args{}, fmt.Errorf("resolve args file: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return jobs.Args{}, fmt.Errorf("read args file: %w", err)
	}
	var file stepArgsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return jobs.Args{}, fmt.Errorf("parse args file %s: %w", expanded, err)
	}
	return jobs.Args{
		SourcePaths: file.SourcePaths,
		TargetPath:  strings.TrimSpace(file.TargetPath),
		OutputPath:  strings.TrimSpace(file.OutputPath),
		Options:     file.Options,
	}, nil
}

// parseOption splits processor.key=value and types the value loosely.
func parseOption(raw string) (string, string, any, error) {
	name, value, ok := strings.Cut(raw, "=")
	if !ok {
		return "", "", nil, fmt.Errorf("option %q must be processor.key=value", raw)
	}
	processor, key, ok := strings.Cut(strings.TrimSpace(name), ".")
	processor = strings.ToLower(strings.TrimSpace(processor))
	key = strings.TrimSpace(key)
	if !ok || processor == "" || key == "" {
		return "", "", nil, fmt.Errorf("option %q must be processor.key=value", raw)
	}
	value = strings.TrimSpace(value)
	if n, err := strconv.Atoi(value); err == nil {
		return processor, key, n, nil
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return processor, key, f, nil
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return processor, key, b, nil
	}
	return processor, key, value, nil
}

func parseStepIndex(raw string) (int, error) {
	index, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid step index %q", raw)
	}
	return index, nil
}
