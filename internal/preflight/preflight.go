package preflight

import (
	"context"

	"faceswap/internal/config"
	"faceswap/internal/processors"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory, binary and processor checks for cfg. A nil
// registry skips the processor checks.
func RunAll(ctx context.Context, cfg *config.Config, registry *processors.Registry) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Jobs directory", cfg.Paths.JobsPath),
		CheckDirectoryAccess("Temp directory", cfg.Paths.TempPath),
	}
	if cfg.Paths.ModelsDir != "" {
		results = append(results, CheckReadableDirectory("Models directory", cfg.Paths.ModelsDir))
	}

	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Satisfied(), Detail: status.Detail}
		if status.Available {
			result.Detail = status.Path
		}
		results = append(results, result)
	}

	if registry != nil {
		results = append(results, CheckProcessors(ctx, registry, cfg.Processors.Default)...)
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
