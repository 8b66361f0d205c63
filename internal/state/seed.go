package state

import (
	"faceswap/internal/config"
)

// Keys seeded from the configuration file.
const (
	KeyJobsPath            = "jobs_path"
	KeyTempPath            = "temp_path"
	KeyModelsDir           = "models_dir"
	KeyHaltOnError         = "halt_on_error"
	KeyExecutionProviders  = "execution_providers"
	KeyExecutionThreads    = "execution_thread_count"
	KeyProcessors          = "processors"
	KeyOutputImageQuality  = "output_image_quality"
	KeyOutputVideoEncoder  = "output_video_encoder"
	KeyOutputVideoPreset   = "output_video_preset"
	KeyOutputVideoQuality  = "output_video_quality"
	KeySourcePaths         = "source_paths"
	KeyTargetPath          = "target_path"
	KeyOutputPath          = "output_path"
	processorOptionsPrefix = "processor_options."
)

// ProcessorOptionsKey returns the key holding options for one processor.
func ProcessorOptionsKey(name string) string {
	return processorOptionsPrefix + name
}

// SeedFromConfig initialises view entries from cfg without touching keys the
// caller already set. It returns the keys it wrote.
func SeedFromConfig(view *View, cfg *config.Config) []string {
	if view == nil || cfg == nil {
		return nil
	}
	entries := []struct {
		key   string
		value any
	}{
		{KeyJobsPath, cfg.Paths.JobsPath},
		{KeyTempPath, cfg.Paths.TempPath},
		{KeyModelsDir, cfg.Paths.ModelsDir},
		{KeyHaltOnError, cfg.Execution.HaltOnError},
		{KeyExecutionProviders, cfg.Execution.Providers},
		{KeyExecutionThreads, cfg.Execution.ThreadCount},
		{KeyProcessors, cfg.Processors.Default},
		{KeyOutputImageQuality, cfg.Output.ImageQuality},
		{KeyOutputVideoEncoder, cfg.Output.VideoEncoder},
		{KeyOutputVideoPreset, cfg.Output.VideoPreset},
		{KeyOutputVideoQuality, cfg.Output.VideoQuality},
	}
	var written []string
	for _, entry := range entries {
		if view.Init(entry.key, entry.value) {
			written = append(written, entry.key)
		}
	}
	for name := range cfg.Processors.Options {
		key := ProcessorOptionsKey(name)
		if view.Init(key, cfg.ProcessorOptions(name)) {
			written = append(written, key)
		}
	}
	return written
}
