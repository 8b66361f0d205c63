package config

const (
	defaultConfigPath         = "~/.config/faceswap/config.toml"
	defaultJobsPath           = "~/.local/share/faceswap/jobs"
	defaultTempPath           = "~/.cache/faceswap/tmp"
	defaultModelsDir          = "~/.local/share/faceswap/models"
	defaultLogDir             = "~/.local/share/faceswap/logs"
	defaultHistoryDB          = "~/.local/share/faceswap/history.db"
	defaultThreadCount        = 4
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultPollInterval       = 5
	defaultErrorRetryInterval = 10
	defaultNotifyTimeout      = 10
	defaultImageQuality       = 80
	defaultVideoEncoder       = "libx264"
	defaultVideoPreset        = "medium"
	defaultVideoQuality       = 80
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			JobsPath:  defaultJobsPath,
			TempPath:  defaultTempPath,
			ModelsDir: defaultModelsDir,
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Execution: Execution{
			HaltOnError: false,
			Providers:   []string{"cpu"},
			ThreadCount: defaultThreadCount,
		},
		Processors: Processors{
			Default: []string{"face_swapper"},
		},
		Output: Output{
			ImageQuality: defaultImageQuality,
			VideoEncoder: defaultVideoEncoder,
			VideoPreset:  defaultVideoPreset,
			VideoQuality: defaultVideoQuality,
		},
		Daemon: Daemon{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
