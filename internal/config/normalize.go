package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExecution()
	c.normalizeProcessors()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv("FACESWAP_JOBS_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Paths.JobsPath = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("FACESWAP_MODELS_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ModelsDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("FACESWAP_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("FACESWAP_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = strings.TrimSpace(value)
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.JobsPath) == "" {
		c.Paths.JobsPath = defaultJobsPath
	}
	if c.Paths.JobsPath, err = expandPath(c.Paths.JobsPath); err != nil {
		return fmt.Errorf("paths.jobs_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempPath) == "" {
		c.Paths.TempPath = defaultTempPath
	}
	if c.Paths.TempPath, err = expandPath(c.Paths.TempPath); err != nil {
		return fmt.Errorf("paths.temp_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.ModelsDir) == "" {
		c.Paths.ModelsDir = defaultModelsDir
	}
	if c.Paths.ModelsDir, err = expandPath(c.Paths.ModelsDir); err != nil {
		return fmt.Errorf("paths.models_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeExecution() {
	providers := make([]string, 0, len(c.Execution.Providers))
	seen := make(map[string]struct{}, len(c.Execution.Providers))
	for _, provider := range c.Execution.Providers {
		normalized := strings.ToLower(strings.TrimSpace(provider))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		providers = append(providers, normalized)
	}
	if len(providers) == 0 {
		providers = []string{"cpu"}
	}
	c.Execution.Providers = providers
	if c.Execution.ThreadCount <= 0 {
		c.Execution.ThreadCount = defaultThreadCount
	}
}

func (c *Config) normalizeProcessors() {
	names := make([]string, 0, len(c.Processors.Default))
	seen := make(map[string]struct{}, len(c.Processors.Default))
	for _, name := range c.Processors.Default {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		names = append(names, normalized)
	}
	c.Processors.Default = names
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
