package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	var problems []error
	if strings.TrimSpace(c.Paths.JobsPath) == "" {
		problems = append(problems, errors.New("paths.jobs_path must be set"))
	}
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		problems = append(problems, fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level))
	}
	if c.Execution.ThreadCount <= 0 {
		problems = append(problems, errors.New("execution.thread_count must be positive"))
	}
	if c.Daemon.PollInterval < 0 {
		problems = append(problems, errors.New("daemon.poll_interval must be zero or positive"))
	}
	if c.Daemon.ErrorRetryInterval < 0 {
		problems = append(problems, errors.New("daemon.error_retry_interval must be zero or positive"))
	}
	if c.Notifications.RequestTimeout < 0 {
		problems = append(problems, errors.New("notifications.request_timeout must be zero or positive"))
	}
	if topic := c.Notifications.NtfyTopic; topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		problems = append(problems, fmt.Errorf("notifications.ntfy_topic: %q must be an http(s) URL", topic))
	}
	if c.Output.ImageQuality < 0 || c.Output.ImageQuality > 100 {
		problems = append(problems, errors.New("output.image_quality must be between 0 and 100"))
	}
	if c.Output.VideoQuality < 0 || c.Output.VideoQuality > 100 {
		problems = append(problems, errors.New("output.video_quality must be between 0 and 100"))
	}
	return errors.Join(problems...)
}
