package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateProvider() error {
	if c.Provider.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("provider.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'storyreel config init')", defaultPath)
	}
	if _, err := url.Parse(c.Provider.BaseURL); err != nil {
		return fmt.Errorf("provider.base_url: %w", err)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.Attempts < 0 {
		return errors.New("retry.attempts must not be negative")
	}
	if c.Retry.DelayMillis < 0 {
		return errors.New("retry.delay_ms must not be negative")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.PollIntervalSeconds <= 0 {
		return errors.New("video.poll_interval_seconds must be positive")
	}
	if c.Video.PollTimeoutSeconds <= 0 {
		return errors.New("video.poll_timeout_seconds must be positive")
	}
	if c.Video.PollTimeoutSeconds <= c.Video.PollIntervalSeconds {
		return errors.New("video.poll_timeout_seconds must be greater than video.poll_interval_seconds")
	}
	return nil
}

func (c *Config) validateStorage() error {
	parsed, err := url.Parse(c.Storage.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("storage.public_base_url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("storage.public_base_url must be an absolute URL, got %q", c.Storage.PublicBaseURL)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	switch c.Pipeline.AnalysisMode {
	case AnalysisModeAppend, AnalysisModeReplace:
		return nil
	default:
		return fmt.Errorf("pipeline.analysis_mode must be %q or %q, got %q", AnalysisModeAppend, AnalysisModeReplace, c.Pipeline.AnalysisMode)
	}
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
