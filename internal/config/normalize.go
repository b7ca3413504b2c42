package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProvider()
	c.normalizeMedia()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.Pipeline.AnalysisMode = strings.ToLower(strings.TrimSpace(c.Pipeline.AnalysisMode))
	if c.Pipeline.AnalysisMode == "" {
		c.Pipeline.AnalysisMode = defaultAnalysisMode
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeProvider() {
	c.Provider.APIKey = strings.TrimSpace(c.Provider.APIKey)
	if c.Provider.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Provider.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("GOOGLE_API_KEY"); ok {
			c.Provider.APIKey = strings.TrimSpace(value)
		}
	}
	c.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(c.Provider.BaseURL), "/")
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = defaultProviderBaseURL
	}
	c.Provider.TextModel = defaultString(c.Provider.TextModel, defaultTextModel)
	c.Provider.ScriptModel = defaultString(c.Provider.ScriptModel, c.Provider.TextModel)
	c.Provider.ImageModel = defaultString(c.Provider.ImageModel, defaultImageModel)
	c.Provider.VideoModel = defaultString(c.Provider.VideoModel, defaultVideoModel)
	if c.Provider.TimeoutSeconds <= 0 {
		c.Provider.TimeoutSeconds = defaultProviderTimeout
	}
}

func (c *Config) normalizeMedia() {
	c.Image.KeyframeAspectRatio = defaultString(c.Image.KeyframeAspectRatio, defaultKeyframeAspectRatio)
	c.Image.AssetAspectRatio = defaultString(c.Image.AssetAspectRatio, defaultAssetAspectRatio)
	c.Image.Size = defaultString(c.Image.Size, defaultImageSize)
	c.Video.AspectRatio = defaultString(c.Video.AspectRatio, defaultVideoAspectRatio)
	if c.Video.DownloadTimeoutSeconds <= 0 {
		c.Video.DownloadTimeoutSeconds = defaultDownloadTimeoutSeconds
	}
}

func (c *Config) normalizeStorage() error {
	var err error
	if strings.TrimSpace(c.Storage.BlobDir) == "" {
		c.Storage.BlobDir = defaultBlobDir
	}
	if c.Storage.BlobDir, err = expandPath(c.Storage.BlobDir); err != nil {
		return fmt.Errorf("storage.blob_dir: %w", err)
	}
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	if c.Storage.PublicBaseURL == "" {
		if value, ok := os.LookupEnv("STORYREEL_PUBLIC_BASE_URL"); ok && strings.TrimSpace(value) != "" {
			c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
		} else {
			c.Storage.PublicBaseURL = defaultPublicBaseURL
		}
	}
	return nil
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

func defaultString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
