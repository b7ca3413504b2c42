package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Provider contains the generation provider connection settings.
type Provider struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TextModel      string `toml:"text_model"`
	ScriptModel    string `toml:"script_model"`
	ImageModel     string `toml:"image_model"`
	VideoModel     string `toml:"video_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Retry controls how transient provider failures are retried.
type Retry struct {
	// Attempts is the number of additional attempts after the first failure.
	Attempts    int `toml:"attempts"`
	DelayMillis int `toml:"delay_ms"`
}

// Image contains still-image request options.
type Image struct {
	KeyframeAspectRatio string `toml:"keyframe_aspect_ratio"`
	AssetAspectRatio    string `toml:"asset_aspect_ratio"`
	Size                string `toml:"size"`
}

// Video contains video generation and polling settings.
type Video struct {
	AspectRatio            string `toml:"aspect_ratio"`
	PollIntervalSeconds    int    `toml:"poll_interval_seconds"`
	PollTimeoutSeconds     int    `toml:"poll_timeout_seconds"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds"`
}

// Pipeline contains orchestrator behaviour switches.
type Pipeline struct {
	// AnalysisMode is "append" (re-analysis adds rows) or "replace".
	AnalysisMode string `toml:"analysis_mode"`
}

// Storage contains blob store settings.
type Storage struct {
	BlobDir       string `toml:"blob_dir"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Renders        bool   `toml:"renders"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for storyreel.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Provider: generation provider credentials and model names
//   - Retry: transient failure retry policy
//   - Image / Video: request options and polling bounds
//   - Pipeline: orchestrator behaviour switches
//   - Storage: blob store directory and public URL base
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Provider      Provider      `toml:"provider"`
	Retry         Retry         `toml:"retry"`
	Image         Image         `toml:"image"`
	Video         Video         `toml:"video"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Storage       Storage       `toml:"storage"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("storyreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Storage.BlobDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "storyreel.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "storyreeld.lock")
}

// RenderLockPath returns the lock file shared by every process that renders
// scene videos against this data directory.
func (c *Config) RenderLockPath() string {
	return filepath.Join(c.Paths.DataDir, "renders.lock")
}

// RetryDelay returns the fixed delay between provider retry attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Retry.DelayMillis) * time.Millisecond
}

// ProviderTimeout returns the per-request HTTP timeout for provider calls.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// PollInterval returns the delay between video operation polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Video.PollIntervalSeconds) * time.Second
}

// PollTimeout returns the maximum wall-clock time a video operation may run.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Video.PollTimeoutSeconds) * time.Second
}

// DownloadTimeout returns the timeout used when fetching generated media.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Video.DownloadTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
