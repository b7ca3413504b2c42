package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"storyreel/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	chdir(t, t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "storyreel")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "storyreel.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Provider.APIKey != "test-key" {
		t.Fatalf("expected provider key from env, got %q", cfg.Provider.APIKey)
	}
	if cfg.Retry.Attempts != 3 {
		t.Fatalf("expected 3 retry attempts by default, got %d", cfg.Retry.Attempts)
	}
	if cfg.RetryDelay() != time.Second {
		t.Fatalf("expected 1s retry delay, got %s", cfg.RetryDelay())
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Fatalf("expected 5s poll interval, got %s", cfg.PollInterval())
	}
	if cfg.PollTimeout() <= cfg.PollInterval() {
		t.Fatalf("expected poll timeout above interval, got %s", cfg.PollTimeout())
	}
	if cfg.Pipeline.AnalysisMode != config.AnalysisModeAppend {
		t.Fatalf("expected append analysis mode, got %q", cfg.Pipeline.AnalysisMode)
	}
	if cfg.Image.KeyframeAspectRatio != "9:16" {
		t.Fatalf("expected vertical keyframes, got %q", cfg.Image.KeyframeAspectRatio)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	os.Unsetenv("GEMINI_API_KEY")
	os.Unsetenv("GOOGLE_API_KEY")

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error when api key missing")
	}
	if !strings.Contains(err.Error(), "provider.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	type fileConfig struct {
		Provider struct {
			APIKey string `toml:"api_key"`
		} `toml:"provider"`
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Video struct {
			PollIntervalSeconds int `toml:"poll_interval_seconds"`
			PollTimeoutSeconds  int `toml:"poll_timeout_seconds"`
		} `toml:"video"`
		Pipeline struct {
			AnalysisMode string `toml:"analysis_mode"`
		} `toml:"pipeline"`
	}
	var fc fileConfig
	fc.Provider.APIKey = "file-key"
	fc.Paths.DataDir = "~/reels"
	fc.Video.PollIntervalSeconds = 2
	fc.Video.PollTimeoutSeconds = 30
	fc.Pipeline.AnalysisMode = " Replace "

	payload, err := toml.Marshal(fc)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "storyreel.toml")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config file to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Provider.APIKey != "file-key" {
		t.Fatalf("unexpected api key %q", cfg.Provider.APIKey)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "reels") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.PollInterval() != 2*time.Second || cfg.PollTimeout() != 30*time.Second {
		t.Fatalf("unexpected poll bounds %s / %s", cfg.PollInterval(), cfg.PollTimeout())
	}
	if cfg.Pipeline.AnalysisMode != config.AnalysisModeReplace {
		t.Fatalf("expected replace mode, got %q", cfg.Pipeline.AnalysisMode)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"negative retries", func(c *config.Config) { c.Retry.Attempts = -1 }, "retry.attempts"},
		{"poll timeout below interval", func(c *config.Config) { c.Video.PollTimeoutSeconds = 1 }, "poll_timeout_seconds"},
		{"relative public url", func(c *config.Config) { c.Storage.PublicBaseURL = "/media" }, "public_base_url"},
		{"unknown analysis mode", func(c *config.Config) { c.Pipeline.AnalysisMode = "upsert" }, "analysis_mode"},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Provider.APIKey = "key"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleWritesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "sample-key")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Provider.VideoModel == "" {
		t.Fatal("expected video model from sample")
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PWD", dir)
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			panic("testing.Chdir: " + err.Error())
		}
	})
}
