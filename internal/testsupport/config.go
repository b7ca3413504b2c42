package testsupport

import (
	"path/filepath"
	"testing"

	"storyreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry and poll delays are shortened so provider tests finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Provider.APIKey = "test-key"
	cfgVal.Provider.BaseURL = "http://127.0.0.1:0"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Storage.BlobDir = filepath.Join(base, "blobs")
	cfgVal.Storage.PublicBaseURL = "http://media.test/media"
	cfgVal.Retry.DelayMillis = 0
	cfgVal.Video.PollIntervalSeconds = 1
	cfgVal.Video.PollTimeoutSeconds = 30

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithProviderURL points the provider client at a fake server.
func WithProviderURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Provider.BaseURL = url
	}
}

// WithAnalysisMode overrides pipeline.analysis_mode.
func WithAnalysisMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.AnalysisMode = mode
	}
}

// WithNtfyTopic enables render notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
