package config

const (
	defaultConfigPath             = "~/.config/storyreel/config.toml"
	defaultDataDir                = "~/.local/share/storyreel"
	defaultLogDir                 = "~/.local/share/storyreel/logs"
	defaultBlobDir                = "~/.local/share/storyreel/media"
	defaultAPIBind                = "127.0.0.1:7600"
	defaultPublicBaseURL          = "http://127.0.0.1:7600/media"
	defaultProviderBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	defaultTextModel              = "gemini-2.5-flash"
	defaultScriptModel            = "gemini-3-pro-preview"
	defaultImageModel             = "gemini-3-pro-image-preview"
	defaultVideoModel             = "veo-3.1-fast-generate-preview"
	defaultProviderTimeout        = 120
	defaultRetryAttempts          = 3
	defaultRetryDelayMillis       = 1000
	defaultKeyframeAspectRatio    = "9:16"
	defaultAssetAspectRatio       = "16:9"
	defaultImageSize              = "1K"
	defaultVideoAspectRatio       = "9:16"
	defaultPollIntervalSeconds    = 5
	defaultPollTimeoutSeconds     = 600
	defaultDownloadTimeoutSeconds = 120
	defaultAnalysisMode           = AnalysisModeAppend
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Analysis modes accepted by pipeline.analysis_mode.
const (
	AnalysisModeAppend  = "append"
	AnalysisModeReplace = "replace"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Provider: Provider{
			BaseURL:        defaultProviderBaseURL,
			TextModel:      defaultTextModel,
			ScriptModel:    defaultScriptModel,
			ImageModel:     defaultImageModel,
			VideoModel:     defaultVideoModel,
			TimeoutSeconds: defaultProviderTimeout,
		},
		Retry: Retry{
			Attempts:    defaultRetryAttempts,
			DelayMillis: defaultRetryDelayMillis,
		},
		Image: Image{
			KeyframeAspectRatio: defaultKeyframeAspectRatio,
			AssetAspectRatio:    defaultAssetAspectRatio,
			Size:                defaultImageSize,
		},
		Video: Video{
			AspectRatio:            defaultVideoAspectRatio,
			PollIntervalSeconds:    defaultPollIntervalSeconds,
			PollTimeoutSeconds:     defaultPollTimeoutSeconds,
			DownloadTimeoutSeconds: defaultDownloadTimeoutSeconds,
		},
		Pipeline: Pipeline{
			AnalysisMode: defaultAnalysisMode,
		},
		Storage: Storage{
			BlobDir:       defaultBlobDir,
			PublicBaseURL: defaultPublicBaseURL,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Renders:        true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
