package pipeline

import (
	"log/slog"

	"storyreel/internal/blobstore"
	"storyreel/internal/config"
	"storyreel/internal/keyframe"
	"storyreel/internal/logging"
	"storyreel/internal/metrics"
	"storyreel/internal/notifications"
	"storyreel/internal/render"
	"storyreel/internal/services/genai"
	"storyreel/internal/store"
	"storyreel/internal/videojob"
)

// Provider is the generation surface the orchestrator calls directly and
// hands to the synthesizer and video poller.
type Provider interface {
	keyframe.Generator
	videojob.Provider
}

// Orchestrator drives projects through the generation stages.
type Orchestrator struct {
	cfg      *config.Config
	store    *store.Store
	provider Provider
	blobs    *blobstore.Store
	synth    *keyframe.Synthesizer
	ledger   *render.Ledger
	poller   *videojob.Poller
	notifier notifications.Service
	metrics  *metrics.Recorder
	logger   *slog.Logger
	locks    *sceneLocks
}

// Option customizes the orchestrator.
type Option func(*options)

type options struct {
	notifier      notifications.Service
	metrics       *metrics.Recorder
	blobs         *blobstore.Store
	pollerOptions []videojob.Option
}

// WithNotifier overrides the notification service built from config.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *options) {
		if notifier != nil {
			o.notifier = notifier
		}
	}
}

// WithMetrics records stage and render metrics on recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(o *options) {
		o.metrics = recorder
	}
}

// WithBlobStore overrides the blob store built from config.
func WithBlobStore(blobs *blobstore.Store) Option {
	return func(o *options) {
		if blobs != nil {
			o.blobs = blobs
		}
	}
}

// WithPollerOptions forwards options to the video job poller.
func WithPollerOptions(opts ...videojob.Option) Option {
	return func(o *options) {
		o.pollerOptions = append(o.pollerOptions, opts...)
	}
}

// New wires an orchestrator from configuration and its collaborators.
func New(cfg *config.Config, st *store.Store, provider Provider, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.notifier == nil {
		o.notifier = notifications.NewService(cfg)
	}
	if o.blobs == nil {
		o.blobs = blobstore.New(cfg.Storage.BlobDir, cfg.Storage.PublicBaseURL)
	}

	return &Orchestrator{
		cfg:      cfg,
		store:    st,
		provider: provider,
		blobs:    o.blobs,
		synth: keyframe.New(provider, keyframe.Options{
			TextModel:   cfg.Provider.TextModel,
			ImageModel:  cfg.Provider.ImageModel,
			AspectRatio: cfg.Image.KeyframeAspectRatio,
			ImageSize:   cfg.Image.Size,
		}, logger),
		ledger: render.NewLedger(st, logger),
		poller: videojob.New(provider, videojob.Options{
			PollInterval:    cfg.PollInterval(),
			Timeout:         cfg.PollTimeout(),
			DownloadTimeout: cfg.DownloadTimeout(),
		}, logger, o.pollerOptions...),
		notifier: o.notifier,
		metrics:  o.metrics,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		locks:    newSceneLocks(),
	}
}

// NewProvider builds the Gemini client described by cfg. recorder may be nil.
func NewProvider(cfg *config.Config, recorder *metrics.Recorder) *genai.Client {
	opts := []genai.Option{
		genai.WithRetryAttempts(cfg.Retry.Attempts),
		genai.WithRetryDelay(cfg.RetryDelay()),
	}
	if recorder != nil {
		opts = append(opts, genai.WithObserver(recorder))
	}
	return genai.NewClient(genai.Config{
		APIKey:         cfg.Provider.APIKey,
		BaseURL:        cfg.Provider.BaseURL,
		TimeoutSeconds: cfg.Provider.TimeoutSeconds,
	}, opts...)
}

// Store returns the project store.
func (o *Orchestrator) Store() *store.Store {
	return o.store
}

// Blobs returns the blob store generated media is written to.
func (o *Orchestrator) Blobs() *blobstore.Store {
	return o.blobs
}
