package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storyreel/internal/services"
)

const (
	defaultBaseURL       = "https://generativelanguage.googleapis.com/v1beta"
	defaultHTTPTimeout   = 120 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = time.Second
	apiKeyHeader         = "x-goog-api-key"
)

// Config captures the runtime settings required to talk to the provider.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// Observer receives per-attempt telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveProviderCall(kind, outcome string, elapsed time.Duration)
	ObserveProviderRetry(kind string)
}

// Client is the Gemini REST client. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryAttempts int
	retryDelay    time.Duration
	sleeper       func(time.Duration)
	observer      Observer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryAttempts sets how many additional attempts follow a transient
// failure (defaults to 3, so at most 4 requests).
func WithRetryAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts >= 0 {
			c.retryAttempts = attempts
		}
	}
}

// WithRetryDelay sets the fixed delay between attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) {
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithObserver attaches a telemetry observer.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient constructs a provider client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:    &http.Client{Timeout: timeout},
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

func (e *httpStatusError) transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// withRetry runs call until it succeeds, fails non-transiently, or the retry
// budget is spent. The last error is returned on exhaustion.
func withRetry[T any](ctx context.Context, c *Client, kind string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := c.retryAttempts + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		started := time.Now()
		result, err := call(ctx)
		c.observe(kind, err, time.Since(started))
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt == attempts || !shouldRetry(ctx, err) {
			break
		}
		if c.observer != nil {
			c.observer.ObserveProviderRetry(kind)
		}
		if err := c.sleep(ctx, c.retryDelay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.transient()
	}
	return false
}

func (c *Client) observe(kind string, err error, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = services.Kind(err)
	}
	c.observer.ObserveProviderCall(kind, outcome, elapsed)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// send performs one HTTP exchange and returns the body of a 2xx response.
// Failures are tagged: 429/5xx as transient, other statuses as permanent.
func (c *Client) send(ctx context.Context, method, endpoint, op string, payload any) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "provider", op, "api key required", nil)
	}
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, services.Wrap(services.ErrPermanent, "provider", op, "encode request", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, services.Wrap(services.ErrPermanent, "provider", op, "build request", err)
	}
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransient, "provider", op, fmt.Sprintf("http error (timeout=%s)", c.httpClient.Timeout), err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "provider", op, "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		marker := services.ErrPermanent
		if statusErr.transient() {
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "provider", op, "", statusErr)
	}
	return data, nil
}

func (c *Client) modelEndpoint(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", c.cfg.BaseURL, strings.TrimSpace(model), method)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}

// HealthCheck fetches model metadata to verify the key and model name without
// spending a generation. It is never retried.
func (c *Client) HealthCheck(ctx context.Context, model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return services.Wrap(services.ErrValidation, "provider", "health check", "model required", nil)
	}
	_, err := c.send(ctx, http.MethodGet, fmt.Sprintf("%s/models/%s", c.cfg.BaseURL, model), "health check", nil)
	return err
}
