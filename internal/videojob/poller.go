// Package videojob drives a long-running video generation to completion:
// submit, poll at a fixed interval until the operation is done or the wall
// clock budget is spent, then download the produced media.
package videojob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/services/genai"
)

// Provider is the subset of the provider client the poller needs.
type Provider interface {
	SubmitVideo(ctx context.Context, req genai.VideoRequest) (genai.Operation, error)
	GetOperation(ctx context.Context, name string) (genai.Operation, error)
	Download(ctx context.Context, uri string) ([]byte, error)
}

// Options bound the poll loop.
type Options struct {
	PollInterval    time.Duration
	Timeout         time.Duration
	DownloadTimeout time.Duration
}

// Poller runs one video job per call. It holds no per-job state.
type Poller struct {
	provider Provider
	opts     Options
	sleep    func(context.Context, time.Duration) error
	now      func() time.Time
	logger   *slog.Logger
}

// Option customizes the poller.
type Option func(*Poller)

// WithSleeper replaces the wait between polls (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Poller) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithClock replaces the time source used for the timeout budget.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// New constructs a Poller.
func New(provider Provider, opts Options, logger *slog.Logger, options ...Option) *Poller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	p := &Poller{
		provider: provider,
		opts:     opts,
		sleep:    sleepContext,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "videojob"),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Run submits req, waits for the operation, and returns the downloaded video.
func (p *Poller) Run(ctx context.Context, req genai.VideoRequest) ([]byte, error) {
	op, err := p.provider.SubmitVideo(ctx, req)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("video operation started", logging.String("operation", op.Name))

	op, err = p.Wait(ctx, op)
	if err != nil {
		return nil, err
	}

	downloadCtx := ctx
	if p.opts.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		downloadCtx, cancel = context.WithTimeout(ctx, p.opts.DownloadTimeout)
		defer cancel()
	}
	data, err := p.provider.Download(downloadCtx, op.VideoURI)
	if err != nil {
		return nil, err
	}
	logger.Info("video downloaded", logging.String("operation", op.Name), logging.Int("bytes", len(data)))
	return data, nil
}

// Wait polls op until it is done. A finished operation carrying an error, or
// lacking a video URI, is returned as an error. Exceeding the timeout yields
// ErrTimeout.
func (p *Poller) Wait(ctx context.Context, op genai.Operation) (genai.Operation, error) {
	started := p.now()
	polls := 0
	for !op.Done {
		if elapsed := p.now().Sub(started); elapsed >= p.opts.Timeout {
			return op, services.Wrap(services.ErrTimeout, "video", "poll",
				fmt.Sprintf("operation %s not done after %s (%d polls)", op.Name, elapsed.Round(time.Second), polls), nil)
		}
		if err := p.sleep(ctx, p.opts.PollInterval); err != nil {
			return op, err
		}
		next, err := p.provider.GetOperation(ctx, op.Name)
		if err != nil {
			return op, err
		}
		op = next
		polls++
		p.logger.Debug("video operation polled",
			logging.String("operation", op.Name),
			logging.Bool("done", op.Done),
			logging.Int("polls", polls),
		)
	}
	if op.Error != "" {
		return op, services.Wrap(services.ErrPermanent, "video", "operation", "generation failed: "+op.Error, nil)
	}
	if op.VideoURI == "" {
		return op, services.Wrap(services.ErrNoContent, "video", "operation", "no video uri returned", nil)
	}
	return op, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
