// Package render owns the lifecycle of a scene's render ledger row.
//
// States: pending -> rendering_video -> completed | failed. Keyframe URLs are
// recorded independently of the status. Entering rendering_video is a
// conditional claim on the row, so two processes sharing a database cannot
// render the same scene at once. Terminal writes are unguarded and a later
// one simply replaces an earlier one.
package render

import (
	"context"
	"log/slog"
	"strings"

	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/store"
)

// Store is the persistence the ledger needs.
type Store interface {
	EnsureSceneRenders(ctx context.Context, projectID string, indexes ...int) error
	GetSceneRender(ctx context.Context, projectID string, sceneIndex int) (*store.SceneRender, error)
	SetSceneRenderFrame(ctx context.Context, projectID string, sceneIndex int, frame store.FrameType, url string) error
	SetSceneRenderStatus(ctx context.Context, projectID string, sceneIndex int, status store.RenderStatus, videoURL string) error
	ClaimSceneRender(ctx context.Context, projectID string, sceneIndex int) error
}

// Ledger applies render transitions.
type Ledger struct {
	store  Store
	logger *slog.Logger
}

// NewLedger constructs a Ledger.
func NewLedger(st Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: st, logger: logging.NewComponentLogger(logger, "render")}
}

// EnsureExists creates the row when missing and returns the current row. An
// existing row is never modified.
func (l *Ledger) EnsureExists(ctx context.Context, projectID string, sceneIndex int) (*store.SceneRender, error) {
	if err := l.store.EnsureSceneRenders(ctx, projectID, sceneIndex); err != nil {
		return nil, err
	}
	return l.store.GetSceneRender(ctx, projectID, sceneIndex)
}

// Get returns the current row.
func (l *Ledger) Get(ctx context.Context, projectID string, sceneIndex int) (*store.SceneRender, error) {
	return l.store.GetSceneRender(ctx, projectID, sceneIndex)
}

// RecordKeyframe stores one frame URL without touching status.
func (l *Ledger) RecordKeyframe(ctx context.Context, projectID string, sceneIndex int, frame store.FrameType, url string) error {
	if strings.TrimSpace(url) == "" {
		return services.Wrap(services.ErrValidation, "render", "record keyframe", "url required", nil)
	}
	if err := l.store.EnsureSceneRenders(ctx, projectID, sceneIndex); err != nil {
		return err
	}
	if err := l.store.SetSceneRenderFrame(ctx, projectID, sceneIndex, frame, url); err != nil {
		return err
	}
	l.logger.Debug("keyframe recorded",
		logging.ProjectID(projectID),
		logging.SceneIndex(sceneIndex),
		logging.String("frame", string(frame)),
	)
	return nil
}

// BeginVideoRender claims the scene for rendering. It returns ErrBusy when
// the row is already rendering_video.
func (l *Ledger) BeginVideoRender(ctx context.Context, projectID string, sceneIndex int) error {
	if err := l.store.ClaimSceneRender(ctx, projectID, sceneIndex); err != nil {
		return err
	}
	l.logger.Info("scene render status changed",
		logging.ProjectID(projectID),
		logging.SceneIndex(sceneIndex),
		logging.String("status", string(store.RenderRenderingVideo)),
	)
	return nil
}

// CompleteVideoRender marks the scene completed with its final video URL.
func (l *Ledger) CompleteVideoRender(ctx context.Context, projectID string, sceneIndex int, url string) error {
	if strings.TrimSpace(url) == "" {
		return services.Wrap(services.ErrValidation, "render", "complete video", "video url required", nil)
	}
	return l.transition(ctx, projectID, sceneIndex, store.RenderCompleted, url)
}

// FailVideoRender marks the scene failed. No error detail is kept.
func (l *Ledger) FailVideoRender(ctx context.Context, projectID string, sceneIndex int) error {
	return l.transition(ctx, projectID, sceneIndex, store.RenderFailed, "")
}

func (l *Ledger) transition(ctx context.Context, projectID string, sceneIndex int, status store.RenderStatus, videoURL string) error {
	if err := l.store.SetSceneRenderStatus(ctx, projectID, sceneIndex, status, videoURL); err != nil {
		return err
	}
	l.logger.Info("scene render status changed",
		logging.ProjectID(projectID),
		logging.SceneIndex(sceneIndex),
		logging.String("status", string(status)),
	)
	return nil
}
