package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"storyreel/internal/keyframe"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/services/genai"
	"storyreel/internal/store"
)

// GenerateKeyframe renders one keyframe of a scene and records its URL on the
// scene's render row. The render status is not changed.
func (o *Orchestrator) GenerateKeyframe(ctx context.Context, projectID string, sceneIndex int, frame store.FrameType) (*store.SceneRender, error) {
	ctx = sceneContext(ctx, projectID, sceneIndex)
	err := o.runStage(ctx, StageKeyframe, func(ctx context.Context, logger *slog.Logger) error {
		_, err := o.generateKeyframe(ctx, logger, projectID, sceneIndex, frame)
		return err
	})
	if err != nil {
		return nil, err
	}
	return o.ledger.Get(ctx, projectID, sceneIndex)
}

// GenerateStoryboard renders the start and end keyframes of a scene
// concurrently. Either failure fails the call; a frame that succeeded stays
// recorded.
func (o *Orchestrator) GenerateStoryboard(ctx context.Context, projectID string, sceneIndex int) (*store.SceneRender, error) {
	ctx = sceneContext(ctx, projectID, sceneIndex)
	err := o.runStage(ctx, StageStoryboard, func(ctx context.Context, logger *slog.Logger) error {
		group, groupCtx := errgroup.WithContext(ctx)
		for _, frame := range []store.FrameType{store.FrameStart, store.FrameEnd} {
			frame := frame
			group.Go(func() error {
				_, err := o.generateKeyframe(groupCtx, logger, projectID, sceneIndex, frame)
				return err
			})
		}
		return group.Wait()
	})
	if err != nil {
		return nil, err
	}
	return o.ledger.Get(ctx, projectID, sceneIndex)
}

// DecomposeAction returns the start and end visual states of a scene's action.
func (o *Orchestrator) DecomposeAction(ctx context.Context, projectID string, sceneIndex int) (keyframe.States, error) {
	ctx = sceneContext(ctx, projectID, sceneIndex)
	scene, err := o.loadScene(ctx, projectID, sceneIndex)
	if err != nil {
		return keyframe.States{}, err
	}
	return o.synth.DecomposeAction(ctx, scene)
}

func (o *Orchestrator) generateKeyframe(ctx context.Context, logger *slog.Logger, projectID string, sceneIndex int, frame store.FrameType) (string, error) {
	if frame != store.FrameStart && frame != store.FrameEnd {
		return "", services.Wrap(services.ErrValidation, StageKeyframe, "generate", fmt.Sprintf("unknown frame type %q", frame), nil)
	}
	scene, err := o.loadScene(ctx, projectID, sceneIndex)
	if err != nil {
		return "", err
	}
	if _, err := o.ledger.EnsureExists(ctx, projectID, sceneIndex); err != nil {
		return "", err
	}
	assets, err := o.store.ListAssets(ctx, projectID)
	if err != nil {
		return "", err
	}

	img, err := o.synth.Generate(ctx, scene, frame, assets)
	if err != nil {
		return "", err
	}
	stem := fmt.Sprintf("scene-%d-%s", sceneIndex, frame)
	url, err := o.blobs.Put(ctx, img.Data, img.MIMEType, o.blobs.ObjectName(projectID, stem, imageExtension(img.MIMEType)))
	if err != nil {
		return "", err
	}
	if err := o.ledger.RecordKeyframe(ctx, projectID, sceneIndex, frame, url); err != nil {
		return "", err
	}
	o.advance(ctx, logger, projectID, store.ProjectStoryboard)
	logger.Info("keyframe generated", logging.String("frame", string(frame)), logging.String("url", url))
	return url, nil
}

// GenerateSceneVideo renders the video for one scene from its prompt and any
// recorded keyframes. Calls for the same scene are serialized; a caller whose
// context ends while waiting gets ErrBusy.
//
// Once the render has begun, its outcome is always written to the ledger and
// a provider or storage failure is reported through the returned row's failed
// status rather than as an error.
func (o *Orchestrator) GenerateSceneVideo(ctx context.Context, projectID string, sceneIndex int) (*store.SceneRender, error) {
	ctx = sceneContext(ctx, projectID, sceneIndex)
	scene, err := o.loadScene(ctx, projectID, sceneIndex)
	if err != nil {
		return nil, err
	}

	release, err := o.locks.acquire(ctx, sceneKey{projectID: projectID, sceneIndex: sceneIndex})
	if err != nil {
		return nil, services.Wrap(services.ErrBusy, StageVideo, "acquire render lock", fmt.Sprintf("scene %d of %s is already rendering", sceneIndex, projectID), err)
	}
	defer release()

	terminal := false
	err = o.runStage(ctx, StageVideo, func(ctx context.Context, logger *slog.Logger) error {
		row, err := o.ledger.EnsureExists(ctx, projectID, sceneIndex)
		if err != nil {
			return err
		}
		first, last := o.fetchFrames(ctx, logger, row)
		if err := o.ledger.BeginVideoRender(ctx, projectID, sceneIndex); err != nil {
			return err
		}
		o.metrics.RenderStarted()
		outcome := store.RenderFailed
		defer func() { o.metrics.RenderFinished(string(outcome)) }()
		o.advance(ctx, logger, projectID, store.ProjectRendering)

		url, err := o.produceVideo(ctx, projectID, sceneIndex, scene, first, last)
		if err == nil {
			err = o.ledger.CompleteVideoRender(ctx, projectID, sceneIndex, url)
		}
		if err != nil {
			// The caller's context may already be done; the failure must still land.
			if failErr := o.ledger.FailVideoRender(context.WithoutCancel(ctx), projectID, sceneIndex); failErr != nil {
				return errors.Join(err, failErr)
			}
			terminal = true
			if notifyErr := o.notifier.NotifySceneFailed(context.WithoutCancel(ctx), projectID, sceneIndex, err); notifyErr != nil {
				logger.Debug("render failure notification failed", logging.Error(notifyErr))
			}
			return err
		}

		outcome = store.RenderCompleted
		terminal = true
		logger.Info("scene video rendered", logging.String("url", url))
		if notifyErr := o.notifier.NotifySceneRendered(ctx, projectID, sceneIndex, url); notifyErr != nil {
			logger.Debug("render notification failed", logging.Error(notifyErr))
		}
		o.completeProjectIfDone(ctx, logger, projectID)
		return nil
	})
	if err != nil && !terminal {
		return nil, err
	}
	return o.ledger.Get(context.WithoutCancel(ctx), projectID, sceneIndex)
}

func (o *Orchestrator) produceVideo(ctx context.Context, projectID string, sceneIndex int, scene store.Scene, first, last *genai.Image) (string, error) {
	data, err := o.poller.Run(ctx, genai.VideoRequest{
		Model:       o.cfg.Provider.VideoModel,
		Prompt:      videoPrompt(scene),
		AspectRatio: o.cfg.Video.AspectRatio,
		FirstFrame:  first,
		LastFrame:   last,
	})
	if err != nil {
		return "", err
	}
	stem := fmt.Sprintf("scene-%d-video", sceneIndex)
	return o.blobs.Put(ctx, data, "video/mp4", o.blobs.ObjectName(projectID, stem, "mp4"))
}

// fetchFrames loads whichever keyframes are recorded. A frame that cannot be
// read is skipped with a warning.
func (o *Orchestrator) fetchFrames(ctx context.Context, logger *slog.Logger, row *store.SceneRender) (first, last *genai.Image) {
	var group errgroup.Group
	fetch := func(frame store.FrameType, dst **genai.Image) {
		url := row.FrameURL(frame)
		if url == "" {
			return
		}
		group.Go(func() error {
			data, err := o.blobs.Fetch(ctx, url)
			if err != nil {
				logging.WarnWithContext(logger, "keyframe unavailable for video", "keyframe_fetch_failed",
					logging.String("frame", string(frame)),
					logging.Error(err),
					logging.String(logging.FieldImpact, "video renders without this reference frame"),
					logging.String(logging.FieldErrorHint, "regenerate the keyframe"),
				)
				return nil
			}
			*dst = &genai.Image{Data: data, MIMEType: http.DetectContentType(data)}
			return nil
		})
	}
	fetch(store.FrameStart, &first)
	fetch(store.FrameEnd, &last)
	_ = group.Wait()

	logger.Debug("reference frames loaded",
		logging.Bool("start_frame", first != nil),
		logging.Bool("end_frame", last != nil),
	)
	return first, last
}

func (o *Orchestrator) completeProjectIfDone(ctx context.Context, logger *slog.Logger, projectID string) {
	script, err := o.store.GetScript(ctx, projectID)
	if err != nil {
		logger.Debug("completion check skipped", logging.Error(err))
		return
	}
	stats, err := o.store.RenderStats(ctx, projectID)
	if err != nil {
		logger.Debug("completion check skipped", logging.Error(err))
		return
	}
	if stats[store.RenderCompleted] < len(script.Scenes) {
		return
	}
	if !o.advance(ctx, logger, projectID, store.ProjectCompleted) {
		return
	}
	project, err := o.store.GetProject(ctx, projectID)
	if err != nil {
		return
	}
	if err := o.notifier.NotifyProjectCompleted(ctx, projectID, project.Topic); err != nil {
		logger.Debug("project completion notification failed", logging.Error(err))
	}
}

func (o *Orchestrator) loadScene(ctx context.Context, projectID string, sceneIndex int) (store.Scene, error) {
	script, err := o.store.GetScript(ctx, projectID)
	if err != nil {
		return store.Scene{}, err
	}
	if sceneIndex < 0 || sceneIndex >= len(script.Scenes) {
		return store.Scene{}, services.Wrap(services.ErrNotFound, "pipeline", "load scene",
			fmt.Sprintf("scene index %d out of range (script has %d scenes)", sceneIndex, len(script.Scenes)), nil)
	}
	return script.Scenes[sceneIndex], nil
}

func sceneContext(ctx context.Context, projectID string, sceneIndex int) context.Context {
	return services.WithSceneIndex(services.WithProjectID(ctx, projectID), sceneIndex)
}
