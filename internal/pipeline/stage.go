package pipeline

import (
	"context"
	"log/slog"
	"time"

	"storyreel/internal/logging"
	"storyreel/internal/services"
)

// Stage names used for logging, metrics, and error context.
const (
	StageIdeas      = "ideas"
	StageProject    = "project"
	StageScript     = "script"
	StageAnalyze    = "analyze"
	StageAsset      = "asset_image"
	StageKeyframe   = "keyframe"
	StageStoryboard = "storyboard"
	StageVideo      = "scene_video"
)

// runStage wraps fn with stage_start/stage_complete/stage_failure logging and
// a duration observation.
func (o *Orchestrator) runStage(ctx context.Context, stage string, fn func(context.Context, *slog.Logger) error) error {
	ctx = services.WithStage(ctx, stage)
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	started := time.Now()
	err := fn(ctx, logger)
	elapsed := time.Since(started)
	if err != nil {
		kind := services.Kind(err)
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.ErrorKind(err),
			logging.Duration("duration", elapsed),
			logging.String(logging.FieldErrorHint, stageHint(kind)),
			logging.Error(err),
		)
		o.metrics.ObserveStage(stage, kind, elapsed)
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", elapsed),
	)
	o.metrics.ObserveStage(stage, "success", elapsed)
	return nil
}

func stageHint(kind string) string {
	switch kind {
	case "transient":
		return "provider is overloaded or rate limited; retry later"
	case "permanent":
		return "provider rejected the request; adjust the prompt or scene text"
	case "no_content":
		return "provider returned nothing usable; retry or rephrase"
	case "timeout":
		return "video operation exceeded video.poll_timeout_seconds"
	case "storage":
		return "check storage.blob_dir permissions and free space"
	case "configuration":
		return "check provider settings in the config file"
	case "not_found":
		return "create the referenced project, script, or asset first"
	default:
		return "check logs for details"
	}
}
