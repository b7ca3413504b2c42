package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/store"
)

const (
	minScriptSeconds = 30
	maxScriptSeconds = 60
)

var allowedDurations = []int{4, 6, 8}

type ideasResponse struct {
	Ideas []store.Idea `json:"ideas"`
}

type scriptResponse struct {
	Title  string        `json:"title"`
	Scenes []store.Scene `json:"scenes"`
}

// GenerateIdeas asks the script model for three concepts for topic.
func (o *Orchestrator) GenerateIdeas(ctx context.Context, topic string) ([]store.Idea, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Wrap(services.ErrValidation, StageIdeas, "generate", "topic required", nil)
	}
	var ideas []store.Idea
	err := o.runStage(ctx, StageIdeas, func(ctx context.Context, logger *slog.Logger) error {
		var resp ideasResponse
		if err := o.provider.GenerateJSON(ctx, o.cfg.Provider.ScriptModel, ideasPrompt(topic), &resp); err != nil {
			return err
		}
		for _, idea := range resp.Ideas {
			idea.Title = strings.TrimSpace(idea.Title)
			idea.Description = strings.TrimSpace(idea.Description)
			if idea.Title == "" && idea.Description == "" {
				continue
			}
			ideas = append(ideas, idea)
		}
		if len(ideas) == 0 {
			return services.Wrap(services.ErrNoContent, StageIdeas, "generate", "no usable ideas returned", nil)
		}
		logger.Info("ideas generated", logging.Int("count", len(ideas)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ideas, nil
}

// CreateProject creates a project in the scripting state and stores the
// selected idea. A failed idea save is logged and does not fail the call.
func (o *Orchestrator) CreateProject(ctx context.Context, owner, topic string, idea *store.Idea) (*store.Project, error) {
	var project *store.Project
	err := o.runStage(ctx, StageProject, func(ctx context.Context, logger *slog.Logger) error {
		created, err := o.store.CreateProject(ctx, owner, topic)
		if err != nil {
			return err
		}
		project = created
		logger = logger.With(logging.ProjectID(created.ID))
		logger.Info("project created", logging.String("topic", created.Topic))

		if idea == nil {
			return nil
		}
		if err := o.store.SaveIdea(ctx, created.ID, *idea); err != nil {
			logging.WarnWithContext(logger, "idea not saved", "idea_save_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "project has no stored concept"),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// GenerateScript asks the script model for a scene breakdown of the concept.
// Durations are snapped to 4, 6, or 8 seconds; a total outside 30-60s is
// only logged.
func (o *Orchestrator) GenerateScript(ctx context.Context, topic, ideaDescription string) (*store.Script, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Wrap(services.ErrValidation, StageScript, "generate", "topic required", nil)
	}
	var script store.Script
	err := o.runStage(ctx, StageScript, func(ctx context.Context, logger *slog.Logger) error {
		var resp scriptResponse
		if err := o.provider.GenerateJSON(ctx, o.cfg.Provider.ScriptModel, scriptPrompt(topic, strings.TrimSpace(ideaDescription)), &resp); err != nil {
			return err
		}
		if len(resp.Scenes) == 0 {
			return services.Wrap(services.ErrNoContent, StageScript, "generate", "script has no scenes", nil)
		}
		script = normalizeScript(store.Script{Title: resp.Title, Scenes: resp.Scenes})
		o.checkScriptDuration(logger, script)
		logger.Info("script generated",
			logging.Int("scenes", len(script.Scenes)),
			logging.Int("total_seconds", script.TotalDuration()),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &script, nil
}

// SaveScript stores the script for the project, creates a pending render row
// per scene, and advances the project to the assets stage.
func (o *Orchestrator) SaveScript(ctx context.Context, projectID string, script store.Script) (*store.Script, error) {
	if len(script.Scenes) == 0 {
		return nil, services.Wrap(services.ErrValidation, StageScript, "save", "script has no scenes", nil)
	}
	ctx = services.WithProjectID(ctx, projectID)
	var saved *store.Script
	err := o.runStage(ctx, StageScript, func(ctx context.Context, logger *slog.Logger) error {
		if _, err := o.store.GetProject(ctx, projectID); err != nil {
			return err
		}
		script = normalizeScript(script)
		o.checkScriptDuration(logger, script)
		stored, err := o.store.UpsertScript(ctx, projectID, script)
		if err != nil {
			return err
		}
		saved = stored
		if err := o.InitializeRenders(ctx, projectID, len(stored.Scenes)); err != nil {
			return err
		}
		o.advance(ctx, logger, projectID, store.ProjectAssets)
		logger.Info("script saved", logging.Int("version", stored.Version), logging.Int("scenes", len(stored.Scenes)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// InitializeRenders ensures a pending render row exists for every scene
// index below sceneCount. Existing rows are left untouched.
func (o *Orchestrator) InitializeRenders(ctx context.Context, projectID string, sceneCount int) error {
	if sceneCount <= 0 {
		return nil
	}
	indexes := make([]int, sceneCount)
	for i := range indexes {
		indexes[i] = i
	}
	return o.store.EnsureSceneRenders(ctx, projectID, indexes...)
}

func (o *Orchestrator) checkScriptDuration(logger *slog.Logger, script store.Script) {
	total := script.TotalDuration()
	if total >= minScriptSeconds && total <= maxScriptSeconds {
		return
	}
	logging.WarnWithContext(logger, "script duration outside target range", "script_duration_out_of_range",
		logging.Int("total_seconds", total),
		logging.String("target", fmt.Sprintf("%d-%ds", minScriptSeconds, maxScriptSeconds)),
		logging.String(logging.FieldErrorHint, "add or remove scenes before rendering"),
		logging.String(logging.FieldImpact, "final video may be too short or too long"),
	)
}

// advance moves the project forward; failures are logged because status is
// informational for callers.
func (o *Orchestrator) advance(ctx context.Context, logger *slog.Logger, projectID string, status store.ProjectStatus) bool {
	moved, err := o.store.AdvanceProjectStatus(ctx, projectID, status)
	if err != nil {
		logging.WarnWithContext(logger, "project status not advanced", "project_status_failed",
			logging.String("status", string(status)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "project status lags behind scene progress"),
		)
		return false
	}
	if moved {
		logger.Info("project status advanced", logging.String("status", string(status)))
	}
	return moved
}

func normalizeScript(script store.Script) store.Script {
	script.Title = strings.TrimSpace(script.Title)
	scenes := make([]store.Scene, len(script.Scenes))
	for i, scene := range script.Scenes {
		if scene.ID <= 0 {
			scene.ID = i + 1
		}
		scene.Visual = strings.TrimSpace(scene.Visual)
		scene.Audio = strings.TrimSpace(scene.Audio)
		scene.StartFramePrompt = strings.TrimSpace(scene.StartFramePrompt)
		scene.EndFramePrompt = strings.TrimSpace(scene.EndFramePrompt)
		scene.Duration = snapDuration(scene.Duration)
		if scene.Characters == nil {
			scene.Characters = []string{}
		}
		scenes[i] = scene
	}
	script.Scenes = scenes
	return script
}

// snapDuration returns the allowed duration closest to seconds; ties round up.
func snapDuration(seconds int) int {
	best := allowedDurations[0]
	for _, candidate := range allowedDurations[1:] {
		if abs(seconds-candidate) <= abs(seconds-best) {
			best = candidate
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
