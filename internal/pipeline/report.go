package pipeline

import (
	"context"
	"errors"

	"storyreel/internal/services"
	"storyreel/internal/store"
)

// ProjectReport is a snapshot of everything stored for a project.
type ProjectReport struct {
	Project *store.Project             `json:"project"`
	Idea    *store.Idea                `json:"idea,omitempty"`
	Script  *store.Script              `json:"script,omitempty"`
	Assets  []*store.Asset             `json:"assets"`
	Renders []*store.SceneRender       `json:"renders"`
	Stats   map[store.RenderStatus]int `json:"render_stats"`
}

// Report gathers the project, its script, assets, and render rows. A missing
// idea or script is not an error.
func (o *Orchestrator) Report(ctx context.Context, projectID string) (*ProjectReport, error) {
	project, err := o.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	report := &ProjectReport{Project: project}

	if report.Idea, err = optional(o.store.GetIdea(ctx, projectID)); err != nil {
		return nil, err
	}
	if report.Script, err = optional(o.store.GetScript(ctx, projectID)); err != nil {
		return nil, err
	}
	if report.Assets, err = o.store.ListAssets(ctx, projectID); err != nil {
		return nil, err
	}
	if report.Renders, err = o.store.ListSceneRenders(ctx, projectID); err != nil {
		return nil, err
	}
	if report.Stats, err = o.store.RenderStats(ctx, projectID); err != nil {
		return nil, err
	}
	return report, nil
}

func optional[T any](value *T, err error) (*T, error) {
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	return value, err
}
