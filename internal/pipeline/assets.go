package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/services/genai"
	"storyreel/internal/store"
)

type assetDraft struct {
	Name         string `json:"name" jsonschema:"description=Entity name with an optional alias in parentheses"`
	Type         string `json:"type" jsonschema:"enum=character,enum=item,enum=location"`
	Description  string `json:"description" jsonschema:"description=Short description of the entity's role"`
	VisualPrompt string `json:"visual_prompt" jsonschema:"description=Detailed visual description for an image generator"`
	Appearances  []int  `json:"appearances" jsonschema:"description=Scene ids the entity appears in"`
}

type analysisResponse struct {
	Entities []assetDraft `json:"entities"`
}

// AnalyzeScript extracts the recurring characters, items, and locations of the
// project's script and stores them as pending assets. In append mode repeated
// calls add rows; in replace mode the previous catalog is swapped out in one
// transaction.
func (o *Orchestrator) AnalyzeScript(ctx context.Context, projectID string) ([]store.Asset, error) {
	ctx = services.WithProjectID(ctx, projectID)
	var created []store.Asset
	err := o.runStage(ctx, StageAnalyze, func(ctx context.Context, logger *slog.Logger) error {
		script, err := o.store.GetScript(ctx, projectID)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(scriptResponse{Title: script.Title, Scenes: script.Scenes})
		if err != nil {
			return services.Wrap(services.ErrValidation, StageAnalyze, "encode script", "", err)
		}

		var resp analysisResponse
		if err := o.provider.GenerateJSON(ctx, o.cfg.Provider.TextModel, analysisPrompt(string(payload)), &resp); err != nil {
			return err
		}
		drafts := assetsFromDrafts(resp.Entities)
		if len(drafts) == 0 {
			logging.WarnWithContext(logger, "script analysis found no assets", "analysis_empty",
				logging.String(logging.FieldImpact, "keyframes are generated without reference assets"),
				logging.String(logging.FieldErrorHint, "name recurring characters explicitly in scene visuals"),
			)
			return nil
		}

		if o.cfg.Pipeline.AnalysisMode == config.AnalysisModeReplace {
			var removed int64
			created, removed, err = o.store.ReplaceProjectAssets(ctx, projectID, drafts)
			if err != nil {
				return err
			}
			logger.Info("previous assets removed", logging.Int64("removed", removed))
		} else {
			created, err = o.store.InsertAssets(ctx, projectID, drafts)
			if err != nil {
				return err
			}
		}
		o.advance(ctx, logger, projectID, store.ProjectAssets)
		logger.Info("script analyzed",
			logging.Int("assets", len(created)),
			logging.String("mode", o.cfg.Pipeline.AnalysisMode),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GenerateAssetImage renders concept art for one asset, stores it, and marks
// the asset generated. Failures leave the asset pending.
func (o *Orchestrator) GenerateAssetImage(ctx context.Context, assetID string) (*store.Asset, error) {
	asset, err := o.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	ctx = services.WithProjectID(ctx, asset.ProjectID)
	err = o.runStage(ctx, StageAsset, func(ctx context.Context, logger *slog.Logger) error {
		logger = logger.With(logging.AssetID(asset.ID))
		if strings.TrimSpace(asset.VisualPrompt) == "" {
			return services.Wrap(services.ErrValidation, StageAsset, "generate", "asset has no visual prompt", nil)
		}
		img, err := o.provider.GenerateImage(ctx, genai.ImageRequest{
			Model:       o.cfg.Provider.ImageModel,
			Prompt:      conceptArtPrompt(asset),
			AspectRatio: o.cfg.Image.AssetAspectRatio,
			Size:        o.cfg.Image.Size,
		})
		if err != nil {
			return err
		}
		url, err := o.blobs.Put(ctx, img.Data, img.MIMEType, o.blobs.ObjectName(asset.ProjectID, asset.ID, imageExtension(img.MIMEType)))
		if err != nil {
			return err
		}
		if err := o.store.MarkAssetGenerated(ctx, asset.ID, url); err != nil {
			return err
		}
		logger.Info("asset image generated", logging.String("name", asset.Name), logging.String("url", url))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o.store.GetAsset(ctx, assetID)
}

func assetsFromDrafts(drafts []assetDraft) []store.Asset {
	assets := make([]store.Asset, 0, len(drafts))
	for _, draft := range drafts {
		name := strings.TrimSpace(draft.Name)
		if name == "" {
			continue
		}
		assets = append(assets, store.Asset{
			Name:         name,
			Type:         store.NormalizeAssetType(draft.Type),
			Description:  strings.TrimSpace(draft.Description),
			VisualPrompt: strings.TrimSpace(draft.VisualPrompt),
			Appearances:  draft.Appearances,
		})
	}
	return assets
}

func imageExtension(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
