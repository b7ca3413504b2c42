package preflight

import (
	"context"
	"strings"

	"storyreel/internal/config"
	"storyreel/internal/services/genai"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every applicable check for cfg. The notification check is
// skipped when no ntfy topic is configured.
func RunAll(ctx context.Context, cfg *config.Config, client *genai.Client) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Media directory", cfg.Storage.BlobDir),
	}

	if client != nil {
		results = append(results, CheckProvider(ctx, "Text model", client, cfg.Provider.TextModel))
		if cfg.Provider.ScriptModel != cfg.Provider.TextModel {
			results = append(results, CheckProvider(ctx, "Script model", client, cfg.Provider.ScriptModel))
		}
		results = append(results,
			CheckProvider(ctx, "Image model", client, cfg.Provider.ImageModel),
			CheckProvider(ctx, "Video model", client, cfg.Provider.VideoModel),
		)
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
