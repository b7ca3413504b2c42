package store_test

import (
	"context"
	"errors"
	"testing"

	"storyreel/internal/services"
	"storyreel/internal/store"
	"storyreel/internal/testsupport"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	project := testsupport.NewProject(t, st, "lighthouses")
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	fetched, err := reopened.GetProject(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("GetProject after reopen: %v", err)
	}
	if fetched.Topic != "lighthouses" || fetched.Status != store.ProjectScripting {
		t.Fatalf("unexpected project %#v", fetched)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := st.GetProject(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdvanceProjectStatusIsMonotonic(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	project := testsupport.NewProject(t, st, "topic")

	changed, err := st.AdvanceProjectStatus(ctx, project.ID, store.ProjectStoryboard)
	if err != nil || !changed {
		t.Fatalf("expected advance to storyboard, changed=%v err=%v", changed, err)
	}
	changed, err = st.AdvanceProjectStatus(ctx, project.ID, store.ProjectAssets)
	if err != nil {
		t.Fatalf("AdvanceProjectStatus: %v", err)
	}
	if changed {
		t.Fatal("expected backward transition to be ignored")
	}
	fetched, _ := st.GetProject(ctx, project.ID)
	if fetched.Status != store.ProjectStoryboard {
		t.Fatalf("expected storyboard, got %s", fetched.Status)
	}
	if _, err := st.AdvanceProjectStatus(ctx, "missing", store.ProjectAssets); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown project, got %v", err)
	}
}

func TestUpsertScriptBumpsVersion(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	project := testsupport.NewProject(t, st, "topic")

	script := testsupport.TwoSceneScript()
	first, err := st.UpsertScript(ctx, project.ID, script)
	if err != nil {
		t.Fatalf("UpsertScript: %v", err)
	}
	if first.Version != 1 || len(first.Scenes) != 2 {
		t.Fatalf("unexpected first script %#v", first)
	}

	script.Scenes[1].Audio = "Edited line."
	second, err := st.UpsertScript(ctx, project.ID, script)
	if err != nil {
		t.Fatalf("UpsertScript: %v", err)
	}
	if second.Version != 2 {
		t.Fatalf("expected version 2, got %d", second.Version)
	}
	if second.Scenes[1].Audio != "Edited line." || second.Scenes[1].ID != 2 {
		t.Fatalf("expected edit to keep scene id, got %#v", second.Scenes[1])
	}
	if second.TotalDuration() != 10 {
		t.Fatalf("expected 10s total, got %d", second.TotalDuration())
	}
}

func TestIdeaRoundTrip(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	project := testsupport.NewProject(t, st, "topic")

	idea := store.Idea{
		Title:       "Keeper",
		Description: "The last lighthouse keeper",
		Metrics:     store.IdeaMetrics{EstimatedEngagement: "high", ProductionDifficulty: "medium", EstimatedDuration: "45s"},
		VisualStyle: "moody",
	}
	if err := st.SaveIdea(ctx, project.ID, idea); err != nil {
		t.Fatalf("SaveIdea: %v", err)
	}
	got, err := st.GetIdea(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetIdea: %v", err)
	}
	if *got != idea {
		t.Fatalf("idea mismatch: %#v", got)
	}
}

func TestAssetsLifecycle(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	project := testsupport.NewProject(t, st, "topic")

	created, err := st.InsertAssets(ctx, project.ID, []store.Asset{
		{Name: "Protagonist (John)", Type: store.AssetCharacter, VisualPrompt: "young man, red hoodie", Appearances: []int{1}},
		{Name: "Lighthouse", Type: store.AssetLocation, VisualPrompt: "white tower"},
	})
	if err != nil {
		t.Fatalf("InsertAssets: %v", err)
	}
	if len(created) != 2 || created[0].ID == "" || created[0].Status != store.AssetPendingGeneration {
		t.Fatalf("unexpected created assets %#v", created)
	}

	if err := st.MarkAssetGenerated(ctx, created[0].ID, "http://media/a.png"); err != nil {
		t.Fatalf("MarkAssetGenerated: %v", err)
	}
	asset, err := st.GetAsset(ctx, created[0].ID)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if asset.Status != store.AssetGenerated || asset.URL != "http://media/a.png" || len(asset.Appearances) != 1 {
		t.Fatalf("unexpected asset %#v", asset)
	}

	if err := st.MarkAssetGenerated(ctx, "missing", "x"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	removed, err := st.DeleteProjectAssets(ctx, project.ID)
	if err != nil || removed != 2 {
		t.Fatalf("DeleteProjectAssets removed=%d err=%v", removed, err)
	}
	remaining, _ := st.ListAssets(ctx, project.ID)
	if len(remaining) != 0 {
		t.Fatalf("expected no assets, got %d", len(remaining))
	}
}

func TestEnsureSceneRendersIsIdempotent(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	project := testsupport.NewProject(t, st, "topic")

	if err := st.EnsureSceneRenders(ctx, project.ID, 0); err != nil {
		t.Fatalf("EnsureSceneRenders: %v", err)
	}
	if err := st.SetSceneRenderFrame(ctx, project.ID, 0, store.FrameStart, "http://media/s.png"); err != nil {
		t.Fatalf("SetSceneRenderFrame: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := st.EnsureSceneRenders(ctx, project.ID, 0, 1); err != nil {
			t.Fatalf("EnsureSceneRenders repeat: %v", err)
		}
	}

	renders, err := st.ListSceneRenders(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListSceneRenders: %v", err)
	}
	if len(renders) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(renders))
	}
	if renders[0].StartFrameURL != "http://media/s.png" || renders[0].Status != store.RenderPending {
		t.Fatalf("expected first row untouched, got %#v", renders[0])
	}
}

func TestFailStuckRenders(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	project := testsupport.NewProject(t, st, "topic")
	if err := st.EnsureSceneRenders(ctx, project.ID, 0, 1, 2); err != nil {
		t.Fatalf("EnsureSceneRenders: %v", err)
	}
	if err := st.SetSceneRenderStatus(ctx, project.ID, 0, store.RenderRenderingVideo, ""); err != nil {
		t.Fatalf("SetSceneRenderStatus: %v", err)
	}
	if err := st.SetSceneRenderStatus(ctx, project.ID, 1, store.RenderCompleted, "http://media/v.mp4"); err != nil {
		t.Fatalf("SetSceneRenderStatus: %v", err)
	}

	count, err := st.FailStuckRenders(ctx)
	if err != nil {
		t.Fatalf("FailStuckRenders: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stuck render, got %d", count)
	}
	stats, err := st.RenderStats(ctx, project.ID)
	if err != nil {
		t.Fatalf("RenderStats: %v", err)
	}
	if stats[store.RenderFailed] != 1 || stats[store.RenderCompleted] != 1 || stats[store.RenderPending] != 1 {
		t.Fatalf("unexpected stats %#v", stats)
	}
}

func TestParseFrameType(t *testing.T) {
	if ft, err := store.ParseFrameType(" END "); err != nil || ft != store.FrameEnd {
		t.Fatalf("expected end, got %q err=%v", ft, err)
	}
	if _, err := store.ParseFrameType("middle"); err == nil {
		t.Fatal("expected error for unknown frame type")
	}
}
