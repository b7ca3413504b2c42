package store

import (
	"context"
	"path/filepath"
	"testing"

	"storyreel/internal/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Storage.BlobDir = filepath.Join(base, "blobs")
	st, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestReplaceProjectAssetsSwapsCatalog(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	project, err := st.CreateProject(ctx, "", "topic")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := st.InsertAssets(ctx, project.ID, []Asset{{Name: "Old", Type: AssetItem}, {Name: "Older", Type: AssetItem}}); err != nil {
		t.Fatalf("InsertAssets: %v", err)
	}

	created, removed, err := st.ReplaceProjectAssets(ctx, project.ID, []Asset{{Name: "New", Type: AssetCharacter}})
	if err != nil {
		t.Fatalf("ReplaceProjectAssets: %v", err)
	}
	if removed != 2 || len(created) != 1 {
		t.Fatalf("expected 2 removed and 1 created, got %d and %d", removed, len(created))
	}
	assets, err := st.ListAssets(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(assets) != 1 || assets[0].Name != "New" {
		t.Fatalf("unexpected catalog %#v", assets)
	}
}

func TestReplaceProjectAssetsKeepsCatalogOnFailure(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	project, err := st.CreateProject(ctx, "", "topic")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := st.InsertAssets(ctx, project.ID, []Asset{{Name: "Keeper", Type: AssetLocation}}); err != nil {
		t.Fatalf("InsertAssets: %v", err)
	}
	if _, err := st.db.ExecContext(ctx, `CREATE TRIGGER reject_asset BEFORE INSERT ON assets
		WHEN NEW.name = 'Rejected' BEGIN SELECT RAISE(ABORT, 'rejected'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if _, _, err := st.ReplaceProjectAssets(ctx, project.ID, []Asset{{Name: "Rejected", Type: AssetItem}}); err == nil {
		t.Fatal("expected replace to fail")
	}
	assets, err := st.ListAssets(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(assets) != 1 || assets[0].Name != "Keeper" {
		t.Fatalf("expected previous catalog to survive, got %#v", assets)
	}
}
