package testsupport

import (
	"context"
	"testing"

	"storyreel/internal/config"
	"storyreel/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewProject creates a project for tests using the provided store.
func NewProject(t testing.TB, st *store.Store, topic string) *store.Project {
	t.Helper()

	project, err := st.CreateProject(context.Background(), "tester", topic)
	if err != nil {
		t.Fatalf("store.CreateProject: %v", err)
	}
	return project
}

// TwoSceneScript returns a 4s + 6s script featuring one named character.
func TwoSceneScript() store.Script {
	return store.Script{
		Title: "The Lighthouse",
		Scenes: []store.Scene{
			{
				ID:               1,
				Visual:           "John walks into the lighthouse holding a lantern",
				Audio:            "Nobody had climbed these stairs in years.",
				Duration:         4,
				Characters:       []string{"Protagonist (John)"},
				StartFramePrompt: "John outside the lighthouse door, lantern raised",
				EndFramePrompt:   "John inside at the foot of the spiral stairs",
			},
			{
				ID:         2,
				Visual:     "A stranger appears at the top of the stairs",
				Audio:      "Someone had.",
				Duration:   6,
				Characters: []string{},
			},
		},
	}
}

// MustSaveScript stores script for the project and creates its render rows.
func MustSaveScript(t testing.TB, st *store.Store, projectID string, script store.Script) *store.Script {
	t.Helper()

	ctx := context.Background()
	saved, err := st.UpsertScript(ctx, projectID, script)
	if err != nil {
		t.Fatalf("store.UpsertScript: %v", err)
	}
	indexes := make([]int, len(script.Scenes))
	for i := range indexes {
		indexes[i] = i
	}
	if err := st.EnsureSceneRenders(ctx, projectID, indexes...); err != nil {
		t.Fatalf("store.EnsureSceneRenders: %v", err)
	}
	return saved
}
