package matcher

import (
	"testing"

	"storyreel/internal/store"
)

func TestMatchAliasCaseInsensitive(t *testing.T) {
	john := &store.Asset{ID: "a1", Name: "Protagonist (John)", Type: store.AssetCharacter}
	if got := Match("Later, john walks in", []*store.Asset{john}); len(got) != 1 {
		t.Fatalf("expected alias match, got %d", len(got))
	}
	if got := Match("the PROTAGONIST walks in", []*store.Asset{john}); len(got) != 1 {
		t.Fatalf("expected first-token match, got %d", len(got))
	}
	if got := Match("a stranger appears", []*store.Asset{john}); len(got) != 0 {
		t.Fatalf("expected no match, got %d", len(got))
	}
}

func TestNameCandidates(t *testing.T) {
	got := nameCandidates("detective (mary jane) walker")
	want := []string{"detective (mary jane) walker", "detective", "mary jane", "mary"}
	if len(got) != len(want) {
		t.Fatalf("nameCandidates = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("nameCandidates = %q, want %q", got, want)
		}
	}
}

func TestMatchRelevanceExamples(t *testing.T) {
	cases := []struct {
		name  string
		asset string
		text  string
		want  bool
	}{
		{"full name", "Protagonist (John)", "Close on PROTAGONIST (JOHN) at the door", true},
		{"first token", "John Carter", "john walks in", true},
		{"unrelated", "John Carter", "a stranger appears", false},
		{"substring of word", "Ann Lee", "the planner waits", true},
		{"empty name", "", "anything", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			asset := &store.Asset{Name: tc.asset}
			got := len(Match(tc.text, []*store.Asset{asset})) == 1
			if got != tc.want {
				t.Fatalf("Match(%q, %q) = %v, want %v", tc.text, tc.asset, got, tc.want)
			}
		})
	}
}

func TestMatchDeduplicates(t *testing.T) {
	john := &store.Asset{ID: "a1", Name: "John"}
	got := Match("john and john again", []*store.Asset{john, john, nil})
	if len(got) != 1 {
		t.Fatalf("expected one match, got %d", len(got))
	}
}

func TestMatchSceneTextCombinesVisualAndAudio(t *testing.T) {
	scene := store.Scene{Visual: "Wide shot of a pier", Audio: "Maria never came back."}
	maria := &store.Asset{ID: "m", Name: "Maria Lopez"}
	if len(Match(SceneText(scene), []*store.Asset{maria})) != 1 {
		t.Fatal("expected audio text to be searched")
	}
}

func TestReferenceBlock(t *testing.T) {
	block := ReferenceBlock([]*store.Asset{
		{Name: "John", Type: store.AssetCharacter, VisualPrompt: "red hoodie"},
		{Name: "Pier", Type: store.AssetLocation, VisualPrompt: "foggy wooden pier"},
	})
	want := "REFERENCE (CHARACTER): \"John\" looks like: red hoodie\n\nREFERENCE (LOCATION): \"Pier\" looks like: foggy wooden pier"
	if block != want {
		t.Fatalf("unexpected block:\n%s", block)
	}
	if ReferenceBlock(nil) != "" {
		t.Fatal("expected empty block for no assets")
	}
}

func TestReferenceBlockKeepsNameLiteral(t *testing.T) {
	block := ReferenceBlock([]*store.Asset{
		{Name: `The "Old" Keeper\Guide`, Type: store.AssetCharacter, VisualPrompt: "grey beard"},
	})
	want := `REFERENCE (CHARACTER): "The "Old" Keeper\Guide" looks like: grey beard`
	if block != want {
		t.Fatalf("ReferenceBlock = %s, want %s", block, want)
	}
}
