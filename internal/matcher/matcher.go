// Package matcher picks the recurring assets that are relevant to a scene.
//
// Matching is recall-biased: an asset is relevant when its full name, the first
// token of its name, or a parenthesized alias such as the "John" in
// "Protagonist (John)" occurs anywhere in the scene's visual and audio text
// after Unicode case folding. False positives are acceptable.
package matcher

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"storyreel/internal/store"
)

// SceneText returns the text an asset name is searched in.
func SceneText(scene store.Scene) string {
	return scene.Visual + " " + scene.Audio
}

// Match returns the assets relevant to sceneText, each at most once, in the
// order they were supplied.
func Match(sceneText string, assets []*store.Asset) []*store.Asset {
	folder := cases.Fold()
	text := folder.String(sceneText)

	seen := make(map[string]struct{}, len(assets))
	var relevant []*store.Asset
	for _, asset := range assets {
		if asset == nil {
			continue
		}
		key := asset.ID
		if key == "" {
			key = asset.Name
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if !matches(text, folder.String(strings.TrimSpace(asset.Name))) {
			continue
		}
		seen[key] = struct{}{}
		relevant = append(relevant, asset)
	}
	return relevant
}

func matches(text, name string) bool {
	for _, candidate := range nameCandidates(name) {
		if strings.Contains(text, candidate) {
			return true
		}
	}
	return false
}

// nameCandidates lists the full name, its first token, and any parenthesized
// aliases with their first tokens.
func nameCandidates(name string) []string {
	if name == "" {
		return nil
	}
	candidates := []string{name}
	if first, _, _ := strings.Cut(name, " "); first != "" && first != name {
		candidates = append(candidates, first)
	}
	rest := name
	for {
		open := strings.IndexByte(rest, '(')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open:], ')')
		if end < 0 {
			break
		}
		alias := strings.TrimSpace(rest[open+1 : open+end])
		if alias != "" {
			candidates = append(candidates, alias)
			if first, _, _ := strings.Cut(alias, " "); first != alias {
				candidates = append(candidates, first)
			}
		}
		rest = rest[open+end+1:]
	}
	return candidates
}

// ReferenceBlock renders matched assets as the labeled reference list embedded
// in image prompts.
func ReferenceBlock(assets []*store.Asset) string {
	lines := make([]string, 0, len(assets))
	for _, asset := range assets {
		if asset == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("REFERENCE (%s): \"%s\" looks like: %s",
			strings.ToUpper(string(asset.Type)), asset.Name, asset.VisualPrompt))
	}
	return strings.Join(lines, "\n\n")
}
