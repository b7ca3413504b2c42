package keyframe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/services/genai"
	"storyreel/internal/store"
)

type fakeGenerator struct {
	states    States
	jsonErr   error
	jsonCalls int
	imageReqs []genai.ImageRequest
	imageErr  error
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, _ string, _ string, target any) error {
	f.jsonCalls++
	if f.jsonErr != nil {
		return f.jsonErr
	}
	*(target.(*States)) = f.states
	return nil
}

func (f *fakeGenerator) GenerateImage(_ context.Context, req genai.ImageRequest) (genai.Image, error) {
	f.imageReqs = append(f.imageReqs, req)
	if f.imageErr != nil {
		return genai.Image{}, f.imageErr
	}
	return genai.Image{Data: []byte("png"), MIMEType: "image/png"}, nil
}

func newSynth(gen *fakeGenerator) *Synthesizer {
	return New(gen, Options{TextModel: "text", ImageModel: "image", AspectRatio: "9:16", ImageSize: "1K"}, logging.NewNop())
}

func TestExplicitFramePromptSkipsDecomposition(t *testing.T) {
	gen := &fakeGenerator{}
	synth := newSynth(gen)
	scene := store.Scene{Visual: "John walks in", StartFramePrompt: "door closed", EndFramePrompt: "door open"}

	if _, err := synth.Generate(context.Background(), scene, store.FrameEnd, nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.jsonCalls != 0 {
		t.Fatalf("expected no decomposition call, got %d", gen.jsonCalls)
	}
	if len(gen.imageReqs) != 1 || !strings.Contains(gen.imageReqs[0].Prompt, `"door open"`) {
		t.Fatalf("expected end prompt in image request, got %#v", gen.imageReqs)
	}
	if gen.imageReqs[0].AspectRatio != "9:16" || gen.imageReqs[0].Model != "image" {
		t.Fatalf("unexpected image request %#v", gen.imageReqs[0])
	}
}

func TestMissingFramePromptUsesDecomposition(t *testing.T) {
	gen := &fakeGenerator{states: States{StartVisual: "outside", EndVisual: "inside"}}
	synth := newSynth(gen)
	scene := store.Scene{Visual: "John walks in", Duration: 4}

	if _, err := synth.Generate(context.Background(), scene, store.FrameStart, nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.jsonCalls != 1 {
		t.Fatalf("expected one decomposition call, got %d", gen.jsonCalls)
	}
	if !strings.Contains(gen.imageReqs[0].Prompt, `"outside"`) {
		t.Fatalf("expected start state in prompt: %s", gen.imageReqs[0].Prompt)
	}
}

func TestDecompositionFailureFallsBackToVisual(t *testing.T) {
	gen := &fakeGenerator{jsonErr: services.Wrap(services.ErrTransient, "provider", "generate json", "", nil)}
	synth := newSynth(gen)
	scene := store.Scene{Visual: "A stranger appears", Duration: 6}

	if _, err := synth.Generate(context.Background(), scene, store.FrameEnd, nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(gen.imageReqs[0].Prompt, `"A stranger appears"`) {
		t.Fatalf("expected scene visual fallback: %s", gen.imageReqs[0].Prompt)
	}
}

func TestGenerateIncludesOnlyRelevantReferences(t *testing.T) {
	gen := &fakeGenerator{}
	synth := newSynth(gen)
	scene := store.Scene{Visual: "john walks in", StartFramePrompt: "at the door"}
	assets := []*store.Asset{
		{ID: "1", Name: "Protagonist (John)", Type: store.AssetCharacter, VisualPrompt: "red hoodie"},
		{ID: "2", Name: "Old Lighthouse", Type: store.AssetLocation, VisualPrompt: "white tower"},
	}

	if _, err := synth.Generate(context.Background(), scene, store.FrameStart, assets); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	prompt := gen.imageReqs[0].Prompt
	if !strings.Contains(prompt, `REFERENCE (CHARACTER): "Protagonist (John)" looks like: red hoodie`) {
		t.Fatalf("expected character reference in prompt: %s", prompt)
	}
	if strings.Contains(prompt, "white tower") {
		t.Fatalf("unexpected unrelated reference in prompt: %s", prompt)
	}
}

func TestGeneratePropagatesNoImageData(t *testing.T) {
	gen := &fakeGenerator{imageErr: services.Wrap(services.ErrNoContent, "provider", "generate image", "no image data", nil)}
	synth := newSynth(gen)
	_, err := synth.Generate(context.Background(), store.Scene{Visual: "x", StartFramePrompt: "y"}, store.FrameStart, nil)
	if !errors.Is(err, services.ErrNoContent) {
		t.Fatalf("expected no content error, got %v", err)
	}
}

func TestDecomposeActionRejectsPartialStates(t *testing.T) {
	gen := &fakeGenerator{states: States{StartVisual: "only start"}}
	synth := newSynth(gen)
	_, err := synth.DecomposeAction(context.Background(), store.Scene{Visual: "x", Duration: 4})
	if !errors.Is(err, services.ErrNoContent) {
		t.Fatalf("expected no content error, got %v", err)
	}
}

func TestBuildImagePromptKeepsDescriptionLiteral(t *testing.T) {
	prompt := BuildImagePrompt("Rain on the glass.\nA \"keeper\" waits.", "", "9:16")
	if !strings.Contains(prompt, "VISUAL DESCRIPTION:\n\"Rain on the glass.\nA \"keeper\" waits.\"\n") {
		t.Fatalf("expected description verbatim, got:\n%s", prompt)
	}
	if strings.Contains(prompt, `\n`) || strings.Contains(prompt, `\"`) {
		t.Fatalf("expected no escape sequences, got:\n%s", prompt)
	}
}
