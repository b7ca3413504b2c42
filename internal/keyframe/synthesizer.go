package keyframe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"storyreel/internal/logging"
	"storyreel/internal/matcher"
	"storyreel/internal/services"
	"storyreel/internal/services/genai"
	"storyreel/internal/store"
)

// Generator is the subset of the provider client the synthesizer needs.
type Generator interface {
	GenerateJSON(ctx context.Context, model, prompt string, target any) error
	GenerateImage(ctx context.Context, req genai.ImageRequest) (genai.Image, error)
}

// Options selects models and image shape.
type Options struct {
	TextModel   string
	ImageModel  string
	AspectRatio string
	ImageSize   string
}

// States is the visual state of a scene at t=0 and t=duration.
type States struct {
	StartVisual string `json:"start_visual" jsonschema:"description=Detailed visual description of the starting frame"`
	EndVisual   string `json:"end_visual" jsonschema:"description=Detailed visual description of the ending frame"`
}

// Synthesizer produces keyframe images for scenes.
type Synthesizer struct {
	gen    Generator
	opts   Options
	logger *slog.Logger
}

// New constructs a Synthesizer.
func New(gen Generator, opts Options, logger *slog.Logger) *Synthesizer {
	if opts.AspectRatio == "" {
		opts.AspectRatio = "9:16"
	}
	return &Synthesizer{
		gen:    gen,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "keyframe"),
	}
}

// DecomposeAction asks the text model for the start and end visual states of
// the scene's action.
func (s *Synthesizer) DecomposeAction(ctx context.Context, scene store.Scene) (States, error) {
	var states States
	if strings.TrimSpace(scene.Visual) == "" {
		return states, services.Wrap(services.ErrValidation, "keyframe", "decompose", "scene has no visual description", nil)
	}
	if err := s.gen.GenerateJSON(ctx, s.opts.TextModel, directorPrompt(scene), &states); err != nil {
		return states, err
	}
	states.StartVisual = strings.TrimSpace(states.StartVisual)
	states.EndVisual = strings.TrimSpace(states.EndVisual)
	if states.StartVisual == "" || states.EndVisual == "" {
		return states, services.Wrap(services.ErrNoContent, "keyframe", "decompose", "missing start or end state", nil)
	}
	return states, nil
}

// FrameDescription returns the visual description used for one frame. An
// explicit frame prompt on the scene wins; otherwise the action is decomposed,
// falling back to the scene's visual text if decomposition fails.
func (s *Synthesizer) FrameDescription(ctx context.Context, scene store.Scene, frame store.FrameType) string {
	explicit := scene.StartFramePrompt
	if frame == store.FrameEnd {
		explicit = scene.EndFramePrompt
	}
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}

	states, err := s.DecomposeAction(ctx, scene)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "action decomposition failed; using scene visual",
			"keyframe_decompose",
			logging.String("frame", string(frame)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "add start_frame_prompt/end_frame_prompt to the scene"),
		)
		return strings.TrimSpace(scene.Visual)
	}
	if frame == store.FrameEnd {
		return states.EndVisual
	}
	return states.StartVisual
}

// Generate produces the image for one frame of scene. assets are the
// project's assets; only those relevant to the scene are referenced.
func (s *Synthesizer) Generate(ctx context.Context, scene store.Scene, frame store.FrameType, assets []*store.Asset) (genai.Image, error) {
	description := s.FrameDescription(ctx, scene, frame)
	if description == "" {
		return genai.Image{}, services.Wrap(services.ErrValidation, "keyframe", "generate", "scene has no visual description", nil)
	}
	relevant := matcher.Match(matcher.SceneText(scene), assets)
	s.logger.Debug("keyframe prompt assembled",
		logging.String("frame", string(frame)),
		logging.Int("reference_assets", len(relevant)),
	)
	return s.gen.GenerateImage(ctx, genai.ImageRequest{
		Model:       s.opts.ImageModel,
		Prompt:      BuildImagePrompt(description, matcher.ReferenceBlock(relevant), s.opts.AspectRatio),
		AspectRatio: s.opts.AspectRatio,
		Size:        s.opts.ImageSize,
	})
}

func directorPrompt(scene store.Scene) string {
	return fmt.Sprintf(`You are a cinematography director.
Break this scene action down into two distinct visual states.

Action: "%s"
Duration: %d seconds.

Describe the VISUAL STATE at the exact start (0.0s) and the exact end (%d.0s).
Focus on the change in subject pose, camera position, or object location.

Example for "A man walks into a room":
- start_visual: "Wide shot, door closed, man standing outside reaching for handle."
- end_visual: "Man standing inside the room, door open behind him."

Return a JSON object with start_visual and end_visual.`, scene.Visual, scene.Duration, scene.Duration)
}

// BuildImagePrompt combines a frame description, the asset reference block,
// and the fixed style directive.
func BuildImagePrompt(description, references, aspectRatio string) string {
	var b strings.Builder
	b.WriteString("ROLE: Expert cinematographer.\n")
	fmt.Fprintf(&b, "TASK: Generate a single %s keyframe image.\n\n", aspectRatio)
	fmt.Fprintf(&b, "VISUAL DESCRIPTION:\n\"%s\"\n\n", description)
	if references != "" {
		b.WriteString("STRICT CONSISTENCY ASSETS (merge naturally):\n")
		b.WriteString(references)
		b.WriteString("\n\n")
	}
	b.WriteString("STYLE: Photorealistic, 8k, volumetric lighting, cinematic color grading.\n")
	fmt.Fprintf(&b, "ASPECT RATIO: %s (vertical full screen).", aspectRatio)
	return b.String()
}
