package pipeline

import (
	"fmt"
	"strings"

	"storyreel/internal/store"
)

func ideasPrompt(topic string) string {
	return fmt.Sprintf(`You are a creative director for a short-form video studio.
The user wants to create a short vertical video about the topic: "%s".

Generate 3 distinct, creative video concepts based on this topic.
The concepts should be engaging and feasible to produce with generative image and video tools.

Return a JSON object with an "ideas" array. Each idea has a title, a description
of the concept, plot and hook, metrics (estimated_engagement, production_difficulty
of Low/Medium/High, estimated_duration such as 30s or 60s), and a visual_style.`, topic)
}

func scriptPrompt(topic, idea string) string {
	return fmt.Sprintf(`You are a professional screenwriter and cinematographer for short vertical videos.

Topic: "%s"
Concept: "%s"

Create a complete script for this video.
For each scene, also act as a director and describe the start (0s) and end (Ns) frames visually.
The start and end frames must show the progression of the action described.

Example:
- Action: "Man walks into room."
- start_frame_prompt: "Wide shot, man outside closed door, hand reaching for handle."
- end_frame_prompt: "Man standing inside room, door open behind him."

Constraints:
- Total duration should be between %d and %d seconds.
- Each scene duration must be exactly 4, 6, or 8 seconds.
- Scene ids start at 1 and increase by one.

Return a JSON object with a title and a scenes array (id, visual, audio, duration,
characters, start_frame_prompt, end_frame_prompt).`, topic, idea, minScriptSeconds, maxScriptSeconds)
}

func analysisPrompt(scriptJSON string) string {
	return fmt.Sprintf(`Analyze this video script and identify all recurring characters, key items, and locations that appear visually on screen.

Script: %s

Exclusion rules:
- Do not include "Voiceover", "Narrator", "VO", "Speaker", or any off-screen voice.
- Do not include abstract concepts like "Happiness", "Speed", or "Silence".
- Do not include "Camera", "Lens", or "Lighting".
- Only include physical entities that exist in the world of the video.

For each entity write a detailed visual description suitable for an image generator
and list the scene ids it appears in.

Return a JSON object with an "entities" array. Each entity has a name (for example
"Protagonist (John)"), a type (character, item, or location), a short description
of its role, a visual_prompt, and appearances (scene ids).`, scriptJSON)
}

func conceptArtPrompt(asset *store.Asset) string {
	name := strings.TrimSpace(asset.Name)
	if name == "" {
		name = "Asset"
	}
	return fmt.Sprintf(`Create a professional %s SHEET / CONCEPT ART.
Layout: wide format, neutral grey studio background.

Requirements:
- Main view: high-fidelity, detailed render of the subject.
- Detail views: 2-3 smaller inset sketches showing different angles or close-ups.
- Annotations: technical notes about materials, textures, or key features (visual style only, no legible text required).

Subject: "%s"
Visual Description: "%s"

Style: cinematic film pre-production art. High contrast, clean lines, photorealistic textures.`,
		strings.ToUpper(string(asset.Type)), name, asset.VisualPrompt)
}

func videoPrompt(scene store.Scene) string {
	return fmt.Sprintf("%s. Vertical Video 9:16. Cinematic lighting, 4k, fluid motion. %s",
		strings.TrimSpace(scene.Visual), strings.TrimSpace(scene.Audio))
}
