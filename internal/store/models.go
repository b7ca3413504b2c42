package store

import (
	"fmt"
	"strings"
	"time"
)

// ProjectStatus tracks how far a project has progressed.
type ProjectStatus string

const (
	ProjectScripting  ProjectStatus = "scripting"
	ProjectAssets     ProjectStatus = "assets"
	ProjectStoryboard ProjectStatus = "storyboard"
	ProjectRendering  ProjectStatus = "rendering"
	ProjectCompleted  ProjectStatus = "completed"
)

var projectStatusOrder = []ProjectStatus{
	ProjectScripting,
	ProjectAssets,
	ProjectStoryboard,
	ProjectRendering,
	ProjectCompleted,
}

// Rank returns the position of s in the lifecycle, or -1 when unknown.
func (s ProjectStatus) Rank() int {
	for i, candidate := range projectStatusOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Project is a unit of work that turns one topic into one video.
type Project struct {
	ID        string        `json:"id"`
	Owner     string        `json:"owner,omitempty"`
	Topic     string        `json:"topic"`
	Status    ProjectStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IdeaMetrics holds the rough production estimates attached to an idea.
type IdeaMetrics struct {
	EstimatedEngagement  string `json:"estimated_engagement"`
	ProductionDifficulty string `json:"production_difficulty"`
	EstimatedDuration    string `json:"estimated_duration"`
}

// Idea is a candidate concept for a topic.
type Idea struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Metrics     IdeaMetrics `json:"metrics"`
	VisualStyle string      `json:"visual_style"`
}

// Scene is one shot of a script.
type Scene struct {
	ID               int      `json:"id"`
	Visual           string   `json:"visual"`
	Audio            string   `json:"audio"`
	Duration         int      `json:"duration"`
	Characters       []string `json:"characters"`
	StartFramePrompt string   `json:"start_frame_prompt"`
	EndFramePrompt   string   `json:"end_frame_prompt"`
}

// Script is the ordered scene list for a project.
type Script struct {
	ProjectID string    `json:"project_id,omitempty"`
	Title     string    `json:"title"`
	Scenes    []Scene   `json:"scenes"`
	Version   int       `json:"version,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// TotalDuration sums scene durations in seconds.
func (s Script) TotalDuration() int {
	total := 0
	for _, scene := range s.Scenes {
		total += scene.Duration
	}
	return total
}

// AssetType classifies a recurring visual entity.
type AssetType string

const (
	AssetCharacter AssetType = "character"
	AssetItem      AssetType = "item"
	AssetLocation  AssetType = "location"
)

// NormalizeAssetType maps free-form model output onto a known type. Unknown
// values become items.
func NormalizeAssetType(value string) AssetType {
	switch AssetType(strings.ToLower(strings.TrimSpace(value))) {
	case AssetCharacter:
		return AssetCharacter
	case AssetLocation:
		return AssetLocation
	default:
		return AssetItem
	}
}

// AssetStatus tracks whether an asset has a generated image.
type AssetStatus string

const (
	AssetPendingGeneration AssetStatus = "pending_generation"
	AssetGenerated         AssetStatus = "generated"
)

// Asset is a recurring character, item, or location extracted from a script.
type Asset struct {
	ID           string      `json:"id"`
	ProjectID    string      `json:"project_id"`
	Name         string      `json:"name"`
	Type         AssetType   `json:"type"`
	Description  string      `json:"description"`
	VisualPrompt string      `json:"visual_prompt"`
	Appearances  []int       `json:"appearances"`
	Status       AssetStatus `json:"status"`
	URL          string      `json:"url"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// RenderStatus is the ledger state of one scene render.
type RenderStatus string

const (
	RenderPending        RenderStatus = "pending"
	RenderRenderingVideo RenderStatus = "rendering_video"
	RenderCompleted      RenderStatus = "completed"
	RenderFailed         RenderStatus = "failed"
)

// FrameType selects one of the two keyframes of a scene.
type FrameType string

const (
	FrameStart FrameType = "start"
	FrameEnd   FrameType = "end"
)

// ParseFrameType validates a frame type string.
func ParseFrameType(value string) (FrameType, error) {
	switch FrameType(strings.ToLower(strings.TrimSpace(value))) {
	case FrameStart:
		return FrameStart, nil
	case FrameEnd:
		return FrameEnd, nil
	default:
		return "", fmt.Errorf("unknown frame type %q (want start or end)", value)
	}
}

// SceneRender is the render ledger entry for (project, scene index).
type SceneRender struct {
	ProjectID     string       `json:"project_id"`
	SceneIndex    int          `json:"scene_index"`
	StartFrameURL string       `json:"start_frame_url,omitempty"`
	EndFrameURL   string       `json:"end_frame_url,omitempty"`
	Status        RenderStatus `json:"status"`
	VideoURL      string       `json:"video_url,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// FrameURL returns the stored URL for the given frame type.
func (r SceneRender) FrameURL(frame FrameType) string {
	if frame == FrameEnd {
		return r.EndFrameURL
	}
	return r.StartFrameURL
}
