// Package pipeline sequences the generation stages that turn a topic into
// rendered scenes.
//
// The Orchestrator exposes one method per user-facing operation (ideas,
// script, analysis, asset images, keyframes, storyboards, scene videos).
// Each operation works on one unit (a project, an asset, a scene, or a
// frame), so callers may run operations for different units concurrently.
// Scene video renders are serialized per (project, scene index) with an
// in-process keyed lock.
//
// Failures of keyframe and asset-image generation are returned to the caller
// without any status write. Scene video failures are recorded on the render
// ledger as failed and are not returned as errors.
package pipeline
