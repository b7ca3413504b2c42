// Package keyframe turns a scene into start and end keyframe images.
//
// For each requested frame the Synthesizer picks a visual description (the
// script's explicit frame prompt, or a start/end state decomposition produced
// by a text call when the script has none), merges it with the matched asset
// reference block and a fixed vertical cinematic style, and requests exactly
// one image from the provider.
package keyframe
