// Package notifications pushes render milestones to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// pipeline code can notify unconditionally.
package notifications
