// Package daemon owns the lifecycle of the long-running storyreel process.
//
// It holds a flock-based lock so only one daemon serves a data directory,
// marks renders interrupted by a previous crash as failed, and runs the HTTP
// API until stopped.
package daemon
