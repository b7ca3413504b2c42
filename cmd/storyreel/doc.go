// Package main hosts the storyreel CLI.
//
// Commands call the pipeline orchestrator in-process against the configured
// project database, so the daemon does not need to be running for scripted
// use. `storyreel serve` runs the same HTTP daemon as storyreeld.
package main
