// Package services defines shared utilities consumed by the pipeline stages and
// the generation provider integration.
//
// Key responsibilities:
//   - Context helpers that stamp project IDs, scene indexes, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep failures
//     classifiable (transient vs permanent, storage, not found, timeout) as they
//     cross package boundaries.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
