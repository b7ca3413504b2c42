// Package api serves the orchestrator over HTTP with gin.
//
// Routes live under /api and map one-to-one onto pipeline operations.
// Generated media is served from the blob store root under /media, and
// Prometheus metrics are exposed at /metrics.
//
// Errors are rendered as {"error": "...", "kind": "..."} where kind is the
// services.Kind classification. Status codes: not_found 404, validation 400,
// busy 409, provider failures 502, everything else 500.
//
// Scene video requests block until the render reaches a terminal state.
package api
