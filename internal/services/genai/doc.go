// Package genai wraps the Gemini REST API used for every generation stage.
//
// A single Client covers structured JSON text completions, still-image
// generation, and long-running video operations (submit, poll, download).
// All calls share one retry policy: only rate limits (HTTP 429) and server
// errors (5xx) are retried, with a fixed delay between attempts. Everything
// else fails on the first attempt and is tagged with a services marker so
// callers can classify it.
package genai
