// Package server exposes the transcription task API over HTTP. It wraps a
// Gin engine with h2c support, the standard middleware stack, and the task
// routes: submission, status polling, listing, deletion, and liveness.
package server
