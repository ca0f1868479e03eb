// Package transcription defines the transcription provider interface and
// common types for interacting with speech-to-text backends.
//
// The inference backend is a process-wide singleton that is not safe for
// concurrent callers; access is serialized by the task admission gate, never
// by the provider itself.
package transcription

import "context"

// Provider is the interface that transcription backends must implement.
type Provider interface {
	// Name returns the provider name for logging and diagnostics.
	Name() string

	// IsAvailable checks if the backend is reachable and ready to transcribe.
	IsAvailable(ctx context.Context) bool

	// Transcribe sends normalized audio for transcription and returns the result.
	Transcribe(ctx context.Context, req Request) (*Response, error)
}
