// Package diarization defines the diarization provider interface and common
// types for interacting with speaker diarization backends.
//
// Diarization is an enrichment: callers must treat any error from a provider
// as "no speaker information available" rather than a pipeline failure.
package diarization

import "context"

// Provider is the interface that diarization backends must implement.
type Provider interface {
	// Name returns the provider name for logging and diagnostics.
	Name() string

	// IsAvailable checks if the backend is reachable.
	IsAvailable(ctx context.Context) bool

	// Diarize sends audio for speaker diarization and returns the result.
	Diarize(ctx context.Context, req Request) (*Response, error)
}
