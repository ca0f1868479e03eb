package process

import "time"

// Result holds the outcome of a completed subprocess.
type Result struct {
	// Stdout is the captured standard output.
	Stdout []byte
	// Stderr is the captured standard error.
	Stderr []byte
	// ExitCode is the process exit code, or -1 if it was killed.
	ExitCode int
	// Duration is how long the process ran.
	Duration time.Duration
}
