package process

import (
	"io"
	"time"
)

// Command describes one external tool invocation, typically the audio
// transcoder converting an upload to the target WAV format.
type Command struct {
	// Binary is the executable name or path, resolved via PATH.
	Binary string
	// Args are passed to the binary verbatim; callers build them per
	// invocation (source path, codec flags, destination path).
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds extra key=value entries appended to the parent environment.
	// Empty inherits the parent environment unchanged.
	Env []string
	// Stdin feeds the process, for tools that read media from a pipe.
	// May be nil.
	Stdin io.Reader
	// GracePeriod bounds the SIGTERM-to-SIGKILL window on cancellation.
	// Zero means 5 seconds.
	GracePeriod time.Duration
}
