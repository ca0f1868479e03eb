package audio

// Artifact is a transient on-disk representation of normalized audio. It is
// exclusively owned by the task that created it and removed by the cleanup
// coordinator once the task's background execution finishes.
type Artifact struct {
	// Path is the artifact location on disk.
	Path string `json:"path"`
	// SampleRate is the artifact sample rate in Hz.
	SampleRate int `json:"sample_rate"`
	// Channels is the artifact channel count.
	Channels int `json:"channels"`
	// Format is the container format (always "wav").
	Format string `json:"format"`
	// Duration is the audio duration in seconds.
	Duration float64 `json:"duration"`
	// Source is true when the fast path returned the original file untouched.
	Source bool `json:"-"`
}
