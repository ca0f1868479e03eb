package diarization

// Request holds parameters for a diarization call.
type Request struct {
	// AudioPath is the path to the audio file to diarize.
	AudioPath string `json:"audio_path"`
	// MinSpeakers is the minimum expected number of speakers (0 = no hint).
	MinSpeakers int `json:"min_speakers,omitempty"`
	// MaxSpeakers is the maximum expected number of speakers (0 = no hint).
	MaxSpeakers int `json:"max_speakers,omitempty"`
}

// Response holds the result of a diarization call.
type Response struct {
	// Segments contains speaker-attributed time segments in timeline order.
	Segments []Segment `json:"segments"`
	// NumSpeakers is the number of speakers detected.
	NumSpeakers int `json:"num_speakers"`
}

// Segment represents a speaker-attributed time range.
type Segment struct {
	// Speaker is the identified speaker label.
	Speaker string `json:"speaker"`
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
}
