package transcription

// Request holds parameters for a transcription call.
type Request struct {
	// AudioPath is the path to the audio file to transcribe.
	// Expected to be mono 16 kHz PCM16 WAV.
	AudioPath string `json:"audio_path"`
	// Timestamps requests word and segment offsets alongside the text.
	Timestamps bool `json:"timestamps,omitempty"`
	// Language is the expected language of the audio (e.g. "en").
	Language string `json:"language,omitempty"`
}

// Response holds the result of a transcription call.
type Response struct {
	// Text is the full transcription text.
	Text string `json:"text"`
	// Timestamps contains word/segment offsets when requested.
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	// Duration is the audio duration in seconds.
	Duration float64 `json:"duration,omitempty"`
	// Language is the detected or specified language.
	Language string `json:"language,omitempty"`
}

// Timestamps holds time-aligned offsets for a transcript.
type Timestamps struct {
	// Words contains per-word offsets.
	Words []Stamp `json:"word,omitempty"`
	// Segments contains per-utterance offsets.
	Segments []Stamp `json:"segment,omitempty"`
}

// Stamp is a single time-aligned span of transcript.
type Stamp struct {
	// Start is the span start time in seconds.
	Start float64 `json:"start"`
	// End is the span end time in seconds.
	End float64 `json:"end"`
	// Text is the transcribed text for this span.
	Text string `json:"text"`
}
