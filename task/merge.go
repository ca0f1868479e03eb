package task

import (
	"sort"

	"github.com/skillsenselab/parakeet/diarization"
	"github.com/skillsenselab/parakeet/transcription"
)

// Result is the outcome of a completed task. Optional parts are typed
// sibling fields, absent parts are nil.
type Result struct {
	// Text is the full transcript.
	Text string `json:"text"`
	// Timestamps holds word and segment offsets when requested.
	Timestamps *transcription.Timestamps `json:"timestamps,omitempty"`
	// Speakers holds diarization turns when requested and available.
	Speakers []SpeakerTurn `json:"speakers,omitempty"`
}

// HasTimestamps reports whether the result carries time alignment.
func (r *Result) HasTimestamps() bool {
	return r != nil && r.Timestamps != nil &&
		(len(r.Timestamps.Words) > 0 || len(r.Timestamps.Segments) > 0)
}

// HasSpeakers reports whether the result carries speaker turns.
func (r *Result) HasSpeakers() bool {
	return r != nil && len(r.Speakers) > 0
}

// SpeakerTurn is one contiguous span attributed to a single speaker.
type SpeakerTurn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// MergeSpeakers returns a copy of result with diarization segments attached
// as speaker turns, ordered by start time. The input result is not modified.
// An empty segment list yields a copy without speakers.
func MergeSpeakers(result Result, segments []diarization.Segment) Result {
	merged := result
	merged.Speakers = nil
	if len(segments) == 0 {
		return merged
	}

	turns := make([]SpeakerTurn, len(segments))
	for i, seg := range segments {
		turns[i] = SpeakerTurn{Speaker: seg.Speaker, Start: seg.Start, End: seg.End}
	}
	sort.SliceStable(turns, func(i, j int) bool { return turns[i].Start < turns[j].Start })

	merged.Speakers = turns
	return merged
}
