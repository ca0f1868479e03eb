// Package task implements the asynchronous transcription task lifecycle:
// persistence, the admission gate, background execution, speaker merging,
// and artifact cleanup.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task.
type Status string

const (
	// StatusQueued means the task is accepted but not yet admitted.
	StatusQueued Status = "queued"
	// StatusProcessing means the task holds a processing slot.
	StatusProcessing Status = "processing"
	// StatusCompleted means the task finished with a result.
	StatusCompleted Status = "completed"
	// StatusFailed means the task finished with an error.
	StatusFailed Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Type identifies the kind of work a task performs.
type Type string

// TypeTranscription is the only task type currently supported.
const TypeTranscription Type = "transcription"

// Params holds the caller-supplied options for a task.
type Params struct {
	// IncludeTimestamps requests word and segment offsets in the result.
	IncludeTimestamps bool `json:"include_timestamps"`
	// IncludeDiarization requests speaker turns in the result.
	IncludeDiarization bool `json:"include_diarization"`
	// MinSpeakers hints the minimum speaker count to the diarizer.
	MinSpeakers int `json:"min_speakers,omitempty"`
	// MaxSpeakers hints the maximum speaker count to the diarizer.
	MaxSpeakers int `json:"max_speakers,omitempty"`
	// Language overrides the service default language for this task.
	Language string `json:"language,omitempty"`
}

// Task is the persisted record of one transcription request.
//
// Result and Error are mutually exclusive: a completed task has a result and
// an empty error, a failed task has an error and no result.
type Task struct {
	ID         string  `gorm:"primaryKey;size:36" json:"task_id"`
	Status     Status  `gorm:"size:16;index" json:"status"`
	FileName   string  `gorm:"size:512" json:"file_name"`
	TaskType   Type    `gorm:"size:32" json:"task_type"`
	TaskParams Params  `gorm:"serializer:json" json:"task_params"`
	Result     *Result `gorm:"serializer:json" json:"result,omitempty"`
	Error      string  `json:"error,omitempty"`

	// StartTime and EndTime bound the processing window.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	// Duration is the processing wall time in seconds.
	Duration float64 `json:"duration,omitempty"`
	// AudioDuration is the length of the submitted audio in seconds.
	AudioDuration float64 `json:"audio_duration,omitempty"`
	// Language is the language the audio was transcribed in.
	Language string `gorm:"size:16" json:"language,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask creates a queued task record for an uploaded file.
func NewTask(fileName string, params Params) *Task {
	return &Task{
		ID:         uuid.NewString(),
		Status:     StatusQueued,
		FileName:   fileName,
		TaskType:   TypeTranscription,
		TaskParams: params,
	}
}
