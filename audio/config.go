package audio

import (
	"fmt"
	"strings"
	"time"
)

// Config holds audio normalization configuration.
type Config struct {
	// TargetSampleRate is the sample rate fed to the model (Hz).
	TargetSampleRate int `yaml:"target_sample_rate" mapstructure:"target_sample_rate" validate:"min=8000"`

	// TargetChannels is the channel count fed to the model. The PCM writer is
	// mono-only, so this must be 1.
	TargetChannels int `yaml:"target_channels" mapstructure:"target_channels" validate:"eq=1"`

	// ChunkSeconds is the duration of one streaming-conversion window. Peak
	// decode memory is proportional to this value times the source rate.
	ChunkSeconds int `yaml:"chunk_seconds" mapstructure:"chunk_seconds" validate:"min=1"`

	// FFmpegBinary is the transcoder executable (resolved via PATH).
	FFmpegBinary string `yaml:"ffmpeg_binary" mapstructure:"ffmpeg_binary"`

	// TranscodeTimeout bounds a single transcoder subprocess invocation.
	TranscodeTimeout time.Duration `yaml:"transcode_timeout" mapstructure:"transcode_timeout"`

	// AllowedExtensions is the allow-list of accepted container extensions.
	// Anything else is rejected as unsupported media.
	AllowedExtensions []string `yaml:"allowed_extensions" mapstructure:"allowed_extensions"`
}

// ApplyDefaults sets sensible defaults for unset fields.
func (c *Config) ApplyDefaults() {
	if c.TargetSampleRate == 0 {
		c.TargetSampleRate = 16000
	}
	if c.TargetChannels == 0 {
		c.TargetChannels = 1
	}
	if c.ChunkSeconds == 0 {
		c.ChunkSeconds = 10
	}
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
	if c.TranscodeTimeout == 0 {
		c.TranscodeTimeout = 5 * time.Minute
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = []string{
			".wav", ".mp3", ".flac", ".ogg", ".opus",
			".mp4", ".mkv", ".webm", ".mov", ".m4a",
		}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.TargetSampleRate <= 0 {
		return fmt.Errorf("audio.target_sample_rate must be positive (got: %d)", c.TargetSampleRate)
	}
	if c.TargetChannels != 1 {
		return fmt.Errorf("audio.target_channels must be 1 (got: %d)", c.TargetChannels)
	}
	if c.ChunkSeconds <= 0 {
		return fmt.Errorf("audio.chunk_seconds must be positive (got: %d)", c.ChunkSeconds)
	}
	for _, ext := range c.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("audio.allowed_extensions entries must start with a dot (got: %s)", ext)
		}
	}
	return nil
}

// allowed reports whether ext (lower-cased, with dot) is in the allow-list.
func (c *Config) allowed(ext string) bool {
	for _, e := range c.AllowedExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
