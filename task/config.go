package task

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds task execution configuration.
type Config struct {
	// MaxConcurrent is the processing ceiling: the maximum number of tasks
	// in the processing state at once.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"min=1"`

	// UploadDir is where uploaded files are staged until the task finishes.
	UploadDir string `yaml:"upload_dir" mapstructure:"upload_dir"`

	// DefaultLanguage is used when a task does not specify one.
	DefaultLanguage string `yaml:"default_language" mapstructure:"default_language"`
}

// ApplyDefaults sets sensible defaults for unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 10
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(os.TempDir(), "parakeet-uploads")
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "en"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("tasks.max_concurrent must be positive (got: %d)", c.MaxConcurrent)
	}
	if c.UploadDir == "" {
		return fmt.Errorf("tasks.upload_dir is required")
	}
	return nil
}
