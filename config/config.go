package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/skillsenselab/parakeet/audio"
	"github.com/skillsenselab/parakeet/database"
	"github.com/skillsenselab/parakeet/diarization/pyannote"
	"github.com/skillsenselab/parakeet/logger"
	"github.com/skillsenselab/parakeet/server"
	"github.com/skillsenselab/parakeet/task"
	"github.com/skillsenselab/parakeet/transcription/parakeet"
)

// ServiceName is used for config file resolution and log tagging.
const ServiceName = "parakeetd"

// Config is the full service configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging       logger.Config   `yaml:"logging" mapstructure:"logging"`
	Server        server.Config   `yaml:"server" mapstructure:"server"`
	Database      database.Config `yaml:"database" mapstructure:"database"`
	Audio         audio.Config    `yaml:"audio" mapstructure:"audio"`
	Tasks         task.Config     `yaml:"tasks" mapstructure:"tasks"`
	Transcription parakeet.Config `yaml:"transcription" mapstructure:"transcription"`
	Diarization   pyannote.Config `yaml:"diarization" mapstructure:"diarization"`
}

// Load reads, defaults, and validates the service configuration.
func Load(opts ...LoaderOption) (*Config, error) {
	var cfg Config
	if err := load(ServiceName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults sets sensible defaults on every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}

	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Audio.ApplyDefaults()
	c.Tasks.ApplyDefaults()
	c.Transcription.ApplyDefaults()
	c.Diarization.ApplyDefaults()
}

// Validate checks the whole configuration: struct tags first, then the
// per-section checks.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Audio.Validate(); err != nil {
		return err
	}
	if err := c.Tasks.Validate(); err != nil {
		return err
	}
	return nil
}
