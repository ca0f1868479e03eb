// Package config loads and validates the service configuration.
//
// Configuration comes from three layers, later layers overriding earlier
// ones: a config.yml file, a .env file, and process environment variables
// (e.g. SERVER_PORT, TASKS_MAX_CONCURRENT, AUDIO_TARGET_SAMPLE_RATE).
package config
