package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts file operations so the loader is testable.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// resolveFiles returns explicit paths if provided, otherwise searches the
// standard locations.
func resolveFiles(serviceName string, lc LoaderConfig) (configFile, envFile string) {
	configFile = lc.ConfigFile
	if configFile == "" {
		configFile = firstExisting(lc.FileSystem,
			fmt.Sprintf("./cmd/%s/config.yml", serviceName),
			"./config.yml",
			"./config/config.yml",
		)
	}
	envFile = lc.EnvFile
	if envFile == "" {
		envFile = firstExisting(lc.FileSystem,
			fmt.Sprintf(".env.%s", serviceName),
			".env",
			fmt.Sprintf("./cmd/%s/.env", serviceName),
		)
	}
	return configFile, envFile
}

func firstExisting(fs FileSystem, paths ...string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// load reads configuration layers into cfg: config.yml, then .env, then
// process environment variables.
func load(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	configFile, envFile := resolveFiles(serviceName, lc)

	v := viper.New()
	if configFile != "" && lc.FileSystem.Exists(configFile) {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	if envFile != "" && lc.FileSystem.Exists(envFile) {
		if err := lc.FileSystem.LoadEnv(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config for %s: %w", serviceName, err)
	}
	return nil
}

// bindEnvVars maps UPPER_SNAKE environment variables onto nested viper keys.
// SERVER_PORT binds to both "server_port" and "server.port"; deeper keys like
// AUDIO_TARGET_SAMPLE_RATE additionally bind "audio.target_sample_rate".
func bindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		for _, key := range envKeyVariants(pair[0]) {
			v.Set(key, pair[1])
		}
	}
}

func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return []string{lower}
	}

	variants := []string{
		lower,
		strings.ReplaceAll(lower, "_", "."),
	}
	// Split once at each position: section prefix, snake_case remainder.
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}

	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, k := range variants {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
