package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config represents configuration stored in ~/.config/cord19q/config.yml.
type Config struct {
	OutputDir     string    `yaml:"output_dir,omitempty"`
	Workers       int       `yaml:"workers,omitempty"`
	ProgressEvery int       `yaml:"progress_every,omitempty"`
	LogLevel      string    `yaml:"log_level,omitempty"`
	Tag           TagConfig `yaml:"tag,omitempty"`
}

// TagConfig configures topical tag detection.
type TagConfig struct {
	Label    string   `yaml:"label,omitempty"`
	Keywords []string `yaml:"keywords,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "cord19q"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"

	// EnvOutputDir overrides output_dir.
	EnvOutputDir = "CORD19Q_OUTPUT_DIR"
	// EnvWorkers overrides workers.
	EnvWorkers = "CORD19Q_WORKERS"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		OutputDir:     DefaultOutputDir,
		Workers:       DefaultWorkers,
		ProgressEvery: DefaultProgressEvery,
		LogLevel:      DefaultLogLevel,
	}
}

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/cord19q/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// Load reads the global config file, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load() (*Config, error) {
	cfg, err := LoadFile(GlobalConfigPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from path on top of the defaults.
// Returns the defaults (not an error) if the file doesn't exist.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	if dir := getenv(EnvOutputDir); dir != "" {
		c.OutputDir = dir
	}
	if w := getenv(EnvWorkers); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvWorkers, w)
		}
		c.Workers = n
	}
	return nil
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers: %d (must be >= 0)", c.Workers)
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("invalid progress_every: %d (must be >= 0)", c.ProgressEvery)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	return level, nil
}
