package app

import (
	"projector/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces the debug log level regardless of the file setting.
	Debug bool

	// ConfigPath is the YAML configuration file.
	ConfigPath string

	// Settings is populated by NewApplication.
	Settings *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	if configPath == "" {
		configPath = config.DefaultConfigFile
	}
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}
