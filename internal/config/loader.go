package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"projector/pkg/logging"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding secrets from the file.
const (
	EnvSearchPassword    = "PROJECTOR_SEARCH_PASSWORD"
	EnvDashboardPassword = "PROJECTOR_DASHBOARD_PASSWORD"
	EnvReportingToken    = "PROJECTOR_REPORTING_TOKEN"
)

// LoadConfig reads the file at path on top of the defaults, applies
// environment overrides and validates the result. A missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("Config", "No configuration found at %s, using defaults", path)
	case err != nil:
		return Config{}, NewConfigurationError(path, "", "io", fmt.Sprintf("cannot read file: %v", err))
	default:
		if err := decode(data, &config); err != nil {
			return Config{}, parseError(path, err)
		}
		logging.Info("Config", "Loaded configuration from %s", path)
	}

	ApplyEnv(&config, os.LookupEnv)

	if err := Validate(config, path); err != nil {
		return Config{}, err
	}
	return config, nil
}

// decode rejects unknown keys so that typos do not silently fall back to
// defaults.
func decode(data []byte, out *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides secrets with the environment variables that are set.
func ApplyEnv(config *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvSearchPassword); ok {
		config.Search.Password = v
	}
	if v, ok := lookup(EnvDashboardPassword); ok {
		config.Dashboard.Password = v
	}
	if v, ok := lookup(EnvReportingToken); ok {
		config.Reporting.Token = v
	}
}

func parseError(path string, err error) ConfigurationError {
	ce := NewConfigurationError(path, "", "parse", err.Error())

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		ce.Message = typeErr.Errors[0]
		ce.Details = fmt.Sprintf("%d decoding errors", len(typeErr.Errors))
	}
	ce.Suggestions = []string{
		fmt.Sprintf("Check the YAML syntax of %s", filepath.Base(path)),
		"Durations are written as strings such as 250ms or 30s",
	}
	return ce
}
