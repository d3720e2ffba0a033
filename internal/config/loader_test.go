package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
store:
  driver: sqlite
  path: /tmp/projector.db
search:
  url: https://search.example.org:9200
  username: projector
  timeout: 5s
hooks:
  debounce: 1s
  serialize: false
sync:
  schedule: "@hourly"
  concurrency: 4
  onStartup: true
dashboard:
  timeFields:
    ezpaarse: datetime
    publisher: date
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "https://search.example.org:9200", cfg.Search.URL)
	assert.Equal(t, 5*time.Second, cfg.Search.Timeout)
	assert.Equal(t, DefaultEngineRetryMax, cfg.Search.RetryMax)
	assert.Equal(t, DefaultTemplatePrefix, cfg.Search.TemplatePrefix)
	assert.Equal(t, time.Second, cfg.Hooks.Debounce)
	assert.False(t, cfg.Hooks.SerializeEnabled())
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.True(t, cfg.Sync.OnStartup)
	assert.Equal(t, "date", cfg.Dashboard.TimeFields["publisher"])
	assert.Equal(t, "http://localhost:5601", cfg.Dashboard.URL)
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "sync:\n  shedule: \"@hourly\"\n"))
	require.Error(t, err)

	var ce ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "parse", ce.ErrorType)
	assert.Contains(t, ce.Message, "shedule")
	assert.NotEmpty(t, ce.Suggestions)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "sync: [unclosed"))
	var ce ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, DefaultConfigFile, ce.FileName)
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "sync:\n  concurrency: -1\n"))

	var collection ConfigurationErrorCollection
	require.ErrorAs(t, err, &collection)
	require.Equal(t, 1, collection.Count())
	assert.Equal(t, "sync.concurrency", collection.Errors[0].Field)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvSearchPassword, "s3cret")
	t.Setenv(EnvReportingToken, "tok")

	cfg, err := LoadConfig(writeConfig(t, "search:\n  password: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Search.Password)
	assert.Equal(t, "tok", cfg.Reporting.Token)
	assert.Empty(t, cfg.Dashboard.Password)
}

func TestApplyEnv_OnlySetVariables(t *testing.T) {
	cfg := Default()
	cfg.Dashboard.Password = "keep"
	ApplyEnv(&cfg, func(key string) (string, bool) {
		if key == EnvSearchPassword {
			return "", true
		}
		return "", false
	})
	assert.Equal(t, "", cfg.Search.Password)
	assert.Equal(t, "keep", cfg.Dashboard.Password)
}
