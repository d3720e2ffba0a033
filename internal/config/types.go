package config

import "time"

// Config is the top-level configuration structure for projector.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Store     StoreConfig     `yaml:"store"`
	Search    SearchConfig    `yaml:"search"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Reporting ReportingConfig `yaml:"reporting"`
	Hooks     HooksConfig     `yaml:"hooks"`
	Sync      SyncConfig      `yaml:"sync"`
	Server    ServerConfig    `yaml:"server"`
	Admin     AdminConfig     `yaml:"admin"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn or error (default: info)
	Format string `yaml:"format,omitempty"` // text or json (default: text)
}

// Store drivers.
const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
)

// StoreConfig locates the domain records.
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"` // file or sqlite (default: file)
	// Path is the records directory for the file driver and the database
	// file for the sqlite driver.
	Path string `yaml:"path,omitempty"`
	// Watch publishes hook events when files under Path change. File driver only.
	Watch         bool          `yaml:"watch,omitempty"`
	WatchDebounce time.Duration `yaml:"watchDebounce,omitempty"`
}

// EngineConfig holds the connection settings shared by the engine clients.
type EngineConfig struct {
	URL      string        `yaml:"url,omitempty"`
	Username string        `yaml:"username,omitempty"`
	Password string        `yaml:"password,omitempty"`
	Token    string        `yaml:"token,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	RetryMax int           `yaml:"retryMax,omitempty"`
}

// SearchConfig configures the search engine client and template naming.
type SearchConfig struct {
	EngineConfig   `yaml:",inline"`
	TemplatePrefix string `yaml:"templatePrefix,omitempty"`
}

// DashboardConfig configures the dashboard engine client and workspace rendering.
type DashboardConfig struct {
	EngineConfig        `yaml:",inline"`
	DefaultTimeField    string            `yaml:"defaultTimeField,omitempty"`
	TimeFields          map[string]string `yaml:"timeFields,omitempty"`
	DescriptionTemplate string            `yaml:"descriptionTemplate,omitempty"`
	LogoBaseURL         string            `yaml:"logoBaseUrl,omitempty"`
}

// ReportingConfig configures the optional reporting service projection.
type ReportingConfig struct {
	Enabled               bool `yaml:"enabled,omitempty"`
	EngineConfig          `yaml:",inline"`
	NamespaceNameTemplate string `yaml:"namespaceNameTemplate,omitempty"`
}

// HooksConfig sets the event bus defaults.
type HooksConfig struct {
	Debounce  time.Duration `yaml:"debounce,omitempty"`
	Serialize *bool         `yaml:"serialize,omitempty"`
}

// SerializeEnabled reports whether handlers run serialized per key.
func (h HooksConfig) SerializeEnabled() bool {
	return h.Serialize == nil || *h.Serialize
}

// SyncConfig drives the periodic full sweep.
type SyncConfig struct {
	Schedule    string `yaml:"schedule,omitempty"` // five-field cron expression
	Concurrency int    `yaml:"concurrency,omitempty"`
	OnStartup   bool   `yaml:"onStartup,omitempty"`
}

// ServerConfig configures the status API.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Address string `yaml:"address,omitempty"`
}

// AdminConfig is the global administrator account.
type AdminConfig struct {
	Username string `yaml:"username,omitempty"`
	Email    string `yaml:"email,omitempty"`
	FullName string `yaml:"fullName,omitempty"`
}
