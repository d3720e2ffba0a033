package config

import "time"

const (
	DefaultConfigFile     = "projector.yaml"
	DefaultStorePath      = "./data"
	DefaultWatchDebounce  = 500 * time.Millisecond
	DefaultHooksDebounce  = 250 * time.Millisecond
	DefaultSchedule       = "0 */6 * * *"
	DefaultConcurrency    = 15
	DefaultServerAddress  = ":8080"
	DefaultTemplatePrefix = "projector."
	DefaultTimeField      = "datetime"
	DefaultEngineTimeout  = 30 * time.Second
	DefaultEngineRetryMax = 3
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			Driver:        StoreDriverFile,
			Path:          DefaultStorePath,
			WatchDebounce: DefaultWatchDebounce,
		},
		Search: SearchConfig{
			EngineConfig:   EngineConfig{URL: "http://localhost:9200", Timeout: DefaultEngineTimeout, RetryMax: DefaultEngineRetryMax},
			TemplatePrefix: DefaultTemplatePrefix,
		},
		Dashboard: DashboardConfig{
			EngineConfig:     EngineConfig{URL: "http://localhost:5601", Timeout: DefaultEngineTimeout, RetryMax: DefaultEngineRetryMax},
			DefaultTimeField: DefaultTimeField,
		},
		Reporting: ReportingConfig{
			EngineConfig: EngineConfig{Timeout: DefaultEngineTimeout, RetryMax: DefaultEngineRetryMax},
		},
		Hooks: HooksConfig{Debounce: DefaultHooksDebounce},
		Sync: SyncConfig{
			Schedule:    DefaultSchedule,
			Concurrency: DefaultConcurrency,
		},
		Server: ServerConfig{Enabled: true, Address: DefaultServerAddress},
		Admin:  AdminConfig{Username: "admin", FullName: "Administrator"},
	}
}
