package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"projector/internal/config"
	"projector/internal/priority"
	"projector/internal/reconciler"
	"projector/internal/store"
	"projector/pkg/logging"
)

// Application represents the main application structure that bootstraps and runs projector.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration and initialize logging
//  2. Execution phase: build the services required by the command and run it
//
// Example usage:
//
//	app, err := app.NewApplication(app.NewConfig(false, "projector.yaml"), os.Stderr)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return app.Serve(ctx)
type Application struct {
	config *Config
}

// NewApplication loads the configuration and initializes logging to output.
func NewApplication(cfg *Config, output io.Writer) (*Application, error) {
	if output == nil {
		output = os.Stderr
	}

	// Early log lines go to the CLI handler until the file is read.
	logging.InitForCLI(logging.LevelInfo, output)

	settings, err := config.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", cfg.ConfigPath)
		return nil, fmt.Errorf("failed to load configuration from %s: %w", cfg.ConfigPath, err)
	}
	cfg.Settings = &settings

	level, _ := logging.ParseLevel(settings.Logging.Level)
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(level, logging.Format(settings.Logging.Format), output)

	return &Application{config: cfg}, nil
}

// Settings returns the loaded configuration.
func (a *Application) Settings() config.Config {
	return *a.config.Settings
}

// Serve runs projector until ctx is cancelled or a termination signal is
// received.
func (a *Application) Serve(ctx context.Context) error {
	services, err := InitializeServices(ctx, a.config.Settings, ModeServe)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	return runServeMode(ctx, a.config.Settings, services)
}

// SyncOnce runs one full sweep over kinds, or every kind when none is given.
func (a *Application) SyncOnce(ctx context.Context, kinds ...reconciler.Kind) (reconciler.Report, error) {
	services, err := InitializeServices(ctx, a.config.Settings, ModeOnce)
	if err != nil {
		return reconciler.Report{}, fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := services.Close(); err != nil {
			logging.Warn("Bootstrap", "Failed to close services: %v", err)
		}
	}()

	return services.Manager.SyncAll(ctx, kinds...)
}

// Priorities resolves pattern against the repository patterns of the store.
func (a *Application) Priorities(ctx context.Context, pattern string) ([]priority.Record, error) {
	services, err := InitializeServices(ctx, a.config.Settings, ModeOnce)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() { _ = services.Close() }()

	repos, err := services.Store.ListRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	patterns := make([]string, 0, len(repos))
	for _, r := range repos {
		patterns = append(patterns, r.Pattern)
	}

	records := priority.Resolve(pattern, patterns)
	priority.SortByPriority(records)
	return records, nil
}

// Import writes every entity of snap into the configured store.
func (a *Application) Import(ctx context.Context, snap store.Snapshot) (int, error) {
	services := &Services{}
	defer func() { _ = services.Close() }()

	rw, _, err := services.openStore(ctx, a.config.Settings.Store)
	if err != nil {
		return 0, err
	}
	return store.Import(ctx, rw, snap)
}
