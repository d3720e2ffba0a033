package app

import (
	"context"
	"errors"
	"fmt"

	"projector/internal/config"
	"projector/internal/engines/dashboard"
	"projector/internal/engines/httpclient"
	"projector/internal/engines/reporting"
	"projector/internal/engines/search"
	"projector/internal/hooks"
	"projector/internal/metrics"
	"projector/internal/reconciler"
	"projector/internal/scheduler"
	"projector/internal/server"
	"projector/internal/store"
	"projector/internal/store/file"
	"projector/internal/store/sqlite"
	"projector/pkg/logging"
)

// Services holds all initialized components of a running projector.
//
// The optional parts are nil when not used by the mode:
//   - Bus, Watcher, Scheduler and Server only exist in serve mode
//   - Watcher also requires the file driver with watch enabled
type Services struct {
	Store   store.Reader
	Metrics *metrics.Metrics
	Set     *reconciler.Set
	Manager *reconciler.Manager

	Bus       *hooks.Bus
	Watcher   *file.Watcher
	Scheduler *scheduler.Scheduler
	Server    *server.Server

	closers []func() error
}

// Mode selects which long-running components InitializeServices builds.
type Mode int

const (
	// ModeOnce builds what a single sweep needs. Cascading is disabled since
	// the sweep covers every kind.
	ModeOnce Mode = iota
	// ModeServe adds the event bus, the file watcher, the scheduler and the
	// status API.
	ModeServe
)

// InitializeServices creates the store, the engine clients and the
// reconciler, then the components required by mode.
func InitializeServices(ctx context.Context, cfg *config.Config, mode Mode) (_ *Services, err error) {
	s := &Services{}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	st, fileStore, err := s.openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	s.Store = st

	deps := reconciler.Dependencies{
		Store:       st,
		Concurrency: cfg.Sync.Concurrency,
		Config: reconciler.Config{
			TemplatePrefix:        cfg.Search.TemplatePrefix,
			DefaultTimeField:      cfg.Dashboard.DefaultTimeField,
			TimeFields:            cfg.Dashboard.TimeFields,
			DescriptionTemplate:   cfg.Dashboard.DescriptionTemplate,
			NamespaceNameTemplate: cfg.Reporting.NamespaceNameTemplate,
			LogoBaseURL:           cfg.Dashboard.LogoBaseURL,
			Admin:                 adminUser(cfg.Admin),
		},
	}

	if deps.Search, err = search.NewClient(clientConfig(cfg.Search.EngineConfig, "SearchClient")); err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}
	if deps.Dashboard, err = dashboard.NewClient(clientConfig(cfg.Dashboard.EngineConfig, "DashboardClient")); err != nil {
		return nil, fmt.Errorf("failed to create dashboard client: %w", err)
	}
	if cfg.Reporting.Enabled {
		client, err := reporting.NewClient(clientConfig(cfg.Reporting.EngineConfig, "ReportingClient"))
		if err != nil {
			return nil, fmt.Errorf("failed to create reporting client: %w", err)
		}
		deps.Reporting = client
	}

	s.Metrics = metrics.New()

	if mode == ModeServe {
		s.Bus = hooks.New(
			hooks.WithDefaultDebounce(cfg.Hooks.Debounce),
			hooks.WithDefaultSerialize(cfg.Hooks.SerializeEnabled()),
			hooks.WithRecorder(s.Metrics),
		)
		s.closers = append(s.closers, func() error { s.Bus.Close(); return nil })
		deps.Bus = s.Bus
	}

	if s.Set, err = reconciler.NewSet(deps); err != nil {
		return nil, err
	}
	s.Manager = reconciler.NewManager(s.Set.Synchronizers(), s.Metrics)

	if mode != ModeServe {
		return s, nil
	}

	reconciler.RegisterHooks(s.Bus, s.Set)
	logging.Info("Bootstrap", "Registered %d hook handlers", len(s.Bus.Registrations()))

	if cfg.Store.Watch && fileStore != nil {
		s.Watcher = file.NewWatcher(fileStore, s.Bus, cfg.Store.WatchDebounce)
	}

	s.Scheduler, err = scheduler.New(cfg.Sync.Schedule, func(ctx context.Context) error {
		_, err := s.Manager.SyncAll(ctx)
		if errors.Is(err, reconciler.ErrSweepInProgress) {
			logging.Warn("Scheduler", "Skipping scheduled sweep: %v", err)
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if cfg.Server.Enabled {
		s.Server = server.New(s.Manager, st, s.Metrics.Handler())
	}
	return s, nil
}

// openStore opens the configured store. The file store is also returned on
// its own so that it can be watched.
func (s *Services) openStore(ctx context.Context, cfg config.StoreConfig) (store.ReadWriter, *file.Store, error) {
	switch cfg.Driver {
	case config.StoreDriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		logging.Info("Bootstrap", "Using sqlite store at %s", cfg.Path)
		return db, nil, nil
	default:
		fs, err := file.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file store: %w", err)
		}
		logging.Info("Bootstrap", "Using file store at %s", cfg.Path)
		return fs, fs, nil
	}
}

// Close releases the store and stops the bus, in reverse creation order.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func clientConfig(e config.EngineConfig, subsystem string) httpclient.Config {
	return httpclient.Config{
		BaseURL:   e.URL,
		Username:  e.Username,
		Password:  e.Password,
		Token:     e.Token,
		Timeout:   e.Timeout,
		RetryMax:  e.RetryMax,
		Subsystem: subsystem,
	}
}
