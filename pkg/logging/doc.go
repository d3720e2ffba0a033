// Package logging provides the structured logger used across projector.
//
// It is a thin layer over log/slog that keeps one convention everywhere: every
// entry carries a subsystem attribute, and errors are attached as an "error"
// attribute instead of being formatted into the message.
//
//	logging.Init(logging.LevelInfo, logging.FormatJSON, os.Stdout)
//
//	logging.Info("Reconciler", "Synced %d repositories", n)
//	logging.Warn("Priority", "Pattern %q has no representative index", p)
//	logging.Error("Hooks", err, "Handler %s failed for %s", name, event)
//
// Subsystems in use: Bootstrap, Config, Hooks, Executor, Priority, Reconciler,
// Scheduler, Server, FileStore, SQLiteStore, SearchClient, DashboardClient,
// ReportingClient.
//
// The logger is safe for concurrent use. Init replaces the handler and is meant
// to be called once during startup; a text handler on stderr is installed at
// package initialisation so that early log lines are never lost.
package logging
