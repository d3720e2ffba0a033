// Package app bootstraps projector and runs its modes.
//
// NewApplication loads the YAML configuration and initializes logging. The
// services a command needs are then built by InitializeServices:
//
//   - the domain store (file directory or sqlite database)
//   - the search, dashboard and, when enabled, reporting clients
//   - the reconciler set and the sweep manager, reporting to prometheus
//
// Serve additionally creates the event bus with every hook registered, the
// file watcher, the cron scheduler and the status API, then blocks until
// SIGINT or SIGTERM. Readiness and shutdown are reported to systemd when the
// process runs under a Type=notify unit.
//
// SyncOnce and Priorities build the same services without the bus, run once
// and release the store.
package app
