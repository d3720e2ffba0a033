// Package hooks implements the event bus that connects domain mutations to
// the reconcilers.
//
// Handlers are registered once at startup against "entity:action" events.
// Publishing is fire-and-forget: each registration gets its own proxy per
// resolved key, which debounces publishes on the trailing edge and, when
// serialized, never lets two invocations for the same key overlap. A publish
// that arrives while the handler runs is parked in a single pending slot and
// replaces whatever was parked there before, so the latest payload always
// wins and intermediate ones may be skipped.
//
//	bus := hooks.New(hooks.WithDefaultDebounce(250 * time.Millisecond))
//	bus.Register(hooks.RepositoryUpsert, "repositories.sync", handler)
//	bus.Publish(hooks.RepositoryUpsert, repo)
//	defer bus.Close()
//
// Handler errors and panics are logged with the event, handler name and key
// and reported to the optional Recorder. Nothing is retried here; the
// periodic full sweep converges whatever an incremental run missed.
package hooks
