// Package reconciler projects the domain onto the search engine, the
// dashboard engine and the reporting service.
//
// # Overview
//
// Each entity kind has a synchronizer that turns one domain record into the
// idempotent upserts and deletes of its external projection:
//
//   - Repositories: read-only and read-write roles, index templates whose
//     priorities come from the priority package
//   - Aliases: search aliases, read-only roles, the alias template of the target
//   - ElasticRoles: custom search roles built from permission edges
//   - Users: search users carrying the roles derived from their memberships
//   - Spaces: dashboard workspaces, space roles and index patterns
//   - Reporting: namespaces, reporting users and memberships (optional)
//
// Every external call inside one synchronization is isolated: a failing step
// is logged and joined into the returned error, the remaining steps still run.
//
// # Incremental and full synchronization
//
// RegisterHooks wires the synchronizers to the event bus, so a domain mutation
// is applied once its burst has settled. Synchronizers cascade through the bus
// when a change affects other entities, e.g. a repository type change
// re-publishes the users holding it.
//
// Manager.SyncAll re-converges everything from scratch, kind by kind in
// dependency order, running the entities of a kind through the throttled
// executor:
//
//	set, err := reconciler.NewSet(deps)
//	if err != nil {
//	    return err
//	}
//	reconciler.RegisterHooks(bus, set)
//	manager := reconciler.NewManager(set.Synchronizers(), recorder)
//	report, err := manager.SyncAll(ctx)
//
// Failures of a sweep are counted in its Report, never returned.
package reconciler
