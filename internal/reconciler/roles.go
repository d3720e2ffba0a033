package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"projector/internal/domain"
	"projector/internal/engines/search"
	"projector/internal/executor"
	"projector/internal/store"
)

// ElasticRoles projects custom roles onto search roles of the same name.
type ElasticRoles struct {
	*base
}

func (e *ElasticRoles) Kind() Kind { return KindElasticRoles }

func (e *ElasticRoles) SyncAll(ctx context.Context) (executor.Result, error) {
	roles, err := e.deps.Store.ListElasticRoles(ctx)
	if err != nil {
		return executor.Result{}, fmt.Errorf("list elastic roles: %w", err)
	}
	return syncEach(ctx, e.base, KindElasticRoles, roles, func(ctx context.Context, role domain.ElasticRole) error {
		return e.upsert(ctx, role)
	})
}

// SyncElasticRole upserts the role and re-publishes the users holding it.
func (e *ElasticRoles) SyncElasticRole(ctx context.Context, role domain.ElasticRole) error {
	return errors.Join(e.upsert(ctx, role), e.cascade(ctx, role.Name))
}

// SyncElasticRoleByName re-reads the role from the store, as permission edge
// events only carry the edge. A role that no longer exists is ignored.
func (e *ElasticRoles) SyncElasticRoleByName(ctx context.Context, name string) error {
	role, err := e.deps.Store.GetElasticRole(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read elastic role %s: %w", name, err)
	}
	return e.SyncElasticRole(ctx, role)
}

// UnmountElasticRole deletes the role and re-publishes its former holders.
func (e *ElasticRoles) UnmountElasticRole(ctx context.Context, role domain.ElasticRole) error {
	return errors.Join(
		step("delete role "+role.Name, e.deps.Search.DeleteRole(ctx, role.Name)),
		e.cascade(ctx, role.Name),
	)
}

func (e *ElasticRoles) upsert(ctx context.Context, role domain.ElasticRole) error {
	return step("upsert role "+role.Name, e.deps.Search.UpsertRole(ctx, role.Name, search.Role{
		Indices: rolePrivileges(role),
	}))
}

// rolePrivileges translates the permission edges of role into index
// privileges, one entry per pattern, sorted by pattern.
func rolePrivileges(role domain.ElasticRole) []search.IndexPrivileges {
	out := make([]search.IndexPrivileges, 0, len(role.RepositoryPermissions)+len(role.AliasPermissions))
	for _, p := range role.RepositoryPermissions {
		out = append(out, search.IndexPrivileges{
			Names:      []string{p.Pattern},
			Privileges: privilegesFor(domain.AccessFor(p.Readonly)),
		})
	}
	for _, p := range role.AliasPermissions {
		out = append(out, search.IndexPrivileges{
			Names:      []string{p.Pattern},
			Privileges: search.ReadonlyPrivileges,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Names[0] < out[j].Names[0]
	})
	return out
}

func (e *ElasticRoles) cascade(ctx context.Context, name string) error {
	if e.deps.Bus == nil {
		return nil
	}
	users, err := e.deps.Store.UsersWithElasticRole(ctx, name)
	if err != nil {
		return step("list users with role "+name, err)
	}
	return e.republishUsers(ctx, users)
}
