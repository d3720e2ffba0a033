package reconciler

import (
	"context"
	"errors"
	"fmt"

	"projector/internal/domain"
	"projector/internal/engines/search"
	"projector/internal/executor"
	"projector/internal/priority"
	"projector/internal/store"
)

// Aliases projects repository aliases onto search aliases, read-only roles
// and the alias template of their target.
type Aliases struct {
	*base
}

func (a *Aliases) Kind() Kind { return KindAliases }

func (a *Aliases) SyncAll(ctx context.Context) (executor.Result, error) {
	aliases, err := a.deps.Store.ListAliases(ctx)
	if err != nil {
		return executor.Result{}, fmt.Errorf("list aliases: %w", err)
	}
	return syncEach(ctx, a.base, KindAliases, aliases, a.SyncAlias)
}

// SyncAlias upserts the alias, its role and the alias template of its
// target, then re-publishes the users holding a permission on it. An alias
// whose target repository does not exist is skipped with
// ErrMissingReference.
func (a *Aliases) SyncAlias(ctx context.Context, alias domain.RepositoryAlias) error {
	target, err := a.target(ctx, alias)
	if err != nil {
		return err
	}

	name := domain.AliasRoleName(alias.Pattern)
	role := search.Role{
		Indices: []search.IndexPrivileges{{
			Names:      []string{alias.Pattern},
			Privileges: search.ReadonlyPrivileges,
		}},
	}

	return errors.Join(
		step("upsert role "+name, a.deps.Search.UpsertRole(ctx, name, role)),
		step("upsert alias "+alias.Pattern, a.deps.Search.UpsertAlias(ctx, alias.Pattern, alias.Target, aliasFilter(alias.Filters))),
		a.refreshTarget(ctx, target),
		a.republishHolders(ctx, alias.Pattern),
	)
}

// UnmountAlias removes the alias and its role. The alias template of the
// target is refreshed, or deleted when no alias remains, and the former
// holders are re-published so that they lose the role.
func (a *Aliases) UnmountAlias(ctx context.Context, alias domain.RepositoryAlias) error {
	name := domain.AliasRoleName(alias.Pattern)
	errs := []error{
		step("delete role "+name, a.deps.Search.DeleteRole(ctx, name)),
		step("delete alias "+alias.Pattern, a.deps.Search.DeleteAlias(ctx, alias.Pattern)),
	}

	target, err := a.deps.Store.GetRepository(ctx, alias.Target)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// The repository unmount already removed the alias template.
	case err != nil:
		errs = append(errs, step("read repository "+alias.Target, err))
	default:
		errs = append(errs, a.refreshTarget(ctx, target))
	}
	errs = append(errs, a.republishHolders(ctx, alias.Pattern))
	return errors.Join(errs...)
}

func (a *Aliases) republishHolders(ctx context.Context, pattern string) error {
	if a.deps.Bus == nil {
		return nil
	}
	usernames, err := a.deps.Store.UsersWithAliasPermission(ctx, pattern)
	if err != nil {
		return step("list holders of alias "+pattern, err)
	}
	return step("republish holders of alias "+pattern, a.republishUsers(ctx, usernames))
}

func (a *Aliases) target(ctx context.Context, alias domain.RepositoryAlias) (domain.Repository, error) {
	target, err := a.deps.Store.GetRepository(ctx, alias.Target)
	if errors.Is(err, store.ErrNotFound) {
		return target, fmt.Errorf("alias %s targets repository %s: %w", alias.Pattern, alias.Target, ErrMissingReference)
	}
	if err != nil {
		return target, fmt.Errorf("read repository %s: %w", alias.Target, err)
	}
	return target, nil
}

func (a *Aliases) refreshTarget(ctx context.Context, target domain.Repository) error {
	prio, err := a.priorityOf(ctx, target.Pattern)
	if err != nil {
		return step("resolve priority of "+target.Pattern, err)
	}
	return a.syncAliasTemplate(ctx, target, priority.Record{Pattern: target.Pattern, Priority: prio})
}
