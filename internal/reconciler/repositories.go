package reconciler

import (
	"context"
	"errors"
	"fmt"

	"projector/internal/domain"
	"projector/internal/engines/search"
	"projector/internal/executor"
	"projector/internal/hooks"
	"projector/internal/priority"
)

var accesses = []domain.Access{domain.AccessReadonly, domain.AccessAll}

func privilegesFor(access domain.Access) []string {
	if access == domain.AccessReadonly {
		return search.ReadonlyPrivileges
	}
	return search.AllPrivileges
}

// Repositories projects repositories onto search roles and index templates.
type Repositories struct {
	*base
}

func (r *Repositories) Kind() Kind { return KindRepositories }

// SyncAll upserts the roles and templates of every repository. Priorities
// come from a single graph over the whole pattern set.
func (r *Repositories) SyncAll(ctx context.Context) (executor.Result, error) {
	repos, err := r.deps.Store.ListRepositories(ctx)
	if err != nil {
		return executor.Result{}, fmt.Errorf("list repositories: %w", err)
	}

	patterns := make([]string, 0, len(repos))
	for _, repo := range repos {
		patterns = append(patterns, repo.Pattern)
	}
	graph := priority.NewGraph(patterns)

	return syncEach(ctx, r.base, KindRepositories, repos, func(ctx context.Context, repo domain.Repository) error {
		rec := priority.Record{Pattern: repo.Pattern, Priority: graph.Priority(repo.Pattern)}
		return errors.Join(r.upsertRoles(ctx, repo), r.upsertTemplates(ctx, repo, rec))
	})
}

// SyncRepository upserts the roles of repo, refreshes the templates of repo
// and of every narrower pattern, then re-publishes the users and spaces that
// depend on it.
func (r *Repositories) SyncRepository(ctx context.Context, repo domain.Repository) error {
	errs := []error{r.upsertRoles(ctx, repo)}

	patterns, err := r.repositoryPatterns(ctx)
	if err != nil {
		errs = append(errs, step("resolve priorities of "+repo.Pattern, err))
	} else {
		records := priority.Resolve(repo.Pattern, patterns)
		errs = append(errs, r.refreshTemplates(ctx, records, map[string]domain.Repository{repo.Pattern: repo}))
	}

	errs = append(errs, r.cascade(ctx, repo))
	return errors.Join(errs...)
}

// UnmountRepository removes the roles and templates of repo and refreshes
// the templates of the patterns it used to contain.
func (r *Repositories) UnmountRepository(ctx context.Context, repo domain.Repository) error {
	var errs []error
	for _, access := range accesses {
		name := domain.RepositoryRoleName(repo.Pattern, repo.Type, access)
		errs = append(errs, step("delete role "+name, r.deps.Search.DeleteRole(ctx, name)))
	}

	prefix := r.deps.Config.TemplatePrefix
	for _, name := range []string{
		domain.RepositoryTemplateName(prefix, repo.Pattern),
		domain.AliasTemplateName(prefix, repo.Pattern),
	} {
		errs = append(errs, step("delete template "+name, r.deps.Search.DeleteIndexTemplate(ctx, name)))
	}

	errs = append(errs, r.refreshAfterDelete(ctx, repo.Pattern), r.cascade(ctx, repo))
	return errors.Join(errs...)
}

func (r *Repositories) upsertRoles(ctx context.Context, repo domain.Repository) error {
	var errs []error
	for _, access := range accesses {
		name := domain.RepositoryRoleName(repo.Pattern, repo.Type, access)
		role := search.Role{
			Indices: []search.IndexPrivileges{{
				Names:      []string{repo.Pattern},
				Privileges: privilegesFor(access),
			}},
		}
		errs = append(errs, step("upsert role "+name, r.deps.Search.UpsertRole(ctx, name, role)))
	}
	return errors.Join(errs...)
}

// cascade re-publishes the users holding a permission on repo and the spaces
// of its institutions that share its type.
func (r *Repositories) cascade(ctx context.Context, repo domain.Repository) error {
	if r.deps.Bus == nil {
		return nil
	}

	var errs []error
	users, err := r.deps.Store.UsersWithRepositoryPermission(ctx, repo.Pattern)
	if err != nil {
		errs = append(errs, step("list users of "+repo.Pattern, err))
	} else {
		errs = append(errs, r.republishUsers(ctx, users))
	}

	for _, id := range repo.InstitutionIDs {
		spaces, err := r.deps.Store.SpacesOfInstitution(ctx, id)
		if err != nil {
			errs = append(errs, step("list spaces of institution "+id, err))
			continue
		}
		for _, space := range spaces {
			if space.Type == repo.Type {
				r.publish(hooks.SpaceUpsert, space)
			}
		}
	}
	return errors.Join(errs...)
}
