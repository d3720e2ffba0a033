package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"projector/internal/domain"
	"projector/internal/engines/search"
	"projector/internal/priority"
	"projector/internal/store"
)

// aliasFilter translates alias filters into a bool query. It returns nil
// when the alias is unfiltered.
func aliasFilter(filters []domain.AliasFilter) map[string]any {
	var must, mustNot []any
	for _, f := range filters {
		clause := map[string]any{"terms": map[string]any{f.Field: f.Values}}
		if f.IsNot {
			mustNot = append(mustNot, clause)
		} else {
			must = append(must, clause)
		}
	}
	if len(must) == 0 && len(mustNot) == 0 {
		return nil
	}

	query := map[string]any{}
	if len(must) > 0 {
		query["filter"] = must
	}
	if len(mustNot) > 0 {
		query["must_not"] = mustNot
	}
	return map[string]any{"bool": query}
}

// repositoryPatterns lists the patterns of every repository in the store.
func (b *base) repositoryPatterns(ctx context.Context) ([]string, error) {
	repos, err := b.deps.Store.ListRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	patterns := make([]string, 0, len(repos))
	for _, r := range repos {
		patterns = append(patterns, r.Pattern)
	}
	return patterns, nil
}

// priorityOf resolves the priority of pattern against every repository.
func (b *base) priorityOf(ctx context.Context, pattern string) (int, error) {
	patterns, err := b.repositoryPatterns(ctx)
	if err != nil {
		return 0, err
	}
	return priority.Resolve(pattern, patterns)[0].Priority, nil
}

// upsertTemplates writes the repository template and, depending on whether
// aliases target the repository, writes or removes its alias template.
func (b *base) upsertTemplates(ctx context.Context, repo domain.Repository, rec priority.Record) error {
	prefix := b.deps.Config.TemplatePrefix

	err := step("upsert repository template for "+repo.Pattern, b.deps.Search.UpsertIndexTemplate(ctx, search.Template{
		Name:          domain.RepositoryTemplateName(prefix, repo.Pattern),
		IndexPatterns: []string{repo.Pattern},
		Priority:      rec.WithTieBreak(priority.TieBreakRepository),
		Mappings:      repo.Mapping,
		Settings:      repo.Settings,
	}))
	return errors.Join(err, b.syncAliasTemplate(ctx, repo, rec))
}

// syncAliasTemplate writes the template attaching every alias of repo to new
// indices, or deletes it when no alias targets repo anymore. Only the
// highest-priority template applies to a new index, so the alias template
// carries the repository's mappings and settings too.
func (b *base) syncAliasTemplate(ctx context.Context, repo domain.Repository, rec priority.Record) error {
	name := domain.AliasTemplateName(b.deps.Config.TemplatePrefix, repo.Pattern)

	aliases, err := b.deps.Store.AliasesOfRepository(ctx, repo.Pattern)
	if err != nil {
		return step("list aliases of "+repo.Pattern, err)
	}
	if len(aliases) == 0 {
		return step("delete alias template "+name, b.deps.Search.DeleteIndexTemplate(ctx, name))
	}

	defs := make(map[string]search.Alias, len(aliases))
	for _, a := range aliases {
		defs[a.Pattern] = search.Alias{Filter: aliasFilter(a.Filters)}
	}
	return step("upsert alias template "+name, b.deps.Search.UpsertIndexTemplate(ctx, search.Template{
		Name:          name,
		IndexPatterns: []string{repo.Pattern},
		Priority:      rec.WithTieBreak(priority.TieBreakAlias),
		Mappings:      repo.Mapping,
		Settings:      repo.Settings,
		Aliases:       defs,
	}))
}

// refreshTemplates rewrites the templates of every record. The repository of
// the first record may be passed in, the others are read from the store;
// records whose repository is gone are skipped.
func (b *base) refreshTemplates(ctx context.Context, records []priority.Record, known map[string]domain.Repository) error {
	var errs []error
	for _, rec := range records {
		repo, ok := known[rec.Pattern]
		if !ok {
			var err error
			repo, err = b.deps.Store.GetRepository(ctx, rec.Pattern)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				errs = append(errs, step("read repository "+rec.Pattern, err))
				continue
			}
		}
		errs = append(errs, b.upsertTemplates(ctx, repo, rec))
	}
	return errors.Join(errs...)
}

// refreshAfterDelete recomputes the templates of the descendants of a
// deleted pattern against the remaining set.
func (b *base) refreshAfterDelete(ctx context.Context, deleted string) error {
	remaining, err := b.repositoryPatterns(ctx)
	if err != nil {
		return step("refresh descendants of "+deleted, err)
	}
	remaining = without(remaining, deleted)

	before := priority.NewGraph(append([]string{deleted}, remaining...))
	after := priority.NewGraph(remaining)

	descendants := before.Descendants(deleted)
	sort.Strings(descendants)
	records := make([]priority.Record, 0, len(descendants))
	for _, p := range descendants {
		records = append(records, priority.Record{Pattern: p, Priority: after.Priority(p)})
	}
	return b.refreshTemplates(ctx, records, nil)
}

func without(items []string, drop string) []string {
	out := items[:0:0]
	for _, s := range items {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}
