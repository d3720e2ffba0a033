package reconciler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projector/internal/domain"
	"projector/internal/engines/search"
	"projector/internal/hooks"
	"projector/internal/store"
)

func TestAliases_Sync(t *testing.T) {
	snap := nestedSnapshot()
	alias := domain.RepositoryAlias{
		Pattern: "a-view",
		Target:  "a-*",
		Filters: []domain.AliasFilter{{Field: "portal", Values: []string{"p1"}}},
	}
	snap.Aliases = []domain.RepositoryAlias{alias}
	f := newFixture(t, snap)

	require.NoError(t, f.set.Aliases.SyncAlias(context.Background(), alias))

	state, ok := f.search.Alias("a-view")
	require.True(t, ok)
	assert.Equal(t, "a-*", state.Target)
	assert.Equal(t, aliasFilter(alias.Filters), state.Filter)

	role, ok := f.search.Role("alias.a-view.readonly")
	require.True(t, ok)
	assert.Equal(t, []search.IndexPrivileges{{Names: []string{"a-view"}, Privileges: search.ReadonlyPrivileges}}, role.Indices)

	tpl, ok := f.search.Template("projector.aliases.a-_")
	require.True(t, ok)
	assert.Equal(t, 405, tpl.Priority)
	assert.Equal(t, search.Alias{Filter: aliasFilter(alias.Filters)}, tpl.Aliases["a-view"])
}

func TestAliases_MissingTarget(t *testing.T) {
	f := newFixture(t, nestedSnapshot())
	alias := domain.RepositoryAlias{Pattern: "orphan", Target: "nope-*"}

	err := f.set.Aliases.SyncAlias(context.Background(), alias)
	assert.ErrorIs(t, err, ErrMissingReference)
	assert.Empty(t, f.search.Calls())
}

func TestAliases_SyncAllSkipsMissingTarget(t *testing.T) {
	snap := nestedSnapshot()
	snap.Aliases = []domain.RepositoryAlias{
		{Pattern: "a-view", Target: "a-*"},
		{Pattern: "orphan", Target: "nope-*"},
	}
	f := newFixture(t, snap)

	res, err := f.set.Aliases.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fulfilled)
	assert.Equal(t, 1, res.Errors)
}

func TestAliases_UnmountLastAliasDeletesTemplate(t *testing.T) {
	snap := nestedSnapshot()
	alias := domain.RepositoryAlias{Pattern: "a-view", Target: "a-*"}
	snap.Aliases = []domain.RepositoryAlias{alias}
	f := newFixture(t, snap)
	ctx := context.Background()

	require.NoError(t, f.set.Aliases.SyncAlias(ctx, alias))
	require.NoError(t, f.store.Remove(ctx, alias))
	require.NoError(t, f.set.Aliases.UnmountAlias(ctx, alias))

	_, ok := f.search.Alias("a-view")
	assert.False(t, ok)
	_, ok = f.search.Role("alias.a-view.readonly")
	assert.False(t, ok)
	_, ok = f.search.Template("projector.aliases.a-_")
	assert.False(t, ok)
}

func TestAliases_UnmountKeepsTemplateOfRemainingAliases(t *testing.T) {
	snap := nestedSnapshot()
	first := domain.RepositoryAlias{Pattern: "a-view", Target: "a-*"}
	second := domain.RepositoryAlias{Pattern: "a-other", Target: "a-*"}
	snap.Aliases = []domain.RepositoryAlias{first, second}
	f := newFixture(t, snap)
	ctx := context.Background()

	require.NoError(t, f.set.Aliases.SyncAlias(ctx, first))
	require.NoError(t, f.store.Remove(ctx, first))
	require.NoError(t, f.set.Aliases.UnmountAlias(ctx, first))

	tpl, ok := f.search.Template("projector.aliases.a-_")
	require.True(t, ok)
	assert.Contains(t, tpl.Aliases, "a-other")
	assert.NotContains(t, tpl.Aliases, "a-view")
}

func aliasHolderSnapshot(alias domain.RepositoryAlias) store.Snapshot {
	snap := testSnapshot()
	snap.Aliases = []domain.RepositoryAlias{alias}
	snap.Memberships[0].AliasPermissions = []domain.AliasPermission{{Pattern: alias.Pattern}}
	return snap
}

func TestAliases_SyncRepublishesHolders(t *testing.T) {
	alias := domain.RepositoryAlias{Pattern: "x-view", Target: "x-*"}
	f := newFixture(t, aliasHolderSnapshot(alias))

	require.NoError(t, f.set.Aliases.SyncAlias(context.Background(), alias))
	assert.Equal(t, []string{"alice"}, f.bus.keys(hooks.UserUpsert))
}

func TestAliases_UnmountRevokesRoleFromHolders(t *testing.T) {
	alias := domain.RepositoryAlias{Pattern: "x-view", Target: "x-*"}
	f := newFixture(t, aliasHolderSnapshot(alias))
	ctx := context.Background()
	alice := testSnapshot().Users[0]

	require.NoError(t, f.set.Users.SyncUser(ctx, alice))
	u, ok := f.search.User("alice")
	require.True(t, ok)
	assert.Contains(t, u.Roles, "alias.x-view.readonly")

	require.NoError(t, f.store.Remove(ctx, alias))
	require.NoError(t, f.set.Aliases.UnmountAlias(ctx, alias))
	assert.Equal(t, []string{"alice"}, f.bus.keys(hooks.UserUpsert))

	// Re-syncing the published user drops the role of the removed alias.
	require.NoError(t, f.set.Users.SyncUser(ctx, alice))
	u, ok = f.search.User("alice")
	require.True(t, ok)
	assert.NotContains(t, u.Roles, "alias.x-view.readonly")
}
