package reconciler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projector/internal/domain"
	"projector/internal/engines/search"
	"projector/internal/hooks"
)

func TestElasticRoles_SyncAndUnmount(t *testing.T) {
	snap := testSnapshot()
	role := domain.ElasticRole{
		Name:                  "auditors",
		RepositoryPermissions: []domain.RepositoryPermission{{Pattern: "y-*"}, {Pattern: "x-*", Readonly: true}},
		AliasPermissions:      []domain.AliasPermission{{Pattern: "x-alias"}},
	}
	snap.ElasticRoles = []domain.ElasticRole{role}
	snap.Users[0].Roles = []string{"auditors"}
	f := newFixture(t, snap)
	ctx := context.Background()

	require.NoError(t, f.set.ElasticRoles.SyncElasticRole(ctx, role))

	got, ok := f.search.Role("auditors")
	require.True(t, ok)
	assert.Equal(t, []search.IndexPrivileges{
		{Names: []string{"x-*"}, Privileges: search.ReadonlyPrivileges},
		{Names: []string{"x-alias"}, Privileges: search.ReadonlyPrivileges},
		{Names: []string{"y-*"}, Privileges: search.AllPrivileges},
	}, got.Indices)
	assert.Equal(t, []string{"alice"}, f.bus.keys(hooks.UserUpsert))

	require.NoError(t, f.set.ElasticRoles.UnmountElasticRole(ctx, role))
	_, ok = f.search.Role("auditors")
	assert.False(t, ok)
}

func TestElasticRoles_SyncByNameReadsStore(t *testing.T) {
	snap := testSnapshot()
	snap.ElasticRoles = []domain.ElasticRole{{
		Name:                  "auditors",
		RepositoryPermissions: []domain.RepositoryPermission{{Pattern: "x-*", Readonly: true}},
	}}
	f := newFixture(t, snap)
	ctx := context.Background()

	require.NoError(t, f.set.ElasticRoles.SyncElasticRoleByName(ctx, "auditors"))
	_, ok := f.search.Role("auditors")
	assert.True(t, ok)

	require.NoError(t, f.set.ElasticRoles.SyncElasticRoleByName(ctx, "unknown"))
	assert.Equal(t, 1, f.search.CallCount("UpsertRole"))
}
