package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projector/internal/domain"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Institutions: []domain.Institution{
			{ID: "i1", Name: "Inst 1", ElasticRoles: []string{"custom-inst"}},
			{ID: "i2", Name: "Inst 2"},
		},
		Repositories: []domain.Repository{
			{Pattern: "x-*", Type: "ezpaarse", InstitutionIDs: []string{"i1"}},
			{Pattern: "y-*", Type: "ezcounter", InstitutionIDs: []string{"i1", "i2"}},
		},
		Aliases: []domain.RepositoryAlias{
			{Pattern: "x-alias", Target: "x-*"},
		},
		ElasticRoles: []domain.ElasticRole{{Name: "custom-inst"}, {Name: "custom-user"}},
		Users: []domain.User{
			{Username: "alice", Roles: []string{"custom-user"}},
			{Username: "bob"},
		},
		Memberships: []domain.Membership{
			{
				Username: "alice", InstitutionID: "i1",
				RepositoryPermissions: []domain.RepositoryPermission{{Pattern: "x-*", Readonly: true}},
				SpacePermissions:      []domain.SpacePermission{{SpaceID: "s1"}},
			},
			{
				Username: "bob", InstitutionID: "i2",
				AliasPermissions: []domain.AliasPermission{{Pattern: "x-alias"}},
			},
		},
		Spaces: []domain.Space{{ID: "s1", Type: "ezpaarse", InstitutionID: "i1"}},
	}
}

func TestMemory_Queries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testSnapshot())

	repos, err := m.RepositoriesOfInstitution(ctx, "i2")
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "y-*", repos[0].Pattern)

	aliases, err := m.AliasesOfRepository(ctx, "x-*")
	require.NoError(t, err)
	assert.Len(t, aliases, 1)

	users, err := m.UsersWithRepositoryPermission(ctx, "x-*")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)

	users, err = m.UsersWithAliasPermission(ctx, "x-alias")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, users)

	users, err = m.UsersWithSpacePermission(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)

	users, err = m.UsersWithElasticRole(ctx, "custom-inst")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)

	users, err = m.UsersWithElasticRole(ctx, "custom-user")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)

	spaces, err := m.SpacesOfInstitution(ctx, "i1")
	require.NoError(t, err)
	assert.Len(t, spaces, 1)
}

func TestMemory_NotFound(t *testing.T) {
	m := NewMemory(Snapshot{})
	_, err := m.GetRepository(context.Background(), "missing-*")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "missing-*")
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testSnapshot())

	u, err := m.GetUser(ctx, "alice")
	require.NoError(t, err)
	u.Roles[0] = "tampered"

	again, err := m.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"custom-user"}, again.Roles)
}

func TestMemory_PutAndRemove(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testSnapshot())

	require.NoError(t, m.Put(ctx, domain.Space{ID: "s2", InstitutionID: "i2"}))
	_, err := m.GetSpace(ctx, "s2")
	require.NoError(t, err)

	require.NoError(t, m.Remove(ctx, domain.User{Username: "alice"}))
	memberships, err := m.MembershipsOfUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, memberships, "removing a user drops its memberships")

	assert.Error(t, m.Put(ctx, domain.APIKey{ID: "k"}))
	assert.Error(t, m.Remove(ctx, nil))
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	src := testSnapshot()
	dst := NewMemory(Snapshot{})

	n, err := Import(ctx, dst, src)
	require.NoError(t, err)
	assert.Equal(t, len(src.Payloads()), n)
	assert.Equal(t, NewMemory(src).Snapshot(), dst.Snapshot())
}
