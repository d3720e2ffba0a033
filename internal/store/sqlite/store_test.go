package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projector/internal/domain"
	"projector/internal/store"
)

func newStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "projector-test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s, ctx
}

func seed(t *testing.T, s *Store, ctx context.Context) {
	t.Helper()
	snap := store.Snapshot{
		Institutions: []domain.Institution{{ID: "i1", Name: "Inst", ElasticRoles: []string{"inst-role"}}},
		Repositories: []domain.Repository{
			{Pattern: "x-*", Type: "ezpaarse", InstitutionIDs: []string{"i1"}, Mapping: map[string]any{"dynamic": true}},
			{Pattern: "y-*", Type: "ezcounter"},
		},
		Aliases:      []domain.RepositoryAlias{{Pattern: "x-alias", Target: "x-*", Filters: []domain.AliasFilter{{Field: "a", Values: []string{"b"}}}}},
		ElasticRoles: []domain.ElasticRole{{Name: "inst-role"}, {Name: "user-role"}},
		Users: []domain.User{
			{Username: "alice", Email: "alice@example.org", Roles: []string{"user-role"}},
			{Username: "bob"},
		},
		Memberships: []domain.Membership{
			{
				Username: "alice", InstitutionID: "i1",
				RepositoryPermissions: []domain.RepositoryPermission{{Pattern: "x-*", Readonly: true}},
				SpacePermissions:      []domain.SpacePermission{{SpaceID: "s1"}},
				AliasPermissions:      []domain.AliasPermission{{Pattern: "x-alias"}},
			},
		},
		Spaces: []domain.Space{{ID: "s1", Type: "ezpaarse", InstitutionID: "i1"}},
	}
	_, err := store.Import(ctx, s, snap)
	require.NoError(t, err)
}

func TestMigrations_Idempotent(t *testing.T) {
	s, ctx := newStore(t)
	require.NoError(t, ApplyMigrations(ctx, s.DB()))

	v, err := SchemaVersion(ctx, s.DB())
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)

	require.NoError(t, RollbackAll(ctx, s.DB()))
	v, err = SchemaVersion(ctx, s.DB())
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestStore_Queries(t *testing.T) {
	s, ctx := newStore(t)
	seed(t, s, ctx)

	repo, err := s.GetRepository(ctx, "x-*")
	require.NoError(t, err)
	assert.Equal(t, true, repo.Mapping["dynamic"])

	repos, err := s.RepositoriesOfInstitution(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "x-*", repos[0].Pattern)

	aliases, err := s.AliasesOfRepository(ctx, "x-*")
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, []string{"b"}, aliases[0].Filters[0].Values)

	for name, query := range map[string]func(context.Context, string) ([]string, error){
		"repository": s.UsersWithRepositoryPermission,
		"alias":      s.UsersWithAliasPermission,
		"space":      s.UsersWithSpacePermission,
		"role":       s.UsersWithElasticRole,
		"members":    s.UsersOfInstitution,
	} {
		arg := map[string]string{"repository": "x-*", "alias": "x-alias", "space": "s1", "role": "inst-role", "members": "i1"}[name]
		users, err := query(ctx, arg)
		require.NoError(t, err, name)
		assert.Equal(t, []string{"alice"}, users, name)
	}

	users, err := s.UsersWithElasticRole(ctx, "user-role")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)

	spaces, err := s.SpacesOfInstitution(ctx, "i1")
	require.NoError(t, err)
	assert.Len(t, spaces, 1)
}

func TestStore_UpsertReplacesEdges(t *testing.T) {
	s, ctx := newStore(t)
	seed(t, s, ctx)

	require.NoError(t, s.Put(ctx, domain.Membership{
		Username: "alice", InstitutionID: "i1",
		RepositoryPermissions: []domain.RepositoryPermission{{Pattern: "y-*"}},
	}))

	users, err := s.UsersWithRepositoryPermission(ctx, "x-*")
	require.NoError(t, err)
	assert.Empty(t, users)
	users, err = s.UsersWithSpacePermission(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, users)

	ms, err := s.MembershipsOfUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.False(t, ms[0].RepositoryPermissions[0].Readonly)
}

func TestStore_RemoveCascades(t *testing.T) {
	s, ctx := newStore(t)
	seed(t, s, ctx)

	require.NoError(t, s.Remove(ctx, domain.User{Username: "alice"}))
	require.NoError(t, s.Remove(ctx, domain.User{Username: "alice"}))

	_, err := s.GetUser(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)

	ms, err := s.ListMemberships(ctx)
	require.NoError(t, err)
	assert.Empty(t, ms)

	users, err := s.UsersWithRepositoryPermission(ctx, "x-*")
	require.NoError(t, err)
	assert.Empty(t, users)

	assert.Error(t, s.Put(ctx, domain.APIKey{ID: "k"}))
}

func TestStore_MatchesMemoryStore(t *testing.T) {
	s, ctx := newStore(t)
	seed(t, s, ctx)

	mem := store.NewMemory(store.Snapshot{})
	for _, load := range []func() ([]domain.Payload, error){
		func() ([]domain.Payload, error) { return payloads(s.ListInstitutions(ctx)) },
		func() ([]domain.Payload, error) { return payloads(s.ListRepositories(ctx)) },
		func() ([]domain.Payload, error) { return payloads(s.ListAliases(ctx)) },
		func() ([]domain.Payload, error) { return payloads(s.ListElasticRoles(ctx)) },
		func() ([]domain.Payload, error) { return payloads(s.ListUsers(ctx)) },
		func() ([]domain.Payload, error) { return payloads(s.ListSpaces(ctx)) },
		func() ([]domain.Payload, error) { return payloads(s.ListMemberships(ctx)) },
	} {
		ps, err := load()
		require.NoError(t, err)
		for _, p := range ps {
			require.NoError(t, mem.Put(ctx, p))
		}
	}

	memUsers, err := mem.UsersWithElasticRole(ctx, "inst-role")
	require.NoError(t, err)
	dbUsers, err := s.UsersWithElasticRole(ctx, "inst-role")
	require.NoError(t, err)
	assert.Equal(t, memUsers, dbUsers)
}

func payloads[T domain.Payload](items []T, err error) ([]domain.Payload, error) {
	if err != nil {
		return nil, err
	}
	out := make([]domain.Payload, len(items))
	for i, v := range items {
		out[i] = v
	}
	return out, nil
}
