package reconciler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projector/internal/domain"
	"projector/internal/engines/reporting"
)

func TestReporting_SyncInstitution(t *testing.T) {
	snap := testSnapshot()
	snap.Memberships[0].Permissions = []string{domain.PermissionReportingWrite}
	f := newFixture(t, snap, func(d *Dependencies) {
		d.Config.NamespaceNameTemplate = `{{ .institution.name }} ({{ .institution.acronym }})`
	})
	require.NoError(t, f.set.Reporting.SyncUser(context.Background(), snap.Users[0]))

	require.NoError(t, f.set.Reporting.SyncInstitution(context.Background(), snap.Institutions[0]))

	ns, ok := f.reporting.Namespace("i1")
	require.True(t, ok)
	assert.Equal(t, "University One (U1)", ns.Name)
	assert.Equal(t, "logo-1", ns.LogoID)
	assert.Equal(t, map[string]any{"elastic": map[string]any{
		"roles": []string{"repository.x-*.ezpaarse.readonly"},
	}}, ns.Attrs)

	access, ok := f.reporting.Membership("i1", "alice")
	require.True(t, ok)
	assert.Equal(t, reporting.AccessReadWrite, access)
}

func TestReporting_MembershipAccess(t *testing.T) {
	tests := []struct {
		name        string
		permissions []string
		want        reporting.Access
		wantMember  bool
	}{
		{"read", []string{domain.PermissionReportingRead}, reporting.AccessRead, true},
		{"write wins", []string{domain.PermissionReportingRead, domain.PermissionReportingWrite}, reporting.AccessReadWrite, true},
		{"none", []string{"other:feature"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testSnapshot())
			m := domain.Membership{Username: "alice", InstitutionID: "i1", Permissions: tt.permissions}
			require.NoError(t, f.reporting.UpsertMembership(context.Background(), "i1", "alice", reporting.AccessRead))

			require.NoError(t, f.set.Reporting.SyncMembership(context.Background(), m))

			access, ok := f.reporting.Membership("i1", "alice")
			assert.Equal(t, tt.wantMember, ok)
			assert.Equal(t, tt.want, access)
		})
	}
}

func TestReporting_SyncAll(t *testing.T) {
	snap := testSnapshot()
	snap.Memberships[0].Permissions = []string{domain.PermissionReportingRead}
	f := newFixture(t, snap)

	res, err := f.set.Reporting.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fulfilled)
	assert.Zero(t, res.Errors)

	_, ok := f.reporting.User("alice")
	assert.True(t, ok)
	access, ok := f.reporting.Membership("i1", "alice")
	require.True(t, ok)
	assert.Equal(t, reporting.AccessRead, access)
}

func TestReporting_Unmount(t *testing.T) {
	f := newFixture(t, testSnapshot())
	ctx := context.Background()
	snap := testSnapshot()

	res, err := f.set.Reporting.SyncAll(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Errors)

	require.NoError(t, f.set.Reporting.UnmountUser(ctx, snap.Users[0]))
	require.NoError(t, f.set.Reporting.UnmountInstitution(ctx, snap.Institutions[0]))

	_, ok := f.reporting.User("alice")
	assert.False(t, ok)
	_, ok = f.reporting.Namespace("i1")
	assert.False(t, ok)
}

func TestReporting_DisabledWithoutEngine(t *testing.T) {
	f := newFixture(t, testSnapshot(), func(d *Dependencies) { d.Reporting = nil })
	assert.Nil(t, f.set.Reporting)
	for _, s := range f.set.Synchronizers() {
		assert.NotEqual(t, KindReporting, s.Kind())
	}
}
