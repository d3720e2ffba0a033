package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleNames(t *testing.T) {
	assert.Equal(t, "repository.x-*.events.readonly", RepositoryRoleName("x-*", "events", AccessReadonly))
	assert.Equal(t, "repository.x-*.events.all", RepositoryRoleName("x-*", "events", AccessFor(false)))
	assert.Equal(t, "alias.x-alias.readonly", AliasRoleName("x-alias"))
	assert.Equal(t, "space.s1.ezpaarse.all", SpaceRoleName("s1", "ezpaarse", AccessAll))
}

func TestTemplateNames(t *testing.T) {
	assert.Equal(t, "projector.repository.a-logs-_", RepositoryTemplateName("projector.", "a-logs-*"))
	assert.Equal(t, "projector.aliases.a-_", AliasTemplateName("projector.", "A-*"))
	assert.Equal(t, "repository._", RepositoryTemplateName("", "*"))
}

func TestPayloadKeys(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		kind    Kind
		key     string
	}{
		{"repository", Repository{Pattern: "a-*"}, KindRepository, "a-*"},
		{"alias", RepositoryAlias{Pattern: "a-alias"}, KindAlias, "a-alias"},
		{"role", ElasticRole{Name: "r1"}, KindElasticRole, "r1"},
		{"user", User{Username: "jdoe"}, KindUser, "jdoe"},
		{"membership", Membership{Username: "jdoe", InstitutionID: "i1"}, KindMembership, "jdoe/i1"},
		{"space", Space{ID: "s1"}, KindSpace, "s1"},
		{"institution", Institution{ID: "i1"}, KindInstitution, "i1"},
		{"relation", Relation{Parent: ElasticRole{Name: "r1"}, Child: RepositoryPermission{Pattern: "a-*"}}, KindRelation, "r1"},
		{"orphan relation", Relation{}, KindRelation, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.payload.Kind())
			assert.Equal(t, tt.key, tt.payload.Key())
		})
	}
}

func TestMembershipHasPermission(t *testing.T) {
	m := Membership{Permissions: []string{PermissionReportingRead}}
	assert.True(t, m.HasPermission(PermissionReportingRead))
	assert.False(t, m.HasPermission(PermissionReportingWrite))
}
