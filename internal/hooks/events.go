package hooks

import "strings"

// Event is a colon-delimited "entity:action" hook name.
type Event string

// Entity returns the part before the colon.
func (e Event) Entity() string {
	entity, _, _ := strings.Cut(string(e), ":")
	return entity
}

// Action returns the part after the colon, or "" for malformed names.
func (e Event) Action() string {
	_, action, _ := strings.Cut(string(e), ":")
	return action
}

// Actions shared by every entity.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionUpsert = "upsert"
	ActionDelete = "delete"
)

// EventName builds the event for an entity and action.
func EventName(entity, action string) Event {
	return Event(entity + ":" + action)
}

const (
	RepositoryCreate Event = "repository:create"
	RepositoryUpdate Event = "repository:update"
	RepositoryUpsert Event = "repository:upsert"
	RepositoryDelete Event = "repository:delete"

	AliasCreate Event = "repository_alias:create"
	AliasUpdate Event = "repository_alias:update"
	AliasUpsert Event = "repository_alias:upsert"
	AliasDelete Event = "repository_alias:delete"

	ElasticRoleCreate Event = "elastic_role:create"
	ElasticRoleUpdate Event = "elastic_role:update"
	ElasticRoleUpsert Event = "elastic_role:upsert"
	ElasticRoleDelete Event = "elastic_role:delete"

	ElasticRoleRepositoryPermissionCreate Event = "elastic_role_repository_permission:create"
	ElasticRoleRepositoryPermissionUpdate Event = "elastic_role_repository_permission:update"
	ElasticRoleRepositoryPermissionUpsert Event = "elastic_role_repository_permission:upsert"
	ElasticRoleRepositoryPermissionDelete Event = "elastic_role_repository_permission:delete"

	ElasticRoleAliasPermissionCreate Event = "elastic_role_repository_alias_permission:create"
	ElasticRoleAliasPermissionUpdate Event = "elastic_role_repository_alias_permission:update"
	ElasticRoleAliasPermissionUpsert Event = "elastic_role_repository_alias_permission:upsert"
	ElasticRoleAliasPermissionDelete Event = "elastic_role_repository_alias_permission:delete"

	UserCreate      Event = "user:create"
	UserUpdate      Event = "user:update"
	UserUpsert      Event = "user:upsert"
	UserDelete      Event = "user:delete"
	UserCreateAdmin Event = "user:create-admin"

	MembershipCreate Event = "membership:create"
	MembershipUpdate Event = "membership:update"
	MembershipUpsert Event = "membership:upsert"
	MembershipDelete Event = "membership:delete"

	RepositoryPermissionCreate Event = "repository_permission:create"
	RepositoryPermissionUpdate Event = "repository_permission:update"
	RepositoryPermissionUpsert Event = "repository_permission:upsert"
	RepositoryPermissionDelete Event = "repository_permission:delete"

	AliasPermissionCreate Event = "repository_alias_permission:create"
	AliasPermissionUpdate Event = "repository_alias_permission:update"
	AliasPermissionUpsert Event = "repository_alias_permission:upsert"
	AliasPermissionDelete Event = "repository_alias_permission:delete"

	SpaceCreate Event = "space:create"
	SpaceUpdate Event = "space:update"
	SpaceUpsert Event = "space:upsert"
	SpaceDelete Event = "space:delete"

	SpacePermissionCreate Event = "space_permission:create"
	SpacePermissionUpdate Event = "space_permission:update"
	SpacePermissionUpsert Event = "space_permission:upsert"
	SpacePermissionDelete Event = "space_permission:delete"

	InstitutionCreate Event = "institution:create"
	InstitutionUpdate Event = "institution:update"
	InstitutionUpsert Event = "institution:upsert"
	InstitutionDelete Event = "institution:delete"

	// API key events are part of the taxonomy but have no projection.
	APIKeyCreate Event = "api-key:create"
	APIKeyUpdate Event = "api-key:update"
	APIKeyUpsert Event = "api-key:upsert"
	APIKeyDelete Event = "api-key:delete"
)
