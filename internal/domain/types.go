package domain

// Access is the level granted by a permission edge.
type Access string

const (
	AccessReadonly Access = "readonly"
	AccessAll      Access = "all"
)

// AccessFor maps the readonly flag carried by permission edges to an Access.
func AccessFor(readonly bool) Access {
	if readonly {
		return AccessReadonly
	}
	return AccessAll
}

// Institution owns repositories, spaces and a reporting namespace.
type Institution struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Acronym   string `json:"acronym,omitempty" yaml:"acronym,omitempty"`
	LogoID    string `json:"logoId,omitempty" yaml:"logoId,omitempty"`
	Validated bool   `json:"validated" yaml:"validated"`

	// ElasticRoles are custom roles granted to every member of the institution.
	ElasticRoles []string `json:"elasticRoles,omitempty" yaml:"elasticRoles,omitempty"`
}

// Repository is a family of indices identified by a wildcard pattern.
type Repository struct {
	Pattern        string         `json:"pattern" yaml:"pattern"`
	Type           string         `json:"type" yaml:"type"`
	InstitutionIDs []string       `json:"institutionIds,omitempty" yaml:"institutionIds,omitempty"`
	Mapping        map[string]any `json:"mapping,omitempty" yaml:"mapping,omitempty"`
	Settings       map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// BelongsTo reports whether the repository is attached to the institution.
func (r Repository) BelongsTo(institutionID string) bool {
	for _, id := range r.InstitutionIDs {
		if id == institutionID {
			return true
		}
	}
	return false
}

// AliasFilter restricts the documents visible through an alias.
type AliasFilter struct {
	Field  string   `json:"field" yaml:"field"`
	Values []string `json:"values" yaml:"values"`
	IsNot  bool     `json:"isNot,omitempty" yaml:"isNot,omitempty"`
}

// RepositoryAlias is a filtered view over a repository.
type RepositoryAlias struct {
	Pattern string        `json:"pattern" yaml:"pattern"`
	Target  string        `json:"target" yaml:"target"`
	Filters []AliasFilter `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// RepositoryPermission grants access to a repository.
type RepositoryPermission struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Readonly bool   `json:"readonly" yaml:"readonly"`
}

// AliasPermission grants read access to an alias.
type AliasPermission struct {
	Pattern string `json:"pattern" yaml:"pattern"`
}

// SpacePermission grants access to a dashboard space.
type SpacePermission struct {
	SpaceID  string `json:"spaceId" yaml:"spaceId"`
	Readonly bool   `json:"readonly" yaml:"readonly"`
}

// ElasticRole is a custom role managed by administrators.
type ElasticRole struct {
	Name                  string                 `json:"name" yaml:"name"`
	RepositoryPermissions []RepositoryPermission `json:"repositoryPermissions,omitempty" yaml:"repositoryPermissions,omitempty"`
	AliasPermissions      []AliasPermission      `json:"aliasPermissions,omitempty" yaml:"aliasPermissions,omitempty"`
}

// User is a platform account.
type User struct {
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email" yaml:"email"`
	FullName string `json:"fullName" yaml:"fullName"`
	IsAdmin  bool   `json:"isAdmin,omitempty" yaml:"isAdmin,omitempty"`

	// Roles are custom elastic roles granted directly to the user.
	Roles []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// Membership links a user to an institution and carries every permission the
// user holds through it.
type Membership struct {
	Username      string `json:"username" yaml:"username"`
	InstitutionID string `json:"institutionId" yaml:"institutionId"`

	// Permissions are institution-level features, e.g. "reporting:read".
	Permissions []string `json:"permissions,omitempty" yaml:"permissions,omitempty"`

	RepositoryPermissions []RepositoryPermission `json:"repositoryPermissions,omitempty" yaml:"repositoryPermissions,omitempty"`
	SpacePermissions      []SpacePermission      `json:"spacePermissions,omitempty" yaml:"spacePermissions,omitempty"`
	AliasPermissions      []AliasPermission      `json:"aliasPermissions,omitempty" yaml:"aliasPermissions,omitempty"`
}

// HasPermission reports whether the membership carries the feature permission.
func (m Membership) HasPermission(permission string) bool {
	for _, p := range m.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Space is a dashboard workspace owned by an institution.
type Space struct {
	ID            string `json:"id" yaml:"id"`
	Type          string `json:"type" yaml:"type"`
	InstitutionID string `json:"institutionId" yaml:"institutionId"`
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	Color         string `json:"color,omitempty" yaml:"color,omitempty"`
	Initials      string `json:"initials,omitempty" yaml:"initials,omitempty"`
}

// Reporting feature permissions carried by memberships.
const (
	PermissionReportingRead  = "reporting:read"
	PermissionReportingWrite = "reporting:write"
)
