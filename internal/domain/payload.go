package domain

// Kind identifies the entity carried by a hook payload.
type Kind string

const (
	KindInstitution Kind = "institution"
	KindRepository  Kind = "repository"
	KindAlias       Kind = "repository_alias"
	KindElasticRole Kind = "elastic_role"
	KindUser        Kind = "user"
	KindMembership  Kind = "membership"
	KindSpace       Kind = "space"
	KindAPIKey      Kind = "api-key"
	KindRelation    Kind = "relation"
)

// Payload is the tagged variant delivered to hook handlers. Every entity type
// implements it; handlers type-switch on the concrete value.
type Payload interface {
	// Kind returns the entity kind of the payload.
	Kind() Kind
	// Key identifies the entity within its kind. It is the default key used
	// to debounce and serialize handler invocations.
	Key() string
}

// Relation is the payload of permission-edge events: Parent owns the edge,
// Child is the edge itself (RepositoryPermission, SpacePermission, ...).
type Relation struct {
	Parent Payload
	Child  any
}

// APIKey is published by the platform when API keys change. The core has no
// projection for it; the type exists so publishers get a typed payload.
type APIKey struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Username      string `json:"username,omitempty" yaml:"username,omitempty"`
	InstitutionID string `json:"institutionId,omitempty" yaml:"institutionId,omitempty"`
}

func (i Institution) Kind() Kind      { return KindInstitution }
func (i Institution) Key() string     { return i.ID }
func (r Repository) Kind() Kind       { return KindRepository }
func (r Repository) Key() string      { return r.Pattern }
func (a RepositoryAlias) Kind() Kind  { return KindAlias }
func (a RepositoryAlias) Key() string { return a.Pattern }
func (r ElasticRole) Kind() Kind      { return KindElasticRole }
func (r ElasticRole) Key() string     { return r.Name }
func (u User) Kind() Kind             { return KindUser }
func (u User) Key() string            { return u.Username }
func (m Membership) Kind() Kind       { return KindMembership }

// Key combines user and institution, the membership's composite identity.
func (m Membership) Key() string { return m.Username + "/" + m.InstitutionID }

func (s Space) Kind() Kind    { return KindSpace }
func (s Space) Key() string   { return s.ID }
func (k APIKey) Kind() Kind   { return KindAPIKey }
func (k APIKey) Key() string  { return k.ID }
func (r Relation) Kind() Kind { return KindRelation }

// Key is the parent's key, so that edge events collapse with parent events.
func (r Relation) Key() string {
	if r.Parent == nil {
		return ""
	}
	return r.Parent.Key()
}
