// Package search defines the admin operations the reconcilers issue against
// the search engine, and an implementation over its REST API.
package search

import "context"

// IndexPrivileges grants privileges on the indices matching Names.
type IndexPrivileges struct {
	Names      []string `json:"names"`
	Privileges []string `json:"privileges"`
}

// Role is a search engine security role.
type Role struct {
	Cluster []string          `json:"cluster"`
	Indices []IndexPrivileges `json:"indices"`
}

// Alias is an alias definition embedded in an index template.
type Alias struct {
	Filter map[string]any `json:"filter,omitempty"`
}

// Template is a composable index template.
type Template struct {
	Name          string
	IndexPatterns []string
	Priority      int
	Mappings      map[string]any
	Settings      map[string]any
	Aliases       map[string]Alias
}

// User is a native realm user.
type User struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
}

// Engine is the search engine admin surface. Every operation is an upsert or
// an idempotent delete: deleting something absent is not an error.
type Engine interface {
	UpsertRole(ctx context.Context, name string, role Role) error
	DeleteRole(ctx context.Context, name string) error
	UpsertIndexTemplate(ctx context.Context, tpl Template) error
	DeleteIndexTemplate(ctx context.Context, namePattern string) error
	UpsertAlias(ctx context.Context, alias, target string, filter map[string]any) error
	DeleteAlias(ctx context.Context, alias string) error
	UpsertUser(ctx context.Context, user User) error
	DeleteUser(ctx context.Context, username string) error
}

// Privilege sets used by repository and alias roles.
var (
	ReadonlyPrivileges = []string{"read", "view_index_metadata", "read_cross_cluster"}
	AllPrivileges      = []string{"all"}
)
