// Package reporting defines the admin operations issued against the
// reporting service, and an implementation over its REST API.
package reporting

import "context"

// Access levels of a namespace membership.
type Access string

const (
	AccessRead      Access = "READ"
	AccessReadWrite Access = "READ_WRITE"
)

// Namespace mirrors an institution in the reporting service.
type Namespace struct {
	ID     string         `json:"-"`
	Name   string         `json:"name"`
	LogoID string         `json:"logoId,omitempty"`
	Attrs  map[string]any `json:"fetchOptions,omitempty"`
}

// User is a reporting account.
type User struct {
	Username string `json:"-"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Engine is the reporting service admin surface.
type Engine interface {
	UpsertNamespace(ctx context.Context, ns Namespace) error
	DeleteNamespace(ctx context.Context, id string) error
	UpsertUser(ctx context.Context, user User) error
	DeleteUser(ctx context.Context, username string) error
	UpsertMembership(ctx context.Context, namespaceID, username string, access Access) error
	DeleteMembership(ctx context.Context, namespaceID, username string) error
}
