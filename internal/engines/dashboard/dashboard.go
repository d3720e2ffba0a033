// Package dashboard defines the admin operations issued against the
// dashboarding engine, and an implementation over its REST API.
package dashboard

import "context"

// Workspace is an isolated dashboard space.
type Workspace struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Initials    string `json:"initials,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// SpacePrivileges grants base privileges ("read" or "all") in Spaces.
type SpacePrivileges struct {
	Base   []string `json:"base"`
	Spaces []string `json:"spaces"`
}

// Role is a dashboard-scoped role.
type Role struct {
	Spaces []SpacePrivileges
}

// IndexPattern is a data view declared in a workspace.
type IndexPattern struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	TimeFieldName string `json:"timeFieldName,omitempty"`
}

// Engine is the dashboard engine admin surface.
type Engine interface {
	CreateOrUpdateWorkspace(ctx context.Context, ws Workspace) error
	DeleteWorkspace(ctx context.Context, id string) error
	PutRole(ctx context.Context, name string, role Role) error
	DeleteRole(ctx context.Context, name string) error
	ListIndexPatterns(ctx context.Context, workspaceID string) ([]IndexPattern, error)
	CreateIndexPattern(ctx context.Context, workspaceID, title, timeField string) (IndexPattern, error)
	GetDefaultIndexPattern(ctx context.Context, workspaceID string) (string, error)
	SetDefaultIndexPattern(ctx context.Context, workspaceID, id string) error
}

// Base privileges.
const (
	PrivilegeRead = "read"
	PrivilegeAll  = "all"
)
