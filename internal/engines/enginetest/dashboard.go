package enginetest

import (
	"context"
	"fmt"

	"projector/internal/engines/dashboard"
)

// Dashboard is an in-memory dashboard.Engine.
type Dashboard struct {
	recorder

	workspaces map[string]dashboard.Workspace
	roles      map[string]dashboard.Role
	patterns   map[string][]dashboard.IndexPattern
	defaults   map[string]string
	nextID     int
}

var _ dashboard.Engine = (*Dashboard)(nil)

// NewDashboard returns an empty fake.
func NewDashboard() *Dashboard {
	return &Dashboard{
		workspaces: make(map[string]dashboard.Workspace),
		roles:      make(map[string]dashboard.Role),
		patterns:   make(map[string][]dashboard.IndexPattern),
		defaults:   make(map[string]string),
	}
}

func (d *Dashboard) CreateOrUpdateWorkspace(_ context.Context, ws dashboard.Workspace) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("CreateOrUpdateWorkspace", ws.ID); err != nil {
		return err
	}
	d.workspaces[ws.ID] = ws
	return nil
}

func (d *Dashboard) DeleteWorkspace(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("DeleteWorkspace", id); err != nil {
		return err
	}
	delete(d.workspaces, id)
	delete(d.patterns, id)
	delete(d.defaults, id)
	return nil
}

func (d *Dashboard) PutRole(_ context.Context, name string, role dashboard.Role) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("PutRole", name); err != nil {
		return err
	}
	d.roles[name] = role
	return nil
}

func (d *Dashboard) DeleteRole(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("DeleteRole", name); err != nil {
		return err
	}
	delete(d.roles, name)
	return nil
}

func (d *Dashboard) ListIndexPatterns(_ context.Context, workspaceID string) ([]dashboard.IndexPattern, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("ListIndexPatterns", workspaceID); err != nil {
		return nil, err
	}
	return append([]dashboard.IndexPattern(nil), d.patterns[workspaceID]...), nil
}

func (d *Dashboard) CreateIndexPattern(_ context.Context, workspaceID, title, timeField string) (dashboard.IndexPattern, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("CreateIndexPattern", workspaceID+"/"+title); err != nil {
		return dashboard.IndexPattern{}, err
	}
	d.nextID++
	ip := dashboard.IndexPattern{ID: fmt.Sprintf("ip-%d", d.nextID), Title: title, TimeFieldName: timeField}
	d.patterns[workspaceID] = append(d.patterns[workspaceID], ip)
	return ip, nil
}

func (d *Dashboard) GetDefaultIndexPattern(_ context.Context, workspaceID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("GetDefaultIndexPattern", workspaceID); err != nil {
		return "", err
	}
	return d.defaults[workspaceID], nil
}

func (d *Dashboard) SetDefaultIndexPattern(_ context.Context, workspaceID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("SetDefaultIndexPattern", workspaceID); err != nil {
		return err
	}
	d.defaults[workspaceID] = id
	return nil
}

// AddIndexPattern seeds a pattern as if created outside projector.
func (d *Dashboard) AddIndexPattern(workspaceID, title string) dashboard.IndexPattern {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	ip := dashboard.IndexPattern{ID: fmt.Sprintf("ip-%d", d.nextID), Title: title}
	d.patterns[workspaceID] = append(d.patterns[workspaceID], ip)
	return ip
}

// Workspace returns a stored workspace.
func (d *Dashboard) Workspace(id string) (dashboard.Workspace, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ws, ok := d.workspaces[id]
	return ws, ok
}

// Role returns a stored role.
func (d *Dashboard) Role(name string) (dashboard.Role, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.roles[name]
	return r, ok
}

// RoleNames returns the stored role names, sorted.
func (d *Dashboard) RoleNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return sortedKeys(d.roles)
}

// IndexPatterns returns the patterns of a workspace.
func (d *Dashboard) IndexPatterns(workspaceID string) []dashboard.IndexPattern {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dashboard.IndexPattern(nil), d.patterns[workspaceID]...)
}

// DefaultIndexPattern returns the default pattern ID of a workspace.
func (d *Dashboard) DefaultIndexPattern(workspaceID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.defaults[workspaceID]
}
