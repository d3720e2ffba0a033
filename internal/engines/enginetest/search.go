package enginetest

import (
	"context"
	"path"
	"slices"

	"projector/internal/engines/search"
)

// AliasState is an alias held by the fake search engine.
type AliasState struct {
	Target string
	Filter map[string]any
}

// Search is an in-memory search.Engine.
type Search struct {
	recorder

	roles     map[string]search.Role
	templates map[string]search.Template
	aliases   map[string]AliasState
	users     map[string]search.User
}

var _ search.Engine = (*Search)(nil)

// NewSearch returns an empty fake.
func NewSearch() *Search {
	return &Search{
		roles:     make(map[string]search.Role),
		templates: make(map[string]search.Template),
		aliases:   make(map[string]AliasState),
		users:     make(map[string]search.User),
	}
}

func (s *Search) UpsertRole(_ context.Context, name string, role search.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("UpsertRole", name); err != nil {
		return err
	}
	s.roles[name] = role
	return nil
}

func (s *Search) DeleteRole(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DeleteRole", name); err != nil {
		return err
	}
	delete(s.roles, name)
	return nil
}

func (s *Search) UpsertIndexTemplate(_ context.Context, tpl search.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("UpsertIndexTemplate", tpl.Name); err != nil {
		return err
	}
	s.templates[tpl.Name] = tpl
	return nil
}

// DeleteIndexTemplate accepts shell-style wildcards in namePattern.
func (s *Search) DeleteIndexTemplate(_ context.Context, namePattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DeleteIndexTemplate", namePattern); err != nil {
		return err
	}
	for name := range s.templates {
		if ok, _ := path.Match(namePattern, name); ok || name == namePattern {
			delete(s.templates, name)
		}
	}
	return nil
}

func (s *Search) UpsertAlias(_ context.Context, alias, target string, filter map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("UpsertAlias", alias); err != nil {
		return err
	}
	s.aliases[alias] = AliasState{Target: target, Filter: filter}
	return nil
}

func (s *Search) DeleteAlias(_ context.Context, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DeleteAlias", alias); err != nil {
		return err
	}
	delete(s.aliases, alias)
	return nil
}

func (s *Search) UpsertUser(_ context.Context, user search.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("UpsertUser", user.Username); err != nil {
		return err
	}
	user.Roles = slices.Clone(user.Roles)
	s.users[user.Username] = user
	return nil
}

func (s *Search) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DeleteUser", username); err != nil {
		return err
	}
	delete(s.users, username)
	return nil
}

// Role returns a stored role.
func (s *Search) Role(name string) (search.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[name]
	return r, ok
}

// RoleNames returns the stored role names, sorted.
func (s *Search) RoleNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.roles)
}

// Template returns a stored template.
func (s *Search) Template(name string) (search.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[name]
	return t, ok
}

// TemplateNames returns the stored template names, sorted.
func (s *Search) TemplateNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.templates)
}

// Alias returns a stored alias.
func (s *Search) Alias(name string) (AliasState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.aliases[name]
	return a, ok
}

// User returns a stored user.
func (s *Search) User(username string) (search.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	return u, ok
}

// UserNames returns the stored usernames, sorted.
func (s *Search) UserNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.users)
}
