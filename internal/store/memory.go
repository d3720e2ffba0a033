package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"projector/internal/domain"
)

// Memory is a Reader and Writer over an in-memory snapshot. It is safe for
// concurrent use.
type Memory struct {
	mu sync.RWMutex

	institutions map[string]domain.Institution
	repositories map[string]domain.Repository
	aliases      map[string]domain.RepositoryAlias
	roles        map[string]domain.ElasticRole
	users        map[string]domain.User
	memberships  map[string]domain.Membership
	spaces       map[string]domain.Space
}

var _ ReadWriter = (*Memory)(nil)

// NewMemory creates a store holding s.
func NewMemory(s Snapshot) *Memory {
	m := &Memory{}
	m.Replace(s)
	return m
}

// Replace swaps the whole content of the store.
func (m *Memory) Replace(s Snapshot) {
	institutions := make(map[string]domain.Institution, len(s.Institutions))
	for _, v := range s.Institutions {
		institutions[v.Key()] = cloneInstitution(v)
	}
	repositories := make(map[string]domain.Repository, len(s.Repositories))
	for _, v := range s.Repositories {
		repositories[v.Key()] = cloneRepository(v)
	}
	aliases := make(map[string]domain.RepositoryAlias, len(s.Aliases))
	for _, v := range s.Aliases {
		aliases[v.Key()] = cloneAlias(v)
	}
	roles := make(map[string]domain.ElasticRole, len(s.ElasticRoles))
	for _, v := range s.ElasticRoles {
		roles[v.Key()] = cloneRole(v)
	}
	users := make(map[string]domain.User, len(s.Users))
	for _, v := range s.Users {
		users[v.Key()] = cloneUser(v)
	}
	memberships := make(map[string]domain.Membership, len(s.Memberships))
	for _, v := range s.Memberships {
		memberships[v.Key()] = cloneMembership(v)
	}
	spaces := make(map[string]domain.Space, len(s.Spaces))
	for _, v := range s.Spaces {
		spaces[v.Key()] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.institutions = institutions
	m.repositories = repositories
	m.aliases = aliases
	m.roles = roles
	m.users = users
	m.memberships = memberships
	m.spaces = spaces
}

// Snapshot returns a copy of the whole store, each kind sorted by key.
func (m *Memory) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Institutions: sortedValues(m.institutions, cloneInstitution),
		Repositories: sortedValues(m.repositories, cloneRepository),
		Aliases:      sortedValues(m.aliases, cloneAlias),
		ElasticRoles: sortedValues(m.roles, cloneRole),
		Users:        sortedValues(m.users, cloneUser),
		Memberships:  sortedValues(m.memberships, cloneMembership),
		Spaces:       sortedValues(m.spaces, func(s domain.Space) domain.Space { return s }),
	}
}

// Put upserts the entity carried by p.
func (m *Memory) Put(_ context.Context, p domain.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch v := p.(type) {
	case domain.Institution:
		m.institutions[v.Key()] = cloneInstitution(v)
	case domain.Repository:
		m.repositories[v.Key()] = cloneRepository(v)
	case domain.RepositoryAlias:
		m.aliases[v.Key()] = cloneAlias(v)
	case domain.ElasticRole:
		m.roles[v.Key()] = cloneRole(v)
	case domain.User:
		m.users[v.Key()] = cloneUser(v)
	case domain.Membership:
		m.memberships[v.Key()] = cloneMembership(v)
	case domain.Space:
		m.spaces[v.Key()] = v
	default:
		return fmt.Errorf("cannot store payload of kind %s", kindOf(p))
	}
	return nil
}

// Remove deletes the entity identified by p.
func (m *Memory) Remove(_ context.Context, p domain.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch v := p.(type) {
	case domain.Institution:
		delete(m.institutions, v.Key())
	case domain.Repository:
		delete(m.repositories, v.Key())
	case domain.RepositoryAlias:
		delete(m.aliases, v.Key())
	case domain.ElasticRole:
		delete(m.roles, v.Key())
	case domain.User:
		delete(m.users, v.Key())
		for k, ms := range m.memberships {
			if ms.Username == v.Username {
				delete(m.memberships, k)
			}
		}
	case domain.Membership:
		delete(m.memberships, v.Key())
	case domain.Space:
		delete(m.spaces, v.Key())
	default:
		return fmt.Errorf("cannot remove payload of kind %s", kindOf(p))
	}
	return nil
}

func (m *Memory) ListInstitutions(context.Context) ([]domain.Institution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.institutions, cloneInstitution), nil
}

func (m *Memory) GetInstitution(_ context.Context, id string) (domain.Institution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.institutions[id]
	if !ok {
		return domain.Institution{}, NotFound(domain.KindInstitution, id)
	}
	return cloneInstitution(v), nil
}

func (m *Memory) ListRepositories(context.Context) ([]domain.Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.repositories, cloneRepository), nil
}

func (m *Memory) GetRepository(_ context.Context, pattern string) (domain.Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.repositories[pattern]
	if !ok {
		return domain.Repository{}, NotFound(domain.KindRepository, pattern)
	}
	return cloneRepository(v), nil
}

func (m *Memory) RepositoriesOfInstitution(_ context.Context, institutionID string) ([]domain.Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Repository
	for _, key := range sortedKeys(m.repositories) {
		if r := m.repositories[key]; r.BelongsTo(institutionID) {
			out = append(out, cloneRepository(r))
		}
	}
	return out, nil
}

func (m *Memory) ListAliases(context.Context) ([]domain.RepositoryAlias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.aliases, cloneAlias), nil
}

func (m *Memory) GetAlias(_ context.Context, pattern string) (domain.RepositoryAlias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.aliases[pattern]
	if !ok {
		return domain.RepositoryAlias{}, NotFound(domain.KindAlias, pattern)
	}
	return cloneAlias(v), nil
}

func (m *Memory) AliasesOfRepository(_ context.Context, target string) ([]domain.RepositoryAlias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.RepositoryAlias
	for _, key := range sortedKeys(m.aliases) {
		if a := m.aliases[key]; a.Target == target {
			out = append(out, cloneAlias(a))
		}
	}
	return out, nil
}

func (m *Memory) ListElasticRoles(context.Context) ([]domain.ElasticRole, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.roles, cloneRole), nil
}

func (m *Memory) GetElasticRole(_ context.Context, name string) (domain.ElasticRole, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.roles[name]
	if !ok {
		return domain.ElasticRole{}, NotFound(domain.KindElasticRole, name)
	}
	return cloneRole(v), nil
}

func (m *Memory) ListUsers(context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.users, cloneUser), nil
}

func (m *Memory) GetUser(_ context.Context, username string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.users[username]
	if !ok {
		return domain.User{}, NotFound(domain.KindUser, username)
	}
	return cloneUser(v), nil
}

func (m *Memory) MembershipsOfUser(_ context.Context, username string) ([]domain.Membership, error) {
	return m.filterMemberships(func(ms domain.Membership) bool { return ms.Username == username }), nil
}

func (m *Memory) ListMemberships(context.Context) ([]domain.Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.memberships, cloneMembership), nil
}

func (m *Memory) UsersWithRepositoryPermission(_ context.Context, pattern string) ([]string, error) {
	return m.usernames(func(ms domain.Membership) bool {
		return slices.ContainsFunc(ms.RepositoryPermissions, func(p domain.RepositoryPermission) bool { return p.Pattern == pattern })
	}), nil
}

func (m *Memory) UsersWithAliasPermission(_ context.Context, pattern string) ([]string, error) {
	return m.usernames(func(ms domain.Membership) bool {
		return slices.ContainsFunc(ms.AliasPermissions, func(p domain.AliasPermission) bool { return p.Pattern == pattern })
	}), nil
}

func (m *Memory) UsersWithSpacePermission(_ context.Context, spaceID string) ([]string, error) {
	return m.usernames(func(ms domain.Membership) bool {
		return slices.ContainsFunc(ms.SpacePermissions, func(p domain.SpacePermission) bool { return p.SpaceID == spaceID })
	}), nil
}

func (m *Memory) UsersOfInstitution(_ context.Context, institutionID string) ([]string, error) {
	return m.usernames(func(ms domain.Membership) bool { return ms.InstitutionID == institutionID }), nil
}

// UsersWithElasticRole returns users holding role directly or through an
// institution they are a member of.
func (m *Memory) UsersWithElasticRole(_ context.Context, role string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := make(map[string]struct{})
	for _, u := range m.users {
		if slices.Contains(u.Roles, role) {
			set[u.Username] = struct{}{}
		}
	}
	for _, ms := range m.memberships {
		if inst, ok := m.institutions[ms.InstitutionID]; ok && slices.Contains(inst.ElasticRoles, role) {
			set[ms.Username] = struct{}{}
		}
	}
	return sortedKeys(set), nil
}

func (m *Memory) ListSpaces(context.Context) ([]domain.Space, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.spaces, func(s domain.Space) domain.Space { return s }), nil
}

func (m *Memory) GetSpace(_ context.Context, id string) (domain.Space, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.spaces[id]
	if !ok {
		return domain.Space{}, NotFound(domain.KindSpace, id)
	}
	return v, nil
}

func (m *Memory) SpacesOfInstitution(_ context.Context, institutionID string) ([]domain.Space, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Space
	for _, key := range sortedKeys(m.spaces) {
		if s := m.spaces[key]; s.InstitutionID == institutionID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) filterMemberships(keep func(domain.Membership) bool) []domain.Membership {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Membership
	for _, key := range sortedKeys(m.memberships) {
		if ms := m.memberships[key]; keep(ms) {
			out = append(out, cloneMembership(ms))
		}
	}
	return out
}

func (m *Memory) usernames(keep func(domain.Membership) bool) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := make(map[string]struct{})
	for _, ms := range m.memberships {
		if keep(ms) {
			set[ms.Username] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func kindOf(p domain.Payload) domain.Kind {
	if p == nil {
		return "nil"
	}
	return p.Kind()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedValues[V any](m map[string]V, clone func(V) V) []V {
	out := make([]V, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, clone(m[k]))
	}
	return out
}

func cloneInstitution(v domain.Institution) domain.Institution {
	v.ElasticRoles = slices.Clone(v.ElasticRoles)
	return v
}

func cloneRepository(v domain.Repository) domain.Repository {
	v.InstitutionIDs = slices.Clone(v.InstitutionIDs)
	v.Mapping = maps.Clone(v.Mapping)
	v.Settings = maps.Clone(v.Settings)
	return v
}

func cloneAlias(v domain.RepositoryAlias) domain.RepositoryAlias {
	filters := make([]domain.AliasFilter, len(v.Filters))
	for i, f := range v.Filters {
		f.Values = slices.Clone(f.Values)
		filters[i] = f
	}
	if v.Filters == nil {
		filters = nil
	}
	v.Filters = filters
	return v
}

func cloneRole(v domain.ElasticRole) domain.ElasticRole {
	v.RepositoryPermissions = slices.Clone(v.RepositoryPermissions)
	v.AliasPermissions = slices.Clone(v.AliasPermissions)
	return v
}

func cloneUser(v domain.User) domain.User {
	v.Roles = slices.Clone(v.Roles)
	return v
}

func cloneMembership(v domain.Membership) domain.Membership {
	v.Permissions = slices.Clone(v.Permissions)
	v.RepositoryPermissions = slices.Clone(v.RepositoryPermissions)
	v.SpacePermissions = slices.Clone(v.SpacePermissions)
	v.AliasPermissions = slices.Clone(v.AliasPermissions)
	return v
}
