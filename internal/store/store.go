// Package store defines the read-only view of the domain that reconcilers
// work from, plus the in-memory implementation backing tests and the file
// store.
package store

import (
	"context"
	"errors"
	"fmt"

	"projector/internal/domain"
)

// ErrNotFound is returned by Get* methods for unknown identifiers.
var ErrNotFound = errors.New("not found")

// NotFound wraps ErrNotFound with the kind and identifier looked up.
func NotFound(kind domain.Kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Reader is the snapshot query surface used by reconcilers. Implementations
// return copies; callers may modify results freely.
type Reader interface {
	ListInstitutions(ctx context.Context) ([]domain.Institution, error)
	GetInstitution(ctx context.Context, id string) (domain.Institution, error)

	ListRepositories(ctx context.Context) ([]domain.Repository, error)
	GetRepository(ctx context.Context, pattern string) (domain.Repository, error)
	RepositoriesOfInstitution(ctx context.Context, institutionID string) ([]domain.Repository, error)

	ListAliases(ctx context.Context) ([]domain.RepositoryAlias, error)
	GetAlias(ctx context.Context, pattern string) (domain.RepositoryAlias, error)
	AliasesOfRepository(ctx context.Context, target string) ([]domain.RepositoryAlias, error)

	ListElasticRoles(ctx context.Context) ([]domain.ElasticRole, error)
	GetElasticRole(ctx context.Context, name string) (domain.ElasticRole, error)

	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, username string) (domain.User, error)
	MembershipsOfUser(ctx context.Context, username string) ([]domain.Membership, error)
	ListMemberships(ctx context.Context) ([]domain.Membership, error)

	// Users reached through membership permission edges or custom roles.
	UsersWithRepositoryPermission(ctx context.Context, pattern string) ([]string, error)
	UsersWithAliasPermission(ctx context.Context, pattern string) ([]string, error)
	UsersWithSpacePermission(ctx context.Context, spaceID string) ([]string, error)
	UsersWithElasticRole(ctx context.Context, role string) ([]string, error)
	UsersOfInstitution(ctx context.Context, institutionID string) ([]string, error)

	ListSpaces(ctx context.Context) ([]domain.Space, error)
	GetSpace(ctx context.Context, id string) (domain.Space, error)
	SpacesOfInstitution(ctx context.Context, institutionID string) ([]domain.Space, error)
}

// Writer applies domain mutations. Put is an upsert keyed by the payload's
// identity; Remove of an absent entity is not an error.
type Writer interface {
	Put(ctx context.Context, p domain.Payload) error
	Remove(ctx context.Context, p domain.Payload) error
}

// ReadWriter is a store that can be both queried and mutated.
type ReadWriter interface {
	Reader
	Writer
}

// Snapshot is a complete copy of the domain.
type Snapshot struct {
	Institutions []domain.Institution     `yaml:"institutions,omitempty"`
	Repositories []domain.Repository      `yaml:"repositories,omitempty"`
	Aliases      []domain.RepositoryAlias `yaml:"aliases,omitempty"`
	ElasticRoles []domain.ElasticRole     `yaml:"roles,omitempty"`
	Users        []domain.User            `yaml:"users,omitempty"`
	Memberships  []domain.Membership      `yaml:"memberships,omitempty"`
	Spaces       []domain.Space           `yaml:"spaces,omitempty"`
}

// Payloads flattens the snapshot, parents before children.
func (s Snapshot) Payloads() []domain.Payload {
	var out []domain.Payload
	for _, v := range s.Institutions {
		out = append(out, v)
	}
	for _, v := range s.Repositories {
		out = append(out, v)
	}
	for _, v := range s.Aliases {
		out = append(out, v)
	}
	for _, v := range s.ElasticRoles {
		out = append(out, v)
	}
	for _, v := range s.Users {
		out = append(out, v)
	}
	for _, v := range s.Spaces {
		out = append(out, v)
	}
	for _, v := range s.Memberships {
		out = append(out, v)
	}
	return out
}

// Import writes every entity of the snapshot into w.
func Import(ctx context.Context, w Writer, s Snapshot) (int, error) {
	n := 0
	for _, p := range s.Payloads() {
		if err := w.Put(ctx, p); err != nil {
			return n, fmt.Errorf("import %s %q: %w", p.Kind(), p.Key(), err)
		}
		n++
	}
	return n, nil
}
