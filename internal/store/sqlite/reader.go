package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"projector/internal/domain"
	"projector/internal/store"
)

func queryJSON[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func getJSON[T any](ctx context.Context, db *sql.DB, kind domain.Kind, id, query string) (T, error) {
	var (
		v    T
		data string
	)
	err := db.QueryRowContext(ctx, query, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return v, store.NotFound(kind, id)
	}
	if err != nil {
		return v, fmt.Errorf("get %s %q: %w", kind, id, err)
	}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return v, fmt.Errorf("decode %s %q: %w", kind, id, err)
	}
	return v, nil
}

func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (s *Store) ListInstitutions(ctx context.Context) ([]domain.Institution, error) {
	return queryJSON[domain.Institution](ctx, s.db, `SELECT data FROM institutions ORDER BY id`)
}

func (s *Store) GetInstitution(ctx context.Context, id string) (domain.Institution, error) {
	return getJSON[domain.Institution](ctx, s.db, domain.KindInstitution, id, `SELECT data FROM institutions WHERE id = ?`)
}

func (s *Store) ListRepositories(ctx context.Context) ([]domain.Repository, error) {
	return queryJSON[domain.Repository](ctx, s.db, `SELECT data FROM repositories ORDER BY pattern`)
}

func (s *Store) GetRepository(ctx context.Context, pattern string) (domain.Repository, error) {
	return getJSON[domain.Repository](ctx, s.db, domain.KindRepository, pattern, `SELECT data FROM repositories WHERE pattern = ?`)
}

func (s *Store) RepositoriesOfInstitution(ctx context.Context, institutionID string) ([]domain.Repository, error) {
	return queryJSON[domain.Repository](ctx, s.db, `
SELECT r.data FROM repositories r
JOIN repository_institutions ri ON ri.pattern = r.pattern
WHERE ri.institution_id = ?
ORDER BY r.pattern`, institutionID)
}

func (s *Store) ListAliases(ctx context.Context) ([]domain.RepositoryAlias, error) {
	return queryJSON[domain.RepositoryAlias](ctx, s.db, `SELECT data FROM aliases ORDER BY pattern`)
}

func (s *Store) GetAlias(ctx context.Context, pattern string) (domain.RepositoryAlias, error) {
	return getJSON[domain.RepositoryAlias](ctx, s.db, domain.KindAlias, pattern, `SELECT data FROM aliases WHERE pattern = ?`)
}

func (s *Store) AliasesOfRepository(ctx context.Context, target string) ([]domain.RepositoryAlias, error) {
	return queryJSON[domain.RepositoryAlias](ctx, s.db, `SELECT data FROM aliases WHERE target = ? ORDER BY pattern`, target)
}

func (s *Store) ListElasticRoles(ctx context.Context) ([]domain.ElasticRole, error) {
	return queryJSON[domain.ElasticRole](ctx, s.db, `SELECT data FROM elastic_roles ORDER BY name`)
}

func (s *Store) GetElasticRole(ctx context.Context, name string) (domain.ElasticRole, error) {
	return getJSON[domain.ElasticRole](ctx, s.db, domain.KindElasticRole, name, `SELECT data FROM elastic_roles WHERE name = ?`)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	return queryJSON[domain.User](ctx, s.db, `SELECT data FROM users ORDER BY username`)
}

func (s *Store) GetUser(ctx context.Context, username string) (domain.User, error) {
	return getJSON[domain.User](ctx, s.db, domain.KindUser, username, `SELECT data FROM users WHERE username = ?`)
}

func (s *Store) MembershipsOfUser(ctx context.Context, username string) ([]domain.Membership, error) {
	return queryJSON[domain.Membership](ctx, s.db, `SELECT data FROM memberships WHERE username = ? ORDER BY institution_id`, username)
}

func (s *Store) ListMemberships(ctx context.Context) ([]domain.Membership, error) {
	return queryJSON[domain.Membership](ctx, s.db, `SELECT data FROM memberships ORDER BY username, institution_id`)
}

func (s *Store) UsersWithRepositoryPermission(ctx context.Context, pattern string) ([]string, error) {
	return queryStrings(ctx, s.db, `SELECT DISTINCT username FROM membership_repository_permissions WHERE pattern = ? ORDER BY username`, pattern)
}

func (s *Store) UsersWithAliasPermission(ctx context.Context, pattern string) ([]string, error) {
	return queryStrings(ctx, s.db, `SELECT DISTINCT username FROM membership_alias_permissions WHERE pattern = ? ORDER BY username`, pattern)
}

func (s *Store) UsersWithSpacePermission(ctx context.Context, spaceID string) ([]string, error) {
	return queryStrings(ctx, s.db, `SELECT DISTINCT username FROM membership_space_permissions WHERE space_id = ? ORDER BY username`, spaceID)
}

func (s *Store) UsersWithElasticRole(ctx context.Context, role string) ([]string, error) {
	return queryStrings(ctx, s.db, `
SELECT username FROM user_roles WHERE role = ?
UNION
SELECT m.username FROM memberships m
JOIN institution_elastic_roles ier ON ier.institution_id = m.institution_id
WHERE ier.role = ?
ORDER BY 1`, role, role)
}

func (s *Store) UsersOfInstitution(ctx context.Context, institutionID string) ([]string, error) {
	return queryStrings(ctx, s.db, `SELECT DISTINCT username FROM memberships WHERE institution_id = ? ORDER BY username`, institutionID)
}

func (s *Store) ListSpaces(ctx context.Context) ([]domain.Space, error) {
	return queryJSON[domain.Space](ctx, s.db, `SELECT data FROM spaces ORDER BY id`)
}

func (s *Store) GetSpace(ctx context.Context, id string) (domain.Space, error) {
	return getJSON[domain.Space](ctx, s.db, domain.KindSpace, id, `SELECT data FROM spaces WHERE id = ?`)
}

func (s *Store) SpacesOfInstitution(ctx context.Context, institutionID string) ([]domain.Space, error) {
	return queryJSON[domain.Space](ctx, s.db, `SELECT data FROM spaces WHERE institution_id = ? ORDER BY id`, institutionID)
}
