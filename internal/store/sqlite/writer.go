package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"projector/internal/domain"
)

// Put upserts the entity carried by p.
func (s *Store) Put(ctx context.Context, p domain.Payload) error {
	switch v := p.(type) {
	case domain.Institution:
		return s.UpsertInstitution(ctx, v)
	case domain.Repository:
		return s.UpsertRepository(ctx, v)
	case domain.RepositoryAlias:
		return s.UpsertAlias(ctx, v)
	case domain.ElasticRole:
		return s.UpsertElasticRole(ctx, v)
	case domain.User:
		return s.UpsertUser(ctx, v)
	case domain.Membership:
		return s.UpsertMembership(ctx, v)
	case domain.Space:
		return s.UpsertSpace(ctx, v)
	default:
		return fmt.Errorf("cannot store payload of type %T", p)
	}
}

// Remove deletes the entity identified by p. Dependent edges go with it.
func (s *Store) Remove(ctx context.Context, p domain.Payload) error {
	var (
		query string
		args  []any
	)
	switch v := p.(type) {
	case domain.Institution:
		query, args = `DELETE FROM institutions WHERE id = ?`, []any{v.ID}
	case domain.Repository:
		query, args = `DELETE FROM repositories WHERE pattern = ?`, []any{v.Pattern}
	case domain.RepositoryAlias:
		query, args = `DELETE FROM aliases WHERE pattern = ?`, []any{v.Pattern}
	case domain.ElasticRole:
		query, args = `DELETE FROM elastic_roles WHERE name = ?`, []any{v.Name}
	case domain.User:
		query, args = `DELETE FROM users WHERE username = ?`, []any{v.Username}
	case domain.Membership:
		query, args = `DELETE FROM memberships WHERE username = ? AND institution_id = ?`, []any{v.Username, v.InstitutionID}
	case domain.Space:
		query, args = `DELETE FROM spaces WHERE id = ?`, []any{v.ID}
	default:
		return fmt.Errorf("cannot remove payload of type %T", p)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s %q: %w", p.Kind(), p.Key(), err)
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return string(data), nil
}

func (s *Store) UpsertInstitution(ctx context.Context, v domain.Institution) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO institutions(id, name, data, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, data=excluded.data, updated_at=excluded.updated_at
`, v.ID, v.Name, data, ts(time.Now())); err != nil {
			return fmt.Errorf("upsert institution %s: %w", v.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM institution_elastic_roles WHERE institution_id = ?`, v.ID); err != nil {
			return fmt.Errorf("clear roles of institution %s: %w", v.ID, err)
		}
		for _, role := range v.ElasticRoles {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO institution_elastic_roles(institution_id, role) VALUES (?, ?)`, v.ID, role); err != nil {
				return fmt.Errorf("insert role %s of institution %s: %w", role, v.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertRepository(ctx context.Context, v domain.Repository) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO repositories(pattern, type, data, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(pattern) DO UPDATE SET type=excluded.type, data=excluded.data, updated_at=excluded.updated_at
`, v.Pattern, v.Type, data, ts(time.Now())); err != nil {
			return fmt.Errorf("upsert repository %s: %w", v.Pattern, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM repository_institutions WHERE pattern = ?`, v.Pattern); err != nil {
			return fmt.Errorf("clear institutions of repository %s: %w", v.Pattern, err)
		}
		for _, id := range v.InstitutionIDs {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO repository_institutions(pattern, institution_id) VALUES (?, ?)`, v.Pattern, id); err != nil {
				return fmt.Errorf("link repository %s to %s: %w", v.Pattern, id, err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertAlias(ctx context.Context, v domain.RepositoryAlias) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO aliases(pattern, target, data, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(pattern) DO UPDATE SET target=excluded.target, data=excluded.data, updated_at=excluded.updated_at
`, v.Pattern, v.Target, data, ts(time.Now())); err != nil {
		return fmt.Errorf("upsert alias %s: %w", v.Pattern, err)
	}
	return nil
}

func (s *Store) UpsertElasticRole(ctx context.Context, v domain.ElasticRole) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO elastic_roles(name, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at
`, v.Name, data, ts(time.Now())); err != nil {
		return fmt.Errorf("upsert elastic role %s: %w", v.Name, err)
	}
	return nil
}

func (s *Store) UpsertUser(ctx context.Context, v domain.User) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO users(username, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(username) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at
`, v.Username, data, ts(time.Now())); err != nil {
			return fmt.Errorf("upsert user %s: %w", v.Username, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE username = ?`, v.Username); err != nil {
			return fmt.Errorf("clear roles of user %s: %w", v.Username, err)
		}
		for _, role := range v.Roles {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO user_roles(username, role) VALUES (?, ?)`, v.Username, role); err != nil {
				return fmt.Errorf("insert role %s of user %s: %w", role, v.Username, err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertMembership(ctx context.Context, v domain.Membership) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO memberships(username, institution_id, data, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(username, institution_id) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at
`, v.Username, v.InstitutionID, data, ts(time.Now())); err != nil {
			return fmt.Errorf("upsert membership %s: %w", v.Key(), err)
		}

		for _, table := range []string{"membership_repository_permissions", "membership_alias_permissions", "membership_space_permissions"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE username = ? AND institution_id = ?`, v.Username, v.InstitutionID); err != nil {
				return fmt.Errorf("clear %s of %s: %w", table, v.Key(), err)
			}
		}
		for _, p := range v.RepositoryPermissions {
			if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO membership_repository_permissions(username, institution_id, pattern, readonly) VALUES (?, ?, ?, ?)`,
				v.Username, v.InstitutionID, p.Pattern, boolInt(p.Readonly)); err != nil {
				return fmt.Errorf("insert repository permission %s of %s: %w", p.Pattern, v.Key(), err)
			}
		}
		for _, p := range v.AliasPermissions {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO membership_alias_permissions(username, institution_id, pattern) VALUES (?, ?, ?)`,
				v.Username, v.InstitutionID, p.Pattern); err != nil {
				return fmt.Errorf("insert alias permission %s of %s: %w", p.Pattern, v.Key(), err)
			}
		}
		for _, p := range v.SpacePermissions {
			if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO membership_space_permissions(username, institution_id, space_id, readonly) VALUES (?, ?, ?, ?)`,
				v.Username, v.InstitutionID, p.SpaceID, boolInt(p.Readonly)); err != nil {
				return fmt.Errorf("insert space permission %s of %s: %w", p.SpaceID, v.Key(), err)
			}
		}
		return nil
	})
}

func (s *Store) UpsertSpace(ctx context.Context, v domain.Space) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO spaces(id, type, institution_id, data, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET type=excluded.type, institution_id=excluded.institution_id, data=excluded.data, updated_at=excluded.updated_at
`, v.ID, v.Type, v.InstitutionID, data, ts(time.Now())); err != nil {
		return fmt.Errorf("upsert space %s: %w", v.ID, err)
	}
	return nil
}
