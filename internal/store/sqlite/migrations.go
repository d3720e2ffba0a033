package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Migration is one forward/backward schema step.
type Migration struct {
	Version int
	UpSQL   string
	DownSQL string
}

// Entities are stored as JSON in a data column; the side tables hold the
// edges that relation queries filter on.
var migrations = []Migration{
	{
		Version: 1,
		UpSQL: `
CREATE TABLE IF NOT EXISTS institutions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS institution_elastic_roles (
	institution_id TEXT NOT NULL,
	role TEXT NOT NULL,
	PRIMARY KEY(institution_id, role),
	FOREIGN KEY(institution_id) REFERENCES institutions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS repositories (
	pattern TEXT PRIMARY KEY,
	type TEXT NOT NULL DEFAULT '',
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS repository_institutions (
	pattern TEXT NOT NULL,
	institution_id TEXT NOT NULL,
	PRIMARY KEY(pattern, institution_id),
	FOREIGN KEY(pattern) REFERENCES repositories(pattern) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS aliases (
	pattern TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS aliases_target ON aliases(target);

CREATE TABLE IF NOT EXISTS elastic_roles (
	name TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_roles (
	username TEXT NOT NULL,
	role TEXT NOT NULL,
	PRIMARY KEY(username, role),
	FOREIGN KEY(username) REFERENCES users(username) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS memberships (
	username TEXT NOT NULL,
	institution_id TEXT NOT NULL,
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY(username, institution_id),
	FOREIGN KEY(username) REFERENCES users(username) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS memberships_institution ON memberships(institution_id);

CREATE TABLE IF NOT EXISTS membership_repository_permissions (
	username TEXT NOT NULL,
	institution_id TEXT NOT NULL,
	pattern TEXT NOT NULL,
	readonly INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY(username, institution_id, pattern),
	FOREIGN KEY(username, institution_id) REFERENCES memberships(username, institution_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS membership_repository_permissions_pattern ON membership_repository_permissions(pattern);

CREATE TABLE IF NOT EXISTS membership_alias_permissions (
	username TEXT NOT NULL,
	institution_id TEXT NOT NULL,
	pattern TEXT NOT NULL,
	PRIMARY KEY(username, institution_id, pattern),
	FOREIGN KEY(username, institution_id) REFERENCES memberships(username, institution_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS membership_space_permissions (
	username TEXT NOT NULL,
	institution_id TEXT NOT NULL,
	space_id TEXT NOT NULL,
	readonly INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY(username, institution_id, space_id),
	FOREIGN KEY(username, institution_id) REFERENCES memberships(username, institution_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS spaces (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL DEFAULT '',
	institution_id TEXT NOT NULL DEFAULT '',
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS spaces_institution ON spaces(institution_id);
`,
		DownSQL: `
DROP TABLE IF EXISTS spaces;
DROP TABLE IF EXISTS membership_space_permissions;
DROP TABLE IF EXISTS membership_alias_permissions;
DROP TABLE IF EXISTS membership_repository_permissions;
DROP TABLE IF EXISTS memberships;
DROP TABLE IF EXISTS user_roles;
DROP TABLE IF EXISTS users;
DROP TABLE IF EXISTS elastic_roles;
DROP TABLE IF EXISTS aliases;
DROP TABLE IF EXISTS repository_institutions;
DROP TABLE IF EXISTS repositories;
DROP TABLE IF EXISTS institution_elastic_roles;
DROP TABLE IF EXISTS institutions;
DELETE FROM schema_migrations WHERE version = 1;
`,
	},
}

// ApplyMigrations brings the schema to the latest version.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations(version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, m.Version).Scan(&exists)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("apply migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES (?, datetime('now'))`, m.Version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// RollbackAll reverts every migration, newest first.
func RollbackAll(ctx context.Context, db *sql.DB) error {
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin rollback tx %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("rollback migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit rollback %d: %w", m.Version, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a fresh database.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}
