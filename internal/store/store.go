// Package store is the SQLite record store of the reference host: templates,
// pages with their field values, and the key/value settings table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// schemaVersion is stored in SQLite's user_version pragma.
const schemaVersion = 1

// sqliteBusyTimeout is the time SQLite waits when the database is locked.
const sqliteBusyTimeout = 10000 // milliseconds

// Store is a SQLite-backed record store.
type Store struct {
	path string
	sql  *sql.DB
}

// Open opens or creates the database at path. A new database gets the
// current schema; an existing one must already carry it.
func Open(ctx context.Context, path string) (*Store, error) {
	if ctx == nil {
		return nil, errors.New("open store: context is nil")
	}

	if path == "" {
		return nil, errors.New("open store: path is empty")
	}

	path = filepath.Clean(path)

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return nil, fmt.Errorf("open store: create directory: %w", err)
	}

	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	version, err := userVersion(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("open store: %w", err)
	}

	switch version {
	case schemaVersion:
	case 0:
		err = createSchemaInTxn(ctx, db)
		if err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("open store: %w", err)
		}
	default:
		_ = db.Close()

		return nil, fmt.Errorf("open store: %w: %d (want %d)", ErrSchemaVersion, version, schemaVersion)
	}

	return &Store{path: path, sql: db}, nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Close releases the SQLite handle opened by Open.
func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}

	err := s.sql.Close()
	if err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}

	return nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	err = applyPragmas(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return db, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		PRAGMA busy_timeout = %d;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = FULL;
		PRAGMA cache_size = -20000;
		PRAGMA temp_store = MEMORY;
	`, sqliteBusyTimeout))
	if err != nil {
		return fmt.Errorf("apply pragmas: %w", err)
	}

	return nil
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	row := db.QueryRowContext(ctx, "PRAGMA user_version")

	var version int

	err := row.Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}

	return version, nil
}

func createSchemaInTxn(ctx context.Context, db *sql.DB) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		statements := []string{
			`CREATE TABLE templates (
				id INTEGER PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				label TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE template_fields (
				template_id INTEGER NOT NULL,
				position INTEGER NOT NULL,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				label TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (template_id, position)
			) WITHOUT ROWID`,
			`CREATE TABLE template_children (
				template_id INTEGER NOT NULL,
				position INTEGER NOT NULL,
				child TEXT NOT NULL,
				PRIMARY KEY (template_id, position)
			) WITHOUT ROWID`,
			`CREATE TABLE pages (
				id INTEGER PRIMARY KEY,
				parent_id INTEGER NOT NULL DEFAULT 0,
				template TEXT NOT NULL,
				name TEXT NOT NULL,
				title TEXT NOT NULL,
				path TEXT NOT NULL,
				status TEXT NOT NULL,
				sort INTEGER NOT NULL DEFAULT 0,
				created_at INTEGER NOT NULL,
				modified_at INTEGER NOT NULL,
				data TEXT NOT NULL DEFAULT '{}'
			)`,
			`CREATE TABLE settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
			) WITHOUT ROWID`,
			"CREATE INDEX idx_pages_parent ON pages(parent_id, sort, id)",
			"CREATE INDEX idx_pages_template ON pages(template)",
			"CREATE INDEX idx_fields_name ON template_fields(name)",
			fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
		}

		for i, stmt := range statements {
			_, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("schema statement %d: %w", i+1, err)
			}
		}

		return nil
	})
}

// withTx runs fn in a transaction, committing when fn returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin txn: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	err = fn(tx)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit txn: %w", err)
	}

	committed = true

	return nil
}
