package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/calvinalkan/pagelister/internal/settings"
)

var _ settings.Source = (*Store)(nil)

// LoadSettings returns key/value settings. Optional keys limit the selection
// to specific entries.
func (s *Store) LoadSettings(ctx context.Context, keys ...string) (map[string]string, error) {
	query := "SELECT key, value FROM settings"

	args := make([]any, 0, len(keys))

	if len(keys) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
		query += " WHERE key IN (" + placeholders + ")"

		for _, key := range keys {
			args = append(args, key)
		}
	}

	rows, err := s.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	defer func() { _ = rows.Close() }()

	result := make(map[string]string)

	for rows.Next() {
		var key, value string

		scanErr := rows.Scan(&key, &value)
		if scanErr != nil {
			return nil, fmt.Errorf("load settings: scan: %w", scanErr)
		}

		result[key] = value
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("load settings: rows: %w", err)
	}

	return result, nil
}

// SaveSettings upserts the provided key/value pairs.
func (s *Store) SaveSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	return withTx(ctx, s.sql, func(tx *sql.Tx) error {
		return upsertSettings(ctx, tx, values)
	})
}

// ReplaceSettings removes every stored setting and writes values.
func (s *Store) ReplaceSettings(ctx context.Context, values map[string]string) error {
	return withTx(ctx, s.sql, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM settings")
		if err != nil {
			return fmt.Errorf("replace settings: %w", err)
		}

		return upsertSettings(ctx, tx, values)
	})
}

// Settings loads and decodes the stored settings.
func (s *Store) Settings(ctx context.Context) (settings.Settings, []string, error) {
	return settings.Load(ctx, s)
}

func upsertSettings(ctx context.Context, tx *sql.Tx, values map[string]string) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("prepare save settings: %w", err)
	}

	defer func() { _ = stmt.Close() }()

	for key, value := range values {
		_, err = stmt.ExecContext(ctx, key, value)
		if err != nil {
			return fmt.Errorf("save setting %q: %w", key, err)
		}
	}

	return nil
}
