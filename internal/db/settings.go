package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/resume-live/internal/types"
)

// GetSettings returns the settings row for key, or nil when it does not exist.
func (db *DB) GetSettings(ctx context.Context, key string) (*types.SettingsRecord, error) {
	var rec types.SettingsRecord
	err := db.pool.QueryRow(ctx,
		`SELECT key, value, version, updated_at FROM settings WHERE key = $1`, key,
	).Scan(&rec.Key, &rec.Value, &rec.Version, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s settings: %w", key, err)
	}
	return &rec, nil
}

// ListSettings returns every settings row ordered by key.
func (db *DB) ListSettings(ctx context.Context) ([]types.SettingsRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT key, value, version, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var records []types.SettingsRecord
	for rows.Next() {
		var rec types.SettingsRecord
		if err := rows.Scan(&rec.Key, &rec.Value, &rec.Version, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settings: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return records, nil
}

// PutSettings replaces the whole value of a settings row. With a nil
// expectedVersion the write is last-write-wins; otherwise a mismatched
// version fails with *VersionConflictError.
func (db *DB) PutSettings(ctx context.Context, key string, value json.RawMessage, expectedVersion *int64) (*types.SettingsRecord, error) {
	var rec types.SettingsRecord
	err := db.pool.QueryRow(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE
		 SET value = EXCLUDED.value, version = settings.version + 1, updated_at = NOW()
		 WHERE $3::BIGINT IS NULL OR settings.version = $3
		 RETURNING key, value, version, updated_at`,
		key, []byte(value), expectedVersion,
	).Scan(&rec.Key, &rec.Value, &rec.Version, &rec.UpdatedAt)
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) || expectedVersion == nil {
		return nil, fmt.Errorf("failed to put %s settings: %w", key, err)
	}

	current, getErr := db.GetSettings(ctx, key)
	if getErr != nil {
		return nil, getErr
	}
	actual := int64(0)
	if current != nil {
		actual = current.Version
	}
	return nil, &VersionConflictError{Key: key, Expected: *expectedVersion, Actual: actual}
}
