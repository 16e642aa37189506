// Package db provides PostgreSQL access for the live review row store.
package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/resume-live/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// InitSchema applies the embedded schema and seeds default settings rows.
// It is safe to run on every start.
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, strings.TrimSpace(schemaSQL)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	for key, value := range types.DefaultSettings() {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode default %s settings: %w", key, err)
		}
		_, err = db.pool.Exec(ctx,
			`INSERT INTO settings (key, value) VALUES ($1, $2)
			 ON CONFLICT (key) DO NOTHING`,
			key, data,
		)
		if err != nil {
			return fmt.Errorf("failed to seed %s settings: %w", key, err)
		}
	}
	return nil
}
