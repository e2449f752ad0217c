package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration steps run strictly in increasing order, one transaction per step,
// with user_version bumped inside the step's transaction so a step either
// lands completely or not at all. DDL uses IF NOT EXISTS throughout, so a
// half-recognized store (crash between DDL and version bump) re-runs its step
// harmlessly on the next open.
var migrations = []func(ctx context.Context, tx *sql.Tx) error{
	migrateV1,
	migrateV2,
}

// TargetSchemaVersion is the schema version this build writes.
var TargetSchemaVersion = len(migrations)

func migrate(ctx context.Context, sdb *sql.DB) error {
	var version int
	if err := sdb.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return err
	}
	if version > len(migrations) {
		return fmt.Errorf("store schema v%d is newer than this build (v%d)", version, len(migrations))
	}
	for v := version; v < len(migrations); v++ {
		tx, err := sdb.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := migrations[v](ctx, tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("schema v%d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, v+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("schema v%d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("schema v%d: %w", v+1, err)
		}
	}
	return nil
}

// migrateV1 creates the four collections with their baseline indexes.
// Timestamps are unix milliseconds so index range scans compare as integers.
func migrateV1(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS listings (
			id TEXT PRIMARY KEY,
			source_url TEXT NOT NULL,
			normalized_url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			fit_score REAL,
			explanations TEXT NOT NULL DEFAULT '[]',
			decision TEXT NOT NULL DEFAULT 'unset',
			annotation TEXT NOT NULL DEFAULT '',
			discovered_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_listings_normalized_url ON listings(normalized_url);`,
		`CREATE INDEX IF NOT EXISTS idx_listings_discovered ON listings(discovered_at);`,
		`CREATE INDEX IF NOT EXISTS idx_listings_fit_score ON listings(fit_score);`,
		`CREATE TABLE IF NOT EXISTS profile (
			key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS presets (
			id TEXT PRIMARY KEY,
			snapshot TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS embedding_cache (
			content_hash TEXT PRIMARY KEY,
			vector TEXT NOT NULL,
			model_version TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_embedding_cache_created ON embedding_cache(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// migrateV2 adds the decision, label, and last-update indexes to listings
// without touching existing rows. Labels live in a join table so one listing
// can appear under several label index entries.
func migrateV2(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS listing_labels (
			listing_id TEXT NOT NULL,
			label TEXT NOT NULL,
			PRIMARY KEY (listing_id, label),
			FOREIGN KEY (listing_id) REFERENCES listings(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_listing_labels_label ON listing_labels(label);`,
		`CREATE INDEX IF NOT EXISTS idx_listings_decision ON listings(decision);`,
		`CREATE INDEX IF NOT EXISTS idx_listings_updated ON listings(updated_at);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
