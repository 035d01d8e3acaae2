package db

import (
	"context"
	"database/sql"
	"fmt"
)

// articlesTableSQL defines the archive. search_vector is a generated column so every
// write path keeps the full-text index current without application code.
const articlesTableSQL = `
CREATE TABLE IF NOT EXISTS articles (
    id                  BIGSERIAL PRIMARY KEY,
    url                 TEXT NOT NULL UNIQUE,
    source_slug         TEXT NOT NULL,
    source_name         TEXT NOT NULL DEFAULT '',
    category            TEXT NOT NULL DEFAULT '',
    headline            TEXT NOT NULL DEFAULT '',
    byline              TEXT NOT NULL DEFAULT '',
    description         TEXT NOT NULL DEFAULT '',
    body                TEXT NOT NULL DEFAULT '',
    published_at        TIMESTAMPTZ,
    discovered_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    preview_image_url   TEXT NOT NULL DEFAULT '',
    preview_image_local TEXT NOT NULL DEFAULT '',
    image_urls          JSONB NOT NULL DEFAULT '[]'::jsonb,
    tags                JSONB NOT NULL DEFAULT '[]'::jsonb,
    search_vector       TSVECTOR GENERATED ALWAYS AS (
        setweight(to_tsvector('english', headline), 'A') ||
        setweight(to_tsvector('english', byline || ' ' || description), 'B') ||
        setweight(jsonb_to_tsvector('english', tags, '["string"]'), 'B') ||
        setweight(to_tsvector('english', regexp_replace(body, '<[^>]*>', ' ', 'g')), 'C')
    ) STORED
)`

const checkpointsTableSQL = `
CREATE TABLE IF NOT EXISTS source_checkpoints (
    source_slug     TEXT PRIMARY KEY,
    last_checked_at TIMESTAMPTZ NOT NULL,
    articles_found  INTEGER NOT NULL DEFAULT 0
)`

type step struct {
	name string
	sql  string
}

// schema is applied in order. Every statement is idempotent, so both
// processes run it on start.
var schema = []step{
	{"articles", articlesTableSQL},
	{"source_checkpoints", checkpointsTableSQL},
	// full-text search
	{"idx_articles_search_vector", `CREATE INDEX IF NOT EXISTS idx_articles_search_vector ON articles USING gin(search_vector)`},
	// listings ORDER BY COALESCE(published_at, discovered_at) DESC
	{"idx_articles_effective_date", `CREATE INDEX IF NOT EXISTS idx_articles_effective_date ON articles ((COALESCE(published_at, discovered_at)) DESC)`},
	{"idx_articles_source_slug", `CREATE INDEX IF NOT EXISTS idx_articles_source_slug ON articles(source_slug)`},
	{"idx_articles_category", `CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category)`},
}

// MigrateUp creates the archive schema inside one transaction, so a failed
// step leaves the database untouched.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("MigrateUp: %w", err)
	}
	for _, st := range schema {
		if _, err := tx.ExecContext(ctx, st.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("MigrateUp: %s: %w", st.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("MigrateUp: commit: %w", err)
	}
	return nil
}

// MigrateDown drops the archive. Every archived article is lost.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"source_checkpoints", "articles"} {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("MigrateDown: %s: %w", table, err)
		}
	}
	return nil
}
