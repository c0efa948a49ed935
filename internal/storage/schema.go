package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// OpenOptions configures the database connection.
type OpenOptions struct {
	Driver          string // sqlite or postgres
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open opens the database, verifies connectivity and applies the schema.
func Open(ctx context.Context, opts OpenOptions) (*sql.DB, error) {
	driverName := opts.Driver
	if driverName == "sqlite" {
		driverName = "sqlite3"
	} else if driverName == "postgres" {
		driverName = "postgres"
	} else {
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}

	db, err := sql.Open(driverName, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return db, nil
}

// schemaStatements holds the idempotent DDL applied on startup. TEXT columns
// hold JSON stage checkpoints so both sqlite and postgres work unchanged.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS prospects (
		id TEXT PRIMARY KEY,
		source_url TEXT NOT NULL,
		source_sha256 TEXT NOT NULL,
		status TEXT NOT NULL,
		extracted_text TEXT NOT NULL DEFAULT '',
		page_count INTEGER NOT NULL DEFAULT 0,
		metadata TEXT,
		extracted_blocks TEXT,
		extracted_tables TEXT,
		extracted_images TEXT,
		classified_images TEXT,
		image_manifest TEXT,
		generated_title TEXT NOT NULL DEFAULT '',
		generated_description TEXT NOT NULL DEFAULT '',
		generated_sections TEXT,
		confidence REAL NOT NULL DEFAULT 0,
		project_id TEXT,
		project_slug TEXT,
		minisite_id TEXT,
		minisite_slug TEXT,
		last_error TEXT,
		retry_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prospects_sha256 ON prospects(source_sha256)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		name_localized TEXT NOT NULL DEFAULT '',
		developer TEXT NOT NULL DEFAULT '',
		prospect_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		seo_title TEXT NOT NULL DEFAULT '',
		seo_description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_slug ON projects(slug)`,
	`CREATE TABLE IF NOT EXISTS minisites (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		project_id TEXT NOT NULL,
		prospect_id TEXT NOT NULL,
		template TEXT NOT NULL DEFAULT 'classic',
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_minisites_slug ON minisites(slug)`,
	`CREATE INDEX IF NOT EXISTS idx_minisites_prospect ON minisites(prospect_id)`,
}

func applySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}
