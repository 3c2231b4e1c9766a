// Package postgres opens the database connection and bootstraps the schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS gtin_ranges (
		id BIGSERIAL PRIMARY KEY,
		contract_number TEXT NOT NULL,
		start_number TEXT NOT NULL,
		end_number TEXT NOT NULL,
		last_used TEXT,
		capacity BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_gtin_ranges_contract ON gtin_ranges (contract_number)`,

	`CREATE TABLE IF NOT EXISTS gtin_assignments (
		id UUID PRIMARY KEY,
		product_ref TEXT NOT NULL UNIQUE,
		gtin TEXT NOT NULL UNIQUE,
		contract_number TEXT NOT NULL,
		status TEXT NOT NULL,
		invocation_id TEXT,
		error_message TEXT,
		packaging_type TEXT NOT NULL DEFAULT '',
		net_content DOUBLE PRECISION,
		measurement_unit TEXT NOT NULL DEFAULT '',
		consumer_unit BOOLEAN NOT NULL DEFAULT FALSE,
		gpc_code TEXT,
		external_registration BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		registered_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_gtin_assignments_invocation ON gtin_assignments (invocation_id) WHERE invocation_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_gtin_assignments_status ON gtin_assignments (status)`,

	`CREATE TABLE IF NOT EXISTS reference_items (
		id BIGSERIAL PRIMARY KEY,
		category TEXT NOT NULL,
		label_nl TEXT NOT NULL,
		label_en TEXT NOT NULL,
		code TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reference_items_category ON reference_items (category)`,

	`CREATE TABLE IF NOT EXISTS category_mappings (
		id BIGSERIAL PRIMARY KEY,
		category_ref TEXT NOT NULL UNIQUE,
		gpc_code TEXT NOT NULL,
		gpc_title TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables this service owns. Idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
