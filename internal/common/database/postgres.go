// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kurio/internal/common/config"

	_ "github.com/lib/pq"
)

// Schema creates the tables used by the entry and financials stores.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS raw_entries (
		id          UUID PRIMARY KEY,
		job_title   TEXT NOT NULL,
		typical_day TEXT NOT NULL,
		category    TEXT NOT NULL DEFAULT 'General',
		image_url   TEXT NOT NULL DEFAULT '',
		source      TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS job_entries (
		id          UUID PRIMARY KEY,
		job_title   TEXT NOT NULL,
		typical_day TEXT NOT NULL,
		category    TEXT NOT NULL DEFAULT 'General',
		image_url   TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS job_entries_created_at_idx ON job_entries (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS company_financials (
		ticker      TEXT PRIMARY KEY,
		cik         TEXT NOT NULL,
		payload     JSONB NOT NULL,
		filing_date TEXT NOT NULL DEFAULT '',
		report_date TEXT NOT NULL DEFAULT '',
		fetched_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// NewPostgresFromDB wraps an existing handle, e.g. a sqlmock connection.
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// EnsureSchema applies Schema inside one transaction.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	return c.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range Schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}

// WithTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (c *PostgresClient) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Query executes a query that returns rows
func (c *PostgresClient) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row
func (c *PostgresClient) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.DB.QueryRowContext(ctx, query, args...)
}

// Exec executes a query that doesn't return rows
func (c *PostgresClient) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.DB.ExecContext(ctx, query, args...)
}
