// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"social-evaluation/internal/common/config"

	_ "github.com/lib/pq"
)

// Schema creates the decision tables when they are missing.
const Schema = `
CREATE TABLE IF NOT EXISTS social_evaluation_status (
	id                SERIAL PRIMARY KEY,
	emirates_id       TEXT NOT NULL,
	evaluation_result JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS evaluation_audit_log (
	id            UUID PRIMARY KEY,
	evaluation_id UUID NOT NULL,
	emirates_id   TEXT NOT NULL,
	track         TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);`

// PostgresClient owns the connection pool behind the record store.
type PostgresClient struct {
	DB *sql.DB
}

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

// Ping verifies the pool can reach the server.
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// EnsureSchema applies Schema.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
