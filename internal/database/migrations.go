package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the database schema.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			last_name TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS subscriptions (
			user_id BIGINT PRIMARY KEY REFERENCES users(id),
			plan TEXT NOT NULL DEFAULT '',
			free_used INTEGER NOT NULL DEFAULT 0,
			extra_remaining INTEGER NOT NULL DEFAULT 0,
			plan_remaining INTEGER NOT NULL DEFAULT 0,
			next_reset_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS payments (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			gateway_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			plan_code TEXT NOT NULL DEFAULT '',
			amount DECIMAL(12, 2) NOT NULL,
			status TEXT NOT NULL DEFAULT 'new',
			confirmation_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_payments_user_id ON payments(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_gateway_id
			ON payments(gateway_id) WHERE gateway_id <> ''`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
