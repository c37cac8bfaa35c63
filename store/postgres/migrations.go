package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Balancer store (PostgreSQL).
var Migrations = migrate.NewGroup("balancer")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_balancer_sessions",
			Version: "20260901000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS balancer_sessions (
    id          BIGINT PRIMARY KEY,
    creator     TEXT NOT NULL,
    invited     JSONB NOT NULL DEFAULT '[]',
    joined      JSONB NOT NULL DEFAULT '[]',
    state       TEXT NOT NULL DEFAULT 'created',
    currency    TEXT NOT NULL DEFAULT '',
    balances    JSONB NOT NULL DEFAULT '[]',
    settlement  JSONB,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_balancer_sessions_state ON balancer_sessions (state);
CREATE INDEX IF NOT EXISTS idx_balancer_sessions_creator ON balancer_sessions (creator);
CREATE INDEX IF NOT EXISTS idx_balancer_sessions_invited ON balancer_sessions USING GIN (invited);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS balancer_sessions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "add_balancer_settlement_lookup",
			Version: "20260901000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE UNIQUE INDEX IF NOT EXISTS idx_balancer_sessions_settlement_id
    ON balancer_sessions ((settlement->>'id'))
    WHERE settlement IS NOT NULL;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP INDEX IF EXISTS idx_balancer_sessions_settlement_id`)
				return err
			},
		},
	)
}
