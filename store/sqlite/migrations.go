package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Balancer store (SQLite).
var Migrations = migrate.NewGroup("balancer")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_balancer_sessions",
			Version: "20260901000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS balancer_sessions (
    id          INTEGER PRIMARY KEY,
    creator     TEXT NOT NULL,
    invited     TEXT NOT NULL DEFAULT '[]',
    joined      TEXT NOT NULL DEFAULT '[]',
    state       TEXT NOT NULL DEFAULT 'created',
    currency    TEXT NOT NULL DEFAULT '',
    balances    TEXT NOT NULL DEFAULT '[]',
    settlement  TEXT,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_balancer_sessions_state ON balancer_sessions (state);
CREATE INDEX IF NOT EXISTS idx_balancer_sessions_creator ON balancer_sessions (creator);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS balancer_sessions`)
				return err
			},
		},
	)
}
