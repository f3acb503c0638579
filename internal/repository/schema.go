package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		google_id      TEXT NOT NULL UNIQUE,
		email          TEXT NOT NULL DEFAULT '',
		name           TEXT NOT NULL DEFAULT '',
		x_id           TEXT NOT NULL DEFAULT '',
		x_access_token TEXT NOT NULL DEFAULT '',
		xp             INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_quests (
		user_id    TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		quest_id   TEXT NOT NULL,
		status     TEXT NOT NULL CHECK (status IN ('in_progress', 'completed')),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, quest_id)
	)`,
}

// Migrate creates the tables the store needs. It is idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}
