package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlBufferCache = `
CREATE TABLE IF NOT EXISTS buffer_cache (
    key        TEXT         PRIMARY KEY,
    buffer     BYTEA        NOT NULL,
    stored_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_buffer_cache_stored_at
    ON buffer_cache (stored_at);
`

const ddlConversationPasswords = `
CREATE TABLE IF NOT EXISTS conversation_passwords (
    conversation_id  TEXT         PRIMARY KEY,
    password         TEXT         NOT NULL,
    updated_at       TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// Migrate creates the tables used by [Store]. It is idempotent and runs on
// every [NewStore].
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlBufferCache, ddlConversationPasswords} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
