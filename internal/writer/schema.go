package writer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a single statement.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS rate_history (
		snapshot_id UUID NOT NULL,
		merged_at   TIMESTAMPTZ NOT NULL,
		source      TEXT NOT NULL,
		src         TEXT NOT NULL,
		dst         TEXT NOT NULL,
		rate        DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (snapshot_id, src, dst)
	)`,
	`CREATE INDEX IF NOT EXISTS rate_history_pair_idx ON rate_history (src, dst, merged_at DESC)`,
}

// EnsureSchema creates the rate_history table and its index if missing.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
