package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresHistory persists pair history in PostgreSQL so detection
// idempotence survives restarts.
type PostgresHistory struct {
	db *sql.DB
}

// NewPostgresHistory constructs a PostgreSQL-backed pair history.
func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

// EnsureSchema creates the match_history table if missing.
func (h *PostgresHistory) EnsureSchema(ctx context.Context) error {
	_, err := h.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS match_history (
			pair_key TEXT PRIMARY KEY,
			recorded_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure match history schema: %w", err)
	}
	return nil
}

func (h *PostgresHistory) LastRecorded(ctx context.Context, pairKey string) (time.Time, bool, error) {
	var at time.Time
	err := h.db.QueryRowContext(ctx,
		`SELECT recorded_at FROM match_history WHERE pair_key = $1`, pairKey,
	).Scan(&at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("get match history: %w", err)
	}
	return at, true, nil
}

func (h *PostgresHistory) Record(ctx context.Context, pairKey string, at time.Time) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO match_history (pair_key, recorded_at)
		VALUES ($1, $2)
		ON CONFLICT (pair_key) DO UPDATE SET recorded_at = EXCLUDED.recorded_at
	`, pairKey, at)
	if err != nil {
		return fmt.Errorf("record match history: %w", err)
	}
	return nil
}
