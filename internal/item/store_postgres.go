package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reclaim/pkg/domain"
	"reclaim/pkg/platform/sentinel"
)

// PostgresStore persists items in PostgreSQL. Pure I/O; the engine owns all
// domain rules.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed item store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the items table if missing. Called by integration
// tests and local tooling; production schema is owned by migrations in the
// surrounding platform.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS items (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			category TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			fingerprint TEXT NOT NULL DEFAULT '',
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			match_pending BOOLEAN NOT NULL DEFAULT FALSE,
			last_matched_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_items_fingerprint ON items (fingerprint) WHERE fingerprint <> '';
		CREATE INDEX IF NOT EXISTS idx_items_match_pending ON items (match_pending) WHERE match_pending;
	`)
	if err != nil {
		return fmt.Errorf("ensure items schema: %w", err)
	}
	return nil
}

const itemColumns = `id, owner_id, category, title, description, fingerprint, lat, lng, status, version, match_pending, last_matched_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, it *Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		uuid.UUID(it.ID), uuid.UUID(it.OwnerID), it.Category, it.Title, it.Description,
		it.Fingerprint, it.Point.Lat, it.Point.Lng, it.Status.String(), it.Version,
		it.MatchPending, nullTime(it.LastMatchedAt), it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.ItemID) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, uuid.UUID(id))
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.ItemID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// UpdateStatus performs the optimistic CAS in a single statement so two
// concurrent transitions can never both observe the old version.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id domain.ItemID, status domain.Status, updatedAt time.Time, expectedVersion int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE items
		SET status = $1, updated_at = $2, version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING `+itemColumns+`
	`, status.String(), updatedAt, uuid.UUID(id), expectedVersion)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Distinguish a missing row from a version miss.
			var exists bool
			if qerr := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, uuid.UUID(id)).Scan(&exists); qerr != nil {
				return nil, fmt.Errorf("update item status: %w", qerr)
			}
			if !exists {
				return nil, sentinel.ErrNotFound
			}
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("update item status: %w", err)
	}
	return it, nil
}

func (s *PostgresStore) SetMatchPending(ctx context.Context, id domain.ItemID, pending bool) error {
	return s.setFlag(ctx, `UPDATE items SET match_pending = $1 WHERE id = $2`, pending, id, "set match pending")
}

func (s *PostgresStore) SetLastMatchedAt(ctx context.Context, id domain.ItemID, at time.Time) error {
	return s.setFlag(ctx, `UPDATE items SET last_matched_at = $1 WHERE id = $2`, at, id, "set last matched at")
}

func (s *PostgresStore) setFlag(ctx context.Context, query string, value any, id domain.ItemID, verb string) error {
	res, err := s.db.ExecContext(ctx, query, value, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("%s: %w", verb, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", verb, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByFingerprint(ctx context.Context, fp string) ([]*Item, error) {
	if fp == "" {
		return nil, nil
	}
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE fingerprint = $1`, fp)
}

func (s *PostgresStore) ListFingerprinted(ctx context.Context) ([]*Item, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE fingerprint <> ''`)
}

func (s *PostgresStore) ListMatchPending(ctx context.Context) ([]*Item, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE match_pending`)
}

func (s *PostgresStore) queryItems(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		it            Item
		id, ownerID   uuid.UUID
		status        string
		lastMatchedAt sql.NullTime
	)
	err := row.Scan(
		&id, &ownerID, &it.Category, &it.Title, &it.Description, &it.Fingerprint,
		&it.Point.Lat, &it.Point.Lng, &status, &it.Version, &it.MatchPending,
		&lastMatchedAt, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.ID = domain.ItemID(id)
	it.OwnerID = domain.UserID(ownerID)
	it.Status = domain.Status(status)
	if lastMatchedAt.Valid {
		it.LastMatchedAt = lastMatchedAt.Time
	}
	return &it, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
