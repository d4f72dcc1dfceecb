package subscription

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

// PostgresStore persists subscriptions and hit tracking in PostgreSQL.
// Implements both Store and Tracker.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed subscription store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the subscription tables if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			query TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			created_from TIMESTAMPTZ,
			created_to TIMESTAMPTZ,
			center_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
			center_lng DOUBLE PRECISION NOT NULL DEFAULT 0,
			radius_meters DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_subscriptions_owner ON subscriptions (owner_id);
		CREATE TABLE IF NOT EXISTS subscription_hits (
			subscription_id UUID NOT NULL,
			item_id UUID NOT NULL,
			item_version BIGINT NOT NULL,
			PRIMARY KEY (subscription_id, item_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure subscription schema: %w", err)
	}
	return nil
}

const subColumns = `id, owner_id, query, category, created_from, created_to, center_lat, center_lng, radius_meters, created_at`

func (s *PostgresStore) Create(ctx context.Context, sub *Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (`+subColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.UUID(sub.ID), uuid.UUID(sub.OwnerID), sub.Query, sub.Category,
		nullableTime(sub.CreatedFrom), nullableTime(sub.CreatedTo),
		sub.Center.Lat, sub.Center.Lng, sub.RadiusMeters, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.SubscriptionID) (*Subscription, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+subColumns+` FROM subscriptions WHERE id = $1`, uuid.UUID(id))
	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.SubscriptionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID domain.UserID) ([]*Subscription, error) {
	return s.query(ctx, `SELECT `+subColumns+` FROM subscriptions WHERE owner_id = $1 ORDER BY created_at`, uuid.UUID(ownerID))
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*Subscription, error) {
	return s.query(ctx, `SELECT `+subColumns+` FROM subscriptions ORDER BY created_at`)
}

func (s *PostgresStore) LastHitVersion(ctx context.Context, subID domain.SubscriptionID, itemID domain.ItemID) (int64, bool, error) {
	var v int64
	err := s.db.QueryRowContext(ctx,
		`SELECT item_version FROM subscription_hits WHERE subscription_id = $1 AND item_id = $2`,
		uuid.UUID(subID), uuid.UUID(itemID),
	).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get hit version: %w", err)
	}
	return v, true, nil
}

func (s *PostgresStore) RecordHit(ctx context.Context, subID domain.SubscriptionID, itemID domain.ItemID, version int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscription_hits (subscription_id, item_id, item_version)
		VALUES ($1, $2, $3)
		ON CONFLICT (subscription_id, item_id) DO UPDATE SET
			item_version = GREATEST(subscription_hits.item_version, EXCLUDED.item_version)
	`, uuid.UUID(subID), uuid.UUID(itemID), version)
	if err != nil {
		return fmt.Errorf("record hit: %w", err)
	}
	return nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*Subscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	var (
		sub      Subscription
		id       uuid.UUID
		owner    uuid.UUID
		from, to sql.NullTime
	)
	err := row.Scan(&id, &owner, &sub.Query, &sub.Category, &from, &to,
		&sub.Center.Lat, &sub.Center.Lng, &sub.RadiusMeters, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	sub.ID = domain.SubscriptionID(id)
	sub.OwnerID = domain.UserID(owner)
	if from.Valid {
		sub.CreatedFrom = from.Time
	}
	if to.Valid {
		sub.CreatedTo = to.Time
	}
	return &sub, nil
}

func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
