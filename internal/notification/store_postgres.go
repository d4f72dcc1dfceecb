package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reclaim/pkg/domain"
	"reclaim/pkg/platform/sentinel"
)

// PostgresStore persists notifications in PostgreSQL. The partial unique
// index on (recipient_id, dedup_key) WHERE NOT read makes the dedup upsert a
// single atomic statement.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed notification store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the notifications table if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY,
			recipient_id UUID NOT NULL,
			kind TEXT NOT NULL,
			payload JSONB NOT NULL,
			dedup_key TEXT NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			delivered BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS ux_notifications_unread_dedup
			ON notifications (recipient_id, dedup_key) WHERE NOT read;
		CREATE INDEX IF NOT EXISTS idx_notifications_recipient_unread
			ON notifications (recipient_id) WHERE NOT read;
	`)
	if err != nil {
		return fmt.Errorf("ensure notifications schema: %w", err)
	}
	return nil
}

const notificationColumns = `id, recipient_id, kind, payload, dedup_key, read, delivered, created_at, updated_at`

func (s *PostgresStore) UpsertByDedupKey(ctx context.Context, n *Notification) (*Notification, bool, error) {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return nil, false, fmt.Errorf("marshal payload: %w", err)
	}
	// xmax = 0 only for freshly inserted rows; it distinguishes insert from
	// conflict-update without a second round trip.
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, $6, $6)
		ON CONFLICT (recipient_id, dedup_key) WHERE NOT read DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
		RETURNING `+notificationColumns+`, (xmax = 0) AS inserted
	`, uuid.UUID(n.ID), uuid.UUID(n.Recipient), string(n.Kind), payload, n.DedupKey, n.CreatedAt)

	stored, created, err := scanNotificationWithInserted(row)
	if err != nil {
		return nil, false, fmt.Errorf("upsert notification: %w", err)
	}
	return stored, created, nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.NotificationID) (*Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, uuid.UUID(id))
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, id domain.NotificationID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE, updated_at = $1 WHERE id = $2`, at, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return requireRow(res, "mark read")
}

func (s *PostgresStore) MarkDelivered(ctx context.Context, id domain.NotificationID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET delivered = TRUE WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return requireRow(res, "mark delivered")
}

func (s *PostgresStore) ListUnread(ctx context.Context, userID domain.UserID) ([]*Notification, error) {
	return s.query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE recipient_id = $1 AND NOT read
		ORDER BY updated_at DESC, id ASC
	`, uuid.UUID(userID))
}

func (s *PostgresStore) UnreadCount(ctx context.Context, userID domain.UserID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT read`,
		uuid.UUID(userID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListUndelivered(ctx context.Context, cutoff time.Time) ([]*Notification, error) {
	return s.query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE NOT read AND NOT delivered AND created_at > $1
		ORDER BY created_at ASC
	`, cutoff)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotificationInto(row rowScanner, extra ...any) (*Notification, error) {
	var (
		n         Notification
		id        uuid.UUID
		recipient uuid.UUID
		kind      string
		payload   []byte
	)
	dest := []any{&id, &recipient, &kind, &payload, &n.DedupKey, &n.Read, &n.Delivered, &n.CreatedAt, &n.UpdatedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	n.ID = domain.NotificationID(id)
	n.Recipient = domain.UserID(recipient)
	n.Kind = Kind(kind)
	if err := json.Unmarshal(payload, &n.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &n, nil
}

func scanNotification(row rowScanner) (*Notification, error) {
	return scanNotificationInto(row)
}

func scanNotificationWithInserted(row rowScanner) (*Notification, bool, error) {
	var inserted bool
	n, err := scanNotificationInto(row, &inserted)
	if err != nil {
		return nil, false, err
	}
	return n, inserted, nil
}

func requireRow(res sql.Result, verb string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", verb, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
