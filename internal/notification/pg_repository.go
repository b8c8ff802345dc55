package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carelink/clinic-booking/internal/db"
)

type PgRepository struct {
	pool db.Pool
}

func NewPgRepository(pool db.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const notificationColumns = `id, recipient_id, type, title, message, read, expires_at, read_at, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.Read,
		&n.ExpiresAt,
		&n.ReadAt,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *PgRepository) Insert(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, type, title, message, read, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		n.ID, n.RecipientID, n.Type, n.Title, n.Message, n.ExpiresAt, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *PgRepository) ListForRecipient(ctx context.Context, recipientID uuid.UUID, now time.Time, unreadOnly bool) ([]Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1 AND expires_at > $2`
	if unreadOnly {
		query += ` AND read = false`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, recipientID, now)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *PgRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) (*Notification, error) {
	query := `
		UPDATE notifications
		SET read = true, read_at = $3
		WHERE id = $1 AND recipient_id = $2 AND expires_at > $3
		RETURNING ` + notificationColumns

	return scanNotification(r.pool.QueryRow(ctx, query, id, recipientID, at))
}

func (r *PgRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
