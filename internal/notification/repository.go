package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Repository interface {
	Insert(ctx context.Context, n *Notification) error

	// ListForRecipient returns the recipient's unexpired notifications,
	// newest first. Expiry is evaluated against now at read time; rows past
	// their expiry are never returned even before the purge sweep removes
	// them.
	ListForRecipient(ctx context.Context, recipientID uuid.UUID, now time.Time, unreadOnly bool) ([]Notification, error)

	// MarkRead flips the notification to read for its recipient only.
	MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) (*Notification, error)

	// PurgeExpired deletes rows whose expiry has passed and returns the
	// number removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
