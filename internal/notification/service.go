package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/clinic-booking/pkg/logging"
)

var (
	ErrInvalidType  = errors.New("invalid notification type")
	ErrEmptyMessage = errors.New("notification message is required")
)

type Service struct {
	repo Repository
	ttl  time.Duration
	log  *logging.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewService(repo Repository, ttl time.Duration, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Default()
	}
	return &Service{
		repo: repo,
		ttl:  ttl,
		log:  log,
		now:  time.Now,
	}
}

// Notify creates a notification for the recipient with the configured TTL.
func (s *Service) Notify(ctx context.Context, recipientID uuid.UUID, typ, title, message string) (*Notification, error) {
	if typ == "" {
		typ = TypeGeneral
	}
	if !ValidType(typ) {
		return nil, ErrInvalidType
	}
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	now := s.now()
	n := &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        typ,
		Title:       title,
		Message:     message,
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// List returns the recipient's live notifications, newest first.
func (s *Service) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]Notification, error) {
	return s.repo.ListForRecipient(ctx, recipientID, s.now(), unreadOnly)
}

// MarkRead marks the notification read. Recipients can only touch their own
// rows; anything else reads as not found.
func (s *Service) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (*Notification, error) {
	return s.repo.MarkRead(ctx, id, recipientID, s.now())
}

// PurgeExpired removes rows past their expiry. Called by the worker.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("purged expired notifications", "count", n)
	}
	return n, nil
}
