package notification

import (
	"context"

	"github.com/edutok-api/internal/domain"
)

type Service interface {
	Inbox(ctx context.Context, userID string) Inbox
	Subscribe(ctx context.Context, userID string, onChange func(Inbox)) (*Subscription, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
	SoftDelete(ctx context.Context, userID, notificationID string) error
	CreateForUsers(ctx context.Context, userIDs []string, in domain.NotificationInput) ([]domain.Notification, error)
}

type service struct {
	*Writer
	*Reader
}

func NewService(w *Writer, r *Reader) Service {
	return &service{Writer: w, Reader: r}
}
