package notification

import (
	"context"
	"fmt"

	"github.com/edutok-api/internal/domain"
	"github.com/edutok-api/internal/pathstore"
	"github.com/edutok-api/internal/pkg/validate"
	"github.com/jonboulle/clockwork"
)

type writerStore interface {
	Update(ctx context.Context, updates map[string]any) error
	NewKey() string
}

// DeliveryHook is called once per record after a successful write.
type DeliveryHook func(ctx context.Context, n domain.Notification)

// Writer creates notification records under notifications/{userId}.
type Writer struct {
	store writerStore
	clock clockwork.Clock
	hook  DeliveryHook
}

func NewWriter(store writerStore, clock clockwork.Clock) *Writer {
	return &Writer{store: store, clock: clock}
}

// OnCreated registers the hook that hands new records to delivery.
func (w *Writer) OnCreated(h DeliveryHook) {
	w.hook = h
}

// Create appends one unread notification for userID.
func (w *Writer) Create(ctx context.Context, userID string, in domain.NotificationInput) (*domain.Notification, error) {
	out, err := w.CreateForUsers(ctx, []string{userID}, in)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// CreateForUsers writes one record per distinct user in a single multi-path
// update: either every user gets the notification or none does. Keys are
// generated before the write so the whole fan-out is one store call.
func (w *Writer) CreateForUsers(ctx context.Context, userIDs []string, in domain.NotificationInput) ([]domain.Notification, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	users := distinct(userIDs)
	if len(users) == 0 {
		return nil, fmt.Errorf("no target users: %w", domain.ErrBadRequest)
	}
	for _, u := range users {
		if !pathstore.ValidKey(u) {
			return nil, fmt.Errorf("invalid user id %q: %w", u, domain.ErrBadRequest)
		}
	}

	now := w.clock.Now().UnixMilli()
	updates := make(map[string]any, len(users))
	created := make([]domain.Notification, 0, len(users))
	for _, u := range users {
		key := w.store.NewKey()
		n := domain.Notification{
			UserID:    u,
			Type:      in.Type,
			Title:     in.Title,
			Message:   in.Message,
			Read:      false,
			Timestamp: now,
			Data:      in.Data,
		}
		updates[domain.NotificationPath(u, key)] = n
		n.ID = key
		created = append(created, n)
	}
	if err := w.store.Update(ctx, updates); err != nil {
		return nil, fmt.Errorf("write notifications for %d users: %w", len(users), err)
	}

	if w.hook != nil {
		for _, n := range created {
			w.hook(ctx, n)
		}
	}
	return created, nil
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
