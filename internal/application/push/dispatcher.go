package push

import (
	"context"
	"log/slog"

	"github.com/edutok-api/internal/domain"
)

// NotificationLink is where a click on a push notification lands.
const NotificationLink = "/notifications"

// Message is one push notification handed to a Notifier.
type Message struct {
	Title string
	Body  string
	Tag   string
	Link  string
	Data  map[string]string
}

// Notifier sends a Message to a device token.
type Notifier interface {
	Notify(ctx context.Context, token string, msg Message) error
}

// Toaster shows an in-app toast to a connected user.
type Toaster interface {
	Toast(userID string, t domain.Toast)
}

type tokenSource interface {
	Current(ctx context.Context, userID string) (*domain.PushToken, error)
}

// Dispatcher fans a freshly written notification out to the live session and
// the user's push token.
type Dispatcher struct {
	tokens   tokenSource
	toaster  Toaster
	notifier Notifier
}

// NewDispatcher accepts nil toaster or notifier; that leg is then skipped.
func NewDispatcher(tokens tokenSource, toaster Toaster, notifier Notifier) *Dispatcher {
	return &Dispatcher{tokens: tokens, toaster: toaster, notifier: notifier}
}

// Tag collapses repeated deliveries of one notification in the OS tray.
func Tag(notificationID string) string {
	return "notification-" + notificationID
}

// Deliver never fails the caller: delivery problems are logged.
func (d *Dispatcher) Deliver(ctx context.Context, n domain.Notification) {
	if d.toaster != nil {
		d.toaster.Toast(n.UserID, domain.Toast{
			NotificationID: n.ID,
			Type:           n.Type,
			Title:          n.Title,
			Body:           n.Message,
		})
	}
	if d.notifier == nil || d.tokens == nil {
		return
	}
	tok, err := d.tokens.Current(ctx, n.UserID)
	if err != nil || tok == nil || tok.Token == "" {
		return
	}
	msg := Message{
		Title: n.Title,
		Body:  n.Message,
		Tag:   Tag(n.ID),
		Link:  NotificationLink,
		Data:  messageData(n),
	}
	if err := d.notifier.Notify(ctx, tok.Token, msg); err != nil {
		slog.Warn("push delivery failed", "user_id", n.UserID, "notification_id", n.ID, "err", err)
	}
}

func messageData(n domain.Notification) map[string]string {
	data := map[string]string{
		"notificationId": n.ID,
		"type":           string(n.Type),
	}
	if n.Data == nil {
		return data
	}
	for k, v := range map[string]string{
		"chatId":   n.Data.ChatID,
		"postId":   n.Data.PostID,
		"senderId": n.Data.SenderID,
	} {
		if v != "" {
			data[k] = v
		}
	}
	return data
}
