package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/edutok-api/internal/domain"
	"github.com/edutok-api/internal/pathstore"
)

// InboxWindow is how many of the most recent records a user's inbox tracks.
const InboxWindow = 50

var inboxQuery = pathstore.Query{OrderBy: "timestamp", LimitToLast: InboxWindow}

// Inbox is the derived view of a user's notifications: soft-deleted records
// are hidden, the rest are newest first.
type Inbox struct {
	Notifications []domain.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// BuildInbox derives an Inbox from raw records. Records that do not decode
// are skipped.
func BuildInbox(snaps []pathstore.Snapshot) Inbox {
	in := Inbox{Notifications: make([]domain.Notification, 0, len(snaps))}
	for _, s := range snaps {
		n, err := decode(s)
		if err != nil {
			slog.Debug("skipping malformed notification", "id", s.Key, "err", err)
			continue
		}
		if n.State() == domain.NotificationSoftDeleted {
			continue
		}
		if !n.Read {
			in.Unread++
		}
		in.Notifications = append(in.Notifications, n)
	}
	sort.SliceStable(in.Notifications, func(i, j int) bool {
		a, b := in.Notifications[i], in.Notifications[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		return a.ID > b.ID
	})
	return in
}

// decode reads a record, taking the timestamp the way ordering and retention
// read it: any JSON number, truncated to whole milliseconds.
func decode(s pathstore.Snapshot) (domain.Notification, error) {
	var rec struct {
		domain.Notification
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := s.Decode(&rec); err != nil {
		return domain.Notification{}, err
	}
	n := rec.Notification
	n.ID = s.Key
	n.Timestamp, _ = pathstore.Timestamp(s.Value)
	return n, nil
}

type readerStore interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Children(ctx context.Context, path string) ([]pathstore.Snapshot, error)
	Update(ctx context.Context, updates map[string]any) error
}

// Reader exposes a user's inbox and the read/delete mutations on it.
type Reader struct {
	store   readerStore
	watcher pathstore.Watcher
}

func NewReader(store readerStore, watcher pathstore.Watcher) *Reader {
	return &Reader{store: store, watcher: watcher}
}

// Subscription owns the latest inbox snapshot of one live subscription.
type Subscription struct {
	mu      sync.RWMutex
	current Inbox
	cancel  pathstore.Cancel
}

func (s *Subscription) Current() Inbox {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Close stops delivery. Safe to call more than once.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Subscription) set(in Inbox) {
	s.mu.Lock()
	s.current = in
	s.mu.Unlock()
}

// Subscribe watches the last InboxWindow records of userID. onChange (may be
// nil) receives every re-derived inbox, starting with the current one before
// Subscribe returns.
func (r *Reader) Subscribe(ctx context.Context, userID string, onChange func(Inbox)) (*Subscription, error) {
	if !pathstore.ValidKey(userID) {
		return nil, fmt.Errorf("invalid user id: %w", domain.ErrBadRequest)
	}
	sub := &Subscription{current: Inbox{Notifications: []domain.Notification{}}}
	cancel, err := r.watcher.Watch(ctx, domain.NotificationsPath(userID), inboxQuery, func(snaps []pathstore.Snapshot) {
		in := BuildInbox(snaps)
		sub.set(in)
		if onChange != nil {
			onChange(in)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("watch notifications: %w", err)
	}
	sub.cancel = cancel
	return sub, nil
}

// Inbox reads the current inbox once. Store failures are logged and yield an
// empty inbox.
func (r *Reader) Inbox(ctx context.Context, userID string) Inbox {
	empty := Inbox{Notifications: []domain.Notification{}}
	if !pathstore.ValidKey(userID) {
		return empty
	}
	snaps, err := r.store.Children(ctx, domain.NotificationsPath(userID))
	if err != nil {
		slog.Warn("read notifications failed", "user_id", userID, "err", err)
		return empty
	}
	return BuildInbox(inboxQuery.Apply(snaps))
}

// MarkAsRead sets read=true on one record.
func (r *Reader) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	return r.patch(ctx, userID, notificationID, "read")
}

// SoftDelete hides a record from the inbox. The record stays in the store
// until retention purges it.
func (r *Reader) SoftDelete(ctx context.Context, userID, notificationID string) error {
	return r.patch(ctx, userID, notificationID, "deleted")
}

// MarkAllAsRead sets read=true on every unread, non-deleted record in one
// atomic update and returns how many changed. Nothing is written when there
// is nothing to mark.
func (r *Reader) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	if !pathstore.ValidKey(userID) {
		return 0, fmt.Errorf("invalid user id: %w", domain.ErrBadRequest)
	}
	snaps, err := r.store.Children(ctx, domain.NotificationsPath(userID))
	if err != nil {
		return 0, fmt.Errorf("read notifications: %w", err)
	}
	updates := map[string]any{}
	for _, s := range snaps {
		n, err := decode(s)
		if err != nil || n.Read || n.Deleted {
			continue
		}
		doc, err := withFlag(s.Value, "read")
		if err != nil {
			continue
		}
		updates[domain.NotificationPath(userID, s.Key)] = doc
	}
	if len(updates) == 0 {
		return 0, nil
	}
	if err := r.store.Update(ctx, updates); err != nil {
		return 0, fmt.Errorf("mark all as read: %w", err)
	}
	return len(updates), nil
}

// patch sets a boolean flag on an existing record, keeping its other fields
// as stored.
func (r *Reader) patch(ctx context.Context, userID, notificationID, flag string) error {
	if !pathstore.ValidKey(userID) || !pathstore.ValidKey(notificationID) {
		return fmt.Errorf("invalid notification reference: %w", domain.ErrBadRequest)
	}
	path := domain.NotificationPath(userID, notificationID)
	raw, err := r.store.Get(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
		}
		return fmt.Errorf("read notification: %w", err)
	}
	doc, err := withFlag(raw, flag)
	if err != nil {
		return fmt.Errorf("notification %s is malformed: %w", notificationID, domain.ErrConflict)
	}
	if err := r.store.Update(ctx, map[string]any{path: doc}); err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	return nil
}

func withFlag(raw json.RawMessage, flag string) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("not an object")
	}
	doc[flag] = json.RawMessage("true")
	return doc, nil
}
