package retention

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edutok-api/internal/domain"
	"github.com/edutok-api/internal/pathstore"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultWindow is how long chat, feed and notification records are kept.
const DefaultWindow = 29 * 24 * time.Hour

type cleanerStore interface {
	Keys(ctx context.Context, path string) ([]string, error)
	Children(ctx context.Context, path string) ([]pathstore.Snapshot, error)
	Update(ctx context.Context, updates map[string]any) error
}

// Reporter archives the stats of a finished pass.
type Reporter interface {
	Save(ctx context.Context, stats domain.CleanupStats) error
}

// Cleaner deletes records older than the retention window.
type Cleaner struct {
	store    cleanerStore
	clock    clockwork.Clock
	window   time.Duration
	reporter Reporter
}

func NewCleaner(store cleanerStore, clock clockwork.Clock, window time.Duration) *Cleaner {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Cleaner{store: store, clock: clock, window: window}
}

// WithReporter archives every pass through r.
func (c *Cleaner) WithReporter(r Reporter) *Cleaner {
	c.reporter = r
	return c
}

// sweep is one family of collections swept by a pass.
type sweep struct {
	name        string
	root        string
	collections func(keys []string) []string // nil: root is the collection
	count       func(*domain.CleanupStats) *int
}

var sweeps = []sweep{
	{
		name: "class messages",
		root: domain.ClassChatsRoot,
		collections: func(keys []string) []string {
			return mapKeys(keys, domain.ClassMessagesPath)
		},
		count: func(s *domain.CleanupStats) *int { return &s.MessagesDeleted },
	},
	{
		name: "direct messages",
		root: domain.DirectMessagesRoot,
		collections: func(keys []string) []string {
			return mapKeys(keys, domain.DirectMessagesPath)
		},
		count: func(s *domain.CleanupStats) *int { return &s.DirectMessagesDeleted },
	},
	{
		name:  "feed posts",
		root:  domain.FeedPostsRoot,
		count: func(s *domain.CleanupStats) *int { return &s.PostsDeleted },
	},
	{
		name: "notifications",
		root: domain.NotificationsRoot,
		collections: func(keys []string) []string {
			return mapKeys(keys, domain.NotificationsPath)
		},
		count: func(s *domain.CleanupStats) *int { return &s.NotificationsDeleted },
	},
}

// Run executes one full pass. It is not cancelled by ctx once started. A
// failed sweep counts 0 and is reported in Error; the others still run.
func (c *Cleaner) Run(ctx context.Context) domain.CleanupStats {
	ctx = context.WithoutCancel(ctx)
	now := c.clock.Now()
	threshold := now.Add(-c.window).UnixMilli()
	stats := domain.CleanupStats{RunID: uuid.New().String(), Timestamp: now.UnixMilli()}
	log := slog.With("run_id", stats.RunID)
	log.Info("retention pass started", "threshold", threshold)

	var errs []string
	for _, s := range sweeps {
		n, err := c.sweep(ctx, s, threshold)
		if err != nil {
			log.Error("retention sweep failed", "sweep", s.name, "err", err)
			errs = append(errs, fmt.Sprintf("%s: %v", s.name, err))
			n = 0
		}
		*s.count(&stats) = n
	}
	if len(errs) > 0 {
		stats.Error = strings.Join(errs, "; ")
	}

	log.Info("retention pass finished",
		"messages", stats.MessagesDeleted,
		"direct_messages", stats.DirectMessagesDeleted,
		"posts", stats.PostsDeleted,
		"notifications", stats.NotificationsDeleted,
		"total", stats.Total(),
	)
	if c.reporter != nil {
		if err := c.reporter.Save(ctx, stats); err != nil {
			log.Warn("archive retention stats failed", "err", err)
		}
	}
	return stats
}

func (c *Cleaner) sweep(ctx context.Context, s sweep, threshold int64) (int, error) {
	collections := []string{s.root}
	if s.collections != nil {
		keys, err := c.store.Keys(ctx, s.root)
		if err != nil {
			return 0, fmt.Errorf("list %s: %w", s.root, err)
		}
		collections = s.collections(keys)
	}
	total := 0
	for _, coll := range collections {
		n, err := c.purge(ctx, coll, threshold)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// purge deletes the expired children of one collection in a single update.
func (c *Cleaner) purge(ctx context.Context, collection string, threshold int64) (int, error) {
	snaps, err := c.store.Children(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", collection, err)
	}
	updates := map[string]any{}
	for _, s := range snaps {
		ts, ok := pathstore.Timestamp(s.Value)
		if !ok || ts >= threshold {
			continue
		}
		updates[pathstore.Join(collection, s.Key)] = nil
	}
	if len(updates) == 0 {
		return 0, nil
	}
	if err := c.store.Update(ctx, updates); err != nil {
		return 0, fmt.Errorf("delete from %s: %w", collection, err)
	}
	return len(updates), nil
}

func mapKeys(keys []string, path func(string) string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, path(k))
	}
	return out
}
