package pathstore

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type childReader interface {
	Children(ctx context.Context, path string) ([]Snapshot, error)
}

// Poller turns any Store into a Watcher by re-reading the watched
// collection every interval and calling back when its contents change.
type Poller struct {
	store    childReader
	clock    clockwork.Clock
	interval time.Duration
}

func NewPoller(store childReader, clock clockwork.Clock, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{store: store, clock: clock, interval: interval}
}

func (p *Poller) Watch(ctx context.Context, path string, q Query, fn func([]Snapshot)) (Cancel, error) {
	if _, err := Split(path); err != nil {
		return nil, err
	}
	snaps, err := p.store.Children(ctx, path)
	if err != nil {
		return nil, err
	}
	view := q.Apply(snaps)
	last := fingerprint(view)
	fn(view)

	ticker := p.clock.NewTicker(p.interval)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
			snaps, err := p.store.Children(ctx, path)
			if err != nil {
				slog.Warn("poll watch read failed", "path", path, "err", err)
				continue
			}
			view := q.Apply(snaps)
			if fp := fingerprint(view); fp != last {
				last = fp
				fn(view)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}, nil
}

func fingerprint(snaps []Snapshot) [sha256.Size]byte {
	h := sha256.New()
	for _, s := range snaps {
		h.Write([]byte(s.Key))
		h.Write([]byte{0})
		h.Write(s.Value)
		h.Write([]byte{0})
	}
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}
