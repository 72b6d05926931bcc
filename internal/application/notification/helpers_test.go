package notification

import (
	"context"
	"errors"
	"time"

	"github.com/edutok-api/internal/pathstore"
	"github.com/jonboulle/clockwork"
)

var (
	errStoreDown = errors.New("store unavailable")
	testNow      = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
)

// failingStore wraps a Memory and fails the operations switched on.
type failingStore struct {
	*pathstore.Memory
	failUpdate   bool
	failChildren bool
	updates      int
}

func (f *failingStore) Update(ctx context.Context, u map[string]any) error {
	f.updates++
	if f.failUpdate {
		return errStoreDown
	}
	return f.Memory.Update(ctx, u)
}

func (f *failingStore) Children(ctx context.Context, path string) ([]pathstore.Snapshot, error) {
	if f.failChildren {
		return nil, errStoreDown
	}
	return f.Memory.Children(ctx, path)
}

func newFixture() (*failingStore, *Writer, *Reader, *clockwork.FakeClock) {
	mem := pathstore.NewMemory()
	fs := &failingStore{Memory: mem}
	clock := clockwork.NewFakeClockAt(testNow)
	return fs, NewWriter(fs, clock), NewReader(fs, mem), clock
}
