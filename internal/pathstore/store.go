// Package pathstore defines the hierarchical document store the service runs
// against: a JSON tree addressed by '/'-delimited paths with atomic
// multi-path updates and change subscriptions.
package pathstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edutok-api/internal/domain"
)

var (
	ErrNotFound    = fmt.Errorf("path %w", domain.ErrNotFound)
	ErrInvalidPath = fmt.Errorf("invalid path: %w", domain.ErrBadRequest)
)

// Snapshot is one child of a collection: its key and JSON value.
type Snapshot struct {
	Key   string
	Value json.RawMessage
}

// Decode unmarshals the snapshot value into v.
func (s Snapshot) Decode(v any) error {
	return json.Unmarshal(s.Value, v)
}

// Store is the read/write surface of the tree.
type Store interface {
	// Get returns the JSON value at path, or ErrNotFound.
	Get(ctx context.Context, path string) (json.RawMessage, error)
	// Keys lists the immediate child keys of path. A missing path has no keys.
	Keys(ctx context.Context, path string) ([]string, error)
	// Children returns the immediate child records of path, ordered by key.
	Children(ctx context.Context, path string) ([]Snapshot, error)
	// Update applies every path in updates in one atomic call. A nil value
	// deletes the path.
	Update(ctx context.Context, updates map[string]any) error
	// NewKey returns a unique, time-ordered key for a new child.
	NewKey() string
}

// Cancel detaches a watch. It is safe to call more than once.
type Cancel func()

// Watcher delivers the children of a path every time they change. The
// current state is delivered before Watch returns.
type Watcher interface {
	Watch(ctx context.Context, path string, q Query, fn func([]Snapshot)) (Cancel, error)
}

// ValidKey reports whether k can be used as a single path segment.
func ValidKey(k string) bool {
	if k == "" {
		return false
	}
	if strings.ContainsAny(k, "/.#$[]") {
		return false
	}
	for _, r := range k {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

// Split breaks path into validated segments. Leading and trailing slashes are
// ignored; "" and "/" are the root and yield no segments.
func Split(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	segs := strings.Split(trimmed, "/")
	for _, s := range segs {
		if !ValidKey(s) {
			return nil, fmt.Errorf("%q: %w", path, ErrInvalidPath)
		}
	}
	return segs, nil
}

// Join builds a path from segments without validating them.
func Join(segs ...string) string {
	return strings.Join(segs, "/")
}

// checkOverlap rejects an update where one path is an ancestor of another.
func checkOverlap(paths map[string][]string) error {
	for p, segs := range paths {
		for i := 1; i < len(segs); i++ {
			anc := Join(segs[:i]...)
			if _, ok := paths[anc]; ok {
				return fmt.Errorf("%q overlaps %q: %w", p, anc, ErrInvalidPath)
			}
		}
	}
	return nil
}

// ParseUpdate validates and canonicalises the paths of a multi-path update.
// The result maps the joined canonical path to its segments.
func ParseUpdate(updates map[string]any) (map[string][]string, error) {
	paths := make(map[string][]string, len(updates))
	for p := range updates {
		segs, err := Split(p)
		if err != nil {
			return nil, err
		}
		if len(segs) == 0 {
			return nil, fmt.Errorf("cannot write the root: %w", ErrInvalidPath)
		}
		canon := Join(segs...)
		if _, dup := paths[canon]; dup {
			return nil, fmt.Errorf("%q given twice: %w", canon, ErrInvalidPath)
		}
		paths[canon] = segs
	}
	if err := checkOverlap(paths); err != nil {
		return nil, err
	}
	return paths, nil
}
