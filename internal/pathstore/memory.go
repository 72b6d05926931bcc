package pathstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/edutok-api/internal/domain"
	"github.com/edutok-api/internal/pkg/id"
)

// Memory is an in-process Store and Watcher holding the tree as nested
// JSON-compatible maps. Watch callbacks run synchronously on the writer's
// goroutine and must not write to the store.
type Memory struct {
	writeMu sync.Mutex // serialises Update and the notifications it triggers

	mu       sync.RWMutex
	root     map[string]any
	watchers map[int]*memWatcher
	nextID   int
}

type memWatcher struct {
	segs  []string
	query Query
	fn    func([]Snapshot)
}

func NewMemory() *Memory {
	return &Memory{
		root:     map[string]any{},
		watchers: map[int]*memWatcher{},
	}
}

func (m *Memory) NewKey() string { return id.New() }

func (m *Memory) Get(ctx context.Context, path string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segs, err := Split(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	node, ok := lookup(m.root, segs)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return json.Marshal(node)
}

func (m *Memory) Keys(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segs, err := Split(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	node, _ := lookup(m.root, segs)
	obj, ok := node.(map[string]any)
	if !ok {
		return []string{}, nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Children(ctx context.Context, path string) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segs, err := Split(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.childrenLocked(segs)
}

func (m *Memory) childrenLocked(segs []string) ([]Snapshot, error) {
	node, _ := lookup(m.root, segs)
	obj, ok := node.(map[string]any)
	if !ok {
		return []Snapshot{}, nil
	}
	out := make([]Snapshot, 0, len(obj))
	for k, v := range obj {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{Key: k, Value: raw})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Update validates and normalises every value before touching the tree, so a
// rejected update leaves the store unchanged.
func (m *Memory) Update(ctx context.Context, updates map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}
	paths, err := ParseUpdate(updates)
	if err != nil {
		return err
	}
	values := make(map[string]any, len(updates))
	for p, v := range updates {
		canon := strings.Trim(p, "/")
		if v == nil {
			values[canon] = nil
			continue
		}
		norm, err := normalise(v)
		if err != nil {
			return fmt.Errorf("value at %q: %v: %w", p, err, domain.ErrBadRequest)
		}
		values[canon] = norm
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	for canon, segs := range paths {
		if values[canon] == nil {
			remove(m.root, segs)
		} else {
			set(m.root, segs, values[canon])
		}
	}
	m.mu.Unlock()

	m.notify(paths)
	return nil
}

// Watch registers fn on the children of path and replays the current state
// before returning.
func (m *Memory) Watch(ctx context.Context, path string, q Query, fn func([]Snapshot)) (Cancel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segs, err := Split(path)
	if err != nil {
		return nil, err
	}
	w := &memWatcher{segs: segs, query: q, fn: fn}

	m.writeMu.Lock()
	m.mu.Lock()
	wid := m.nextID
	m.nextID++
	m.watchers[wid] = w
	snaps, err := m.childrenLocked(segs)
	m.mu.Unlock()
	if err == nil {
		fn(q.Apply(snaps))
	}
	m.writeMu.Unlock()
	if err != nil {
		m.detach(wid)
		return nil, err
	}

	stopped := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stopped)
			m.detach(wid)
		})
	}
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-stopped:
			}
		}()
	}
	return cancel, nil
}

func (m *Memory) detach(wid int) {
	m.mu.Lock()
	delete(m.watchers, wid)
	m.mu.Unlock()
}

// notify runs with writeMu held.
func (m *Memory) notify(changed map[string][]string) {
	type pending struct {
		w     *memWatcher
		snaps []Snapshot
	}
	var calls []pending
	m.mu.RLock()
	for _, w := range m.watchers {
		if !affects(w.segs, changed) {
			continue
		}
		snaps, err := m.childrenLocked(w.segs)
		if err != nil {
			continue
		}
		calls = append(calls, pending{w: w, snaps: w.query.Apply(snaps)})
	}
	m.mu.RUnlock()
	for _, c := range calls {
		c.w.fn(c.snaps)
	}
}

// affects reports whether any changed path is inside, above, or equal to the
// watched path.
func affects(watched []string, changed map[string][]string) bool {
	for _, segs := range changed {
		n := len(watched)
		if len(segs) < n {
			n = len(segs)
		}
		match := true
		for i := 0; i < n; i++ {
			if watched[i] != segs[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func normalise(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func lookup(root map[string]any, segs []string) (any, bool) {
	var cur any = root
	for _, s := range segs {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[s]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func set(root map[string]any, segs []string, v any) {
	cur := root
	for _, s := range segs[:len(segs)-1] {
		next, ok := cur[s].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[s] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = v
}

// remove deletes the node at segs and prunes parents left empty.
func remove(root map[string]any, segs []string) {
	parents := make([]map[string]any, 0, len(segs))
	cur := root
	for _, s := range segs[:len(segs)-1] {
		next, ok := cur[s].(map[string]any)
		if !ok {
			return
		}
		parents = append(parents, cur)
		cur = next
	}
	delete(cur, segs[len(segs)-1])
	for i := len(parents) - 1; i >= 0 && len(cur) == 0; i-- {
		delete(parents[i], segs[i])
		cur = parents[i]
	}
}
