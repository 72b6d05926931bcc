package pathstore

import (
	"encoding/json"
	"sort"
)

// Query narrows a watched collection to its last N children ordered by a
// numeric child field.
type Query struct {
	OrderBy     string // child field; empty orders by key
	LimitToLast int    // 0 means no limit
}

// Apply orders snaps per q and keeps the last LimitToLast. Children without a
// numeric OrderBy field sort first; ties fall back to key order.
func (q Query) Apply(snaps []Snapshot) []Snapshot {
	out := make([]Snapshot, len(snaps))
	copy(out, snaps)
	if q.OrderBy != "" {
		vals := make(map[string]orderValue, len(out))
		for _, s := range out {
			vals[s.Key] = numericField(s.Value, q.OrderBy)
		}
		sort.SliceStable(out, func(i, j int) bool {
			a, b := vals[out[i].Key], vals[out[j].Key]
			if a.ok != b.ok {
				return !a.ok
			}
			if a.v != b.v {
				return a.v < b.v
			}
			return out[i].Key < out[j].Key
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	}
	if q.LimitToLast > 0 && len(out) > q.LimitToLast {
		out = out[len(out)-q.LimitToLast:]
	}
	return out
}

type orderValue struct {
	v  float64
	ok bool
}

func numericField(raw json.RawMessage, field string) orderValue {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return orderValue{}
	}
	f, ok := obj[field]
	if !ok {
		return orderValue{}
	}
	var n float64
	if err := json.Unmarshal(f, &n); err != nil {
		return orderValue{}
	}
	return orderValue{v: n, ok: true}
}

// Timestamp extracts the numeric "timestamp" field of a record. ok is false
// when the field is missing or not a number.
func Timestamp(raw json.RawMessage) (ts int64, ok bool) {
	v := numericField(raw, "timestamp")
	return int64(v.v), v.ok
}
