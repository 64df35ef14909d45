package metrics

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"instrumentor/internal/store"
)

// pendingBuffer accumulates not-yet-transferred operations per key. The map
// shape is guarded by a read-write lock; each entry carries its own mutex so
// concurrent updates to unrelated keys never serialize on one process-wide
// lock. Every entry mutation holds the map's read lock for its whole critical
// section, so swap's write lock cannot detach an entry while an update is
// landing on it.
type pendingBuffer struct {
	mu      sync.RWMutex
	entries map[string]*pendingEntry
}

// pendingEntry is the merged state of all buffered operations on one key.
// A set supersedes everything buffered before it; deltas arriving after a
// set accumulate on top of its value.
type pendingEntry struct {
	mu     sync.Mutex
	hasSet bool
	setVal string
	delta  float64
}

func newPendingBuffer() *pendingBuffer {
	return &pendingBuffer{entries: make(map[string]*pendingEntry)}
}

// mutate runs fn on the live entry for key, holding b.mu.RLock around the
// entry lookup and the mutation together. An entry fetched from the live map
// therefore cannot be swapped out before fn completes; if the key is missing
// the entry is inserted under the write lock and the lookup retried.
func (b *pendingBuffer) mutate(key string, fn func(*pendingEntry)) {
	for {
		b.mu.RLock()
		e, ok := b.entries[key]
		if ok {
			e.mu.Lock()
			fn(e)
			e.mu.Unlock()
			b.mu.RUnlock()
			return
		}
		b.mu.RUnlock()

		b.mu.Lock()
		if _, ok := b.entries[key]; !ok {
			b.entries[key] = &pendingEntry{}
		}
		b.mu.Unlock()
	}
}

// add merges operations into the buffer.
func (b *pendingBuffer) add(ops []store.Op) {
	for _, op := range ops {
		op := op
		b.mutate(op.Key, func(e *pendingEntry) {
			switch op.Kind {
			case store.OpSet:
				e.hasSet = true
				e.setVal = op.Value
				e.delta = 0
			default:
				e.delta += op.Delta
			}
		})
	}
}

// swap detaches the current contents, leaving an empty buffer behind. The
// write lock waits out every in-flight mutation, so the detached map is
// quiescent once swap returns.
func (b *pendingBuffer) swap() map[string]*pendingEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.entries
	b.entries = make(map[string]*pendingEntry)
	return out
}

// restore merges previously swapped entries back after a failed transfer.
// The buffered entries are older than anything added meanwhile, so a newer
// set wins over them and newer deltas stack on top.
func (b *pendingBuffer) restore(old map[string]*pendingEntry) {
	for key, oe := range old {
		oe.mu.Lock()
		hasSet, setVal, delta := oe.hasSet, oe.setVal, oe.delta
		oe.mu.Unlock()

		b.mutate(key, func(ne *pendingEntry) {
			if ne.hasSet {
				return
			}
			ne.delta += delta
			if hasSet {
				ne.hasSet = true
				ne.setVal = setVal
			}
		})
	}
}

// collect renders entries as store operations in deterministic key order.
// A set followed by deltas collapses into one set of the combined value.
func collectOps(entries map[string]*pendingEntry) []store.Op {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ops := make([]store.Op, 0, len(keys))
	for _, key := range keys {
		e := entries[key]
		e.mu.Lock()
		hasSet, setVal, delta := e.hasSet, e.setVal, e.delta
		e.mu.Unlock()

		switch {
		case hasSet && delta != 0:
			if base, err := strconv.ParseFloat(setVal, 64); err == nil {
				ops = append(ops, store.Set(key, formatValue(base+delta)))
			} else {
				// Non-numeric sets (description/type records) never
				// receive deltas; keep the set if it happens anyway.
				ops = append(ops, store.Set(key, setVal))
			}
		case hasSet:
			ops = append(ops, store.Set(key, setVal))
		default:
			ops = append(ops, store.Incr(key, delta))
		}
	}
	return ops
}

// flush drains the buffer and submits one pipelined batch. The buffer is
// cleared only on confirmed success; on failure every entry is merged back
// so the caller can retry without losing deltas.
func (b *pendingBuffer) flush(ctx context.Context, st store.Store, namespace string) (int, error) {
	entries := b.swap()
	if len(entries) == 0 {
		return 0, nil
	}

	ops := collectOps(entries)
	if err := st.Pipeline(ctx, namespace, ops); err != nil {
		b.restore(entries)
		return 0, err
	}
	return len(ops), nil
}

// len reports the number of distinct buffered keys.
func (b *pendingBuffer) len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
