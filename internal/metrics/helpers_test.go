package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"

	corelog "instrumentor/internal/core/log"
	"instrumentor/internal/store"
)

// setupRegistry builds a registry over a fresh memory store.
func setupRegistry(t *testing.T, mode Mode) (*Registry, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	r := NewRegistry(context.Background(), st, "testns",
		WithMode(mode),
		WithLogger(corelog.NewTestLogger(t)),
	)
	return r, st
}

// storeValue reads one raw key from the store, returning "" when absent.
func storeValue(t *testing.T, st store.Store, key string) string {
	t.Helper()
	all, err := st.GetAll(context.Background(), "testns")
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	return all[key]
}

// recordingStore captures every operation for op-level assertions.
type recordingStore struct {
	mu    sync.Mutex
	inner *store.MemoryStore
	ops   []store.Op
}

func newRecordingStore() *recordingStore {
	return &recordingStore{inner: store.NewMemoryStore()}
}

func (r *recordingStore) GetAll(ctx context.Context, namespace string) (map[string]string, error) {
	return r.inner.GetAll(ctx, namespace)
}

func (r *recordingStore) IncrBy(ctx context.Context, namespace, key string, delta float64) (float64, error) {
	r.record(store.Incr(key, delta))
	return r.inner.IncrBy(ctx, namespace, key, delta)
}

func (r *recordingStore) Set(ctx context.Context, namespace, key, value string) error {
	r.record(store.Set(key, value))
	return r.inner.Set(ctx, namespace, key, value)
}

func (r *recordingStore) Pipeline(ctx context.Context, namespace string, ops []store.Op) error {
	r.mu.Lock()
	r.ops = append(r.ops, ops...)
	r.mu.Unlock()
	return r.inner.Pipeline(ctx, namespace, ops)
}

func (r *recordingStore) record(op store.Op) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

func (r *recordingStore) recorded() []store.Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// failingStore rejects every operation.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) GetAll(context.Context, string) (map[string]string, error) {
	return nil, errStoreDown
}

func (failingStore) IncrBy(context.Context, string, string, float64) (float64, error) {
	return 0, errStoreDown
}

func (failingStore) Set(context.Context, string, string, string) error {
	return errStoreDown
}

func (failingStore) Pipeline(context.Context, string, []store.Op) error {
	return errStoreDown
}
