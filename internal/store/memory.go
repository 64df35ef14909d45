package store

import (
	"context"
	"strconv"
	"sync"

	coreerrors "instrumentor/internal/core/errors"
)

// MemoryStore is an in-process Store for tests and single-process setups.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string // namespace -> key -> value
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]string),
	}
}

func (m *MemoryStore) namespace(ns string) map[string]string {
	if h, ok := m.data[ns]; ok {
		return h
	}
	h := make(map[string]string)
	m.data[ns] = h
	return h
}

// GetAll returns a copy of the namespace contents.
func (m *MemoryStore) GetAll(_ context.Context, namespace string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.data[namespace]))
	for k, v := range m.data[namespace] {
		out[k] = v
	}
	return out, nil
}

// IncrBy adds delta to the key, creating it at zero.
func (m *MemoryStore) IncrBy(_ context.Context, namespace, key string, delta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incrLocked(namespace, key, delta)
}

func (m *MemoryStore) incrLocked(namespace, key string, delta float64) (float64, error) {
	h := m.namespace(namespace)
	current := 0.0
	if raw, ok := h[key]; ok {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, coreerrors.Wrapf(err, coreerrors.CodeTransportError, "key %q holds non-numeric value", key)
		}
		current = parsed
	}
	current += delta
	h[key] = strconv.FormatFloat(current, 'g', -1, 64)
	return current, nil
}

// Set overwrites the key's value.
func (m *MemoryStore) Set(_ context.Context, namespace, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.namespace(namespace)[key] = value
	return nil
}

// Pipeline applies all operations under one lock acquisition.
func (m *MemoryStore) Pipeline(_ context.Context, namespace string, ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range ops {
		switch op.Kind {
		case OpSet:
			m.namespace(namespace)[op.Key] = op.Value
		default:
			if _, err := m.incrLocked(namespace, op.Key, op.Delta); err != nil {
				return err
			}
		}
	}
	return nil
}
