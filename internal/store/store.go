// Package store defines the narrow protocol the metrics core requires of its
// backing store, plus the Redis and in-memory adapters implementing it.
//
// Any store offering namespaced key-value storage with atomic per-key
// increment and pipelined batching satisfies the Store contract. A namespace
// maps to one Redis hash; keys inside it are the encoded metric keys.
package store

import (
	"context"
)

// Op is a single store mutation inside a pipelined batch.
type Op struct {
	Kind  OpKind
	Key   string
	Delta float64 // OpIncr: additive delta
	Value string  // OpSet: last-write-wins value
}

// OpKind distinguishes additive increments from overwrites.
type OpKind int

const (
	// OpIncr adds Delta to the current value, creating the key at zero.
	OpIncr OpKind = iota
	// OpSet overwrites the value (last write wins).
	OpSet
)

// Incr builds an additive operation.
func Incr(key string, delta float64) Op {
	return Op{Kind: OpIncr, Key: key, Delta: delta}
}

// Set builds an overwrite operation.
func Set(key, value string) Op {
	return Op{Kind: OpSet, Key: key, Value: value}
}

// Store is the protocol between the metrics core and the shared store.
//
// Each operation is individually atomic. Pipeline guarantees every operation
// in the batch is submitted in one round trip, but the batch as a whole is
// not transactional; callers tolerate partial application by retrying with
// additive deltas.
type Store interface {
	// GetAll returns every key/value pair in the namespace.
	GetAll(ctx context.Context, namespace string) (map[string]string, error)

	// IncrBy atomically adds delta to the key and returns the new value.
	IncrBy(ctx context.Context, namespace, key string, delta float64) (float64, error)

	// Set overwrites the key's value.
	Set(ctx context.Context, namespace, key, value string) error

	// Pipeline submits the operations as one batch.
	Pipeline(ctx context.Context, namespace string, ops []Op) error
}
