package metrics

import (
	"context"
	"sync"
	"sync/atomic"

	coreerrors "instrumentor/internal/core/errors"
	corelog "instrumentor/internal/core/log"
	"instrumentor/internal/store"
)

// Mode selects when mutations reach the store.
type Mode int

const (
	// Eager writes every mutation to the store immediately.
	Eager Mode = iota
	// Buffered accumulates deltas locally until Transfer flushes them as
	// one pipelined batch.
	Buffered
)

// String returns the mode name as used in configuration.
func (m Mode) String() string {
	if m == Buffered {
		return "buffered"
	}
	return "eager"
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "eager", "":
		return Eager, nil
	case "buffered":
		return Buffered, nil
	default:
		return Eager, coreerrors.Newf(coreerrors.CodeConfigError, "unknown write mode %q", s)
	}
}

// Registry owns one application's metrics: the namespace, the write mode,
// the set of registered metrics and the pending-delta buffer. Build one
// registry at process startup and pass it to the code that declares metrics;
// there is no implicit process-global instance.
type Registry struct {
	ctx       context.Context
	namespace string
	mode      Mode
	store     store.Store
	log       corelog.Logger

	mu      sync.RWMutex
	metrics map[string]Metric

	buffer *pendingBuffer
	closed atomic.Bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithMode selects eager or buffered writes. The default is eager.
func WithMode(m Mode) Option {
	return func(r *Registry) { r.mode = m }
}

// WithLogger injects the logger.
func WithLogger(l corelog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// NewRegistry creates a registry writing into the given namespace. The
// context bounds eager store writes; Transfer takes its own context.
func NewRegistry(ctx context.Context, st store.Store, namespace string, opts ...Option) *Registry {
	r := &Registry{
		ctx:       ctx,
		namespace: namespace,
		mode:      Eager,
		store:     st,
		log:       corelog.Default(),
		metrics:   make(map[string]Metric),
		buffer:    newPendingBuffer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Namespace returns the registry's store namespace.
func (r *Registry) Namespace() string { return r.namespace }

// Mode returns the registry's write mode.
func (r *Registry) Mode() Mode { return r.mode }

// Register adds a metric. Duplicate names are rejected and leave the
// registry unchanged.
func (r *Registry) Register(m Metric) error {
	if r.closed.Load() {
		return coreerrors.Newf(coreerrors.CodeRegistryClosed, "register %s on closed registry", m.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.metrics[m.Name()]; exists {
		return coreerrors.Newf(coreerrors.CodeDuplicateMetric, "metric %s is already registered", m.Name())
	}
	r.metrics[m.Name()] = m
	m.attach(r)

	r.log.Debugf("Registry: registered metric %s in namespace %s", m.Name(), r.namespace)
	return nil
}

// Unregister removes local bookkeeping for a metric. It is idempotent and
// never fails; accumulated values in the shared store are left untouched
// since other processes may still contribute to the same identity.
func (r *Registry) Unregister(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.metrics[m.Name()]; ok && current == m {
		delete(r.metrics, m.Name())
	}
	m.detach()
}

// Get returns a registered metric by name.
func (r *Registry) Get(name string) (Metric, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metrics[name]
	return m, ok
}

// enqueue routes a metric's operations either straight to the store or into
// the pending buffer. No in-process metric lock is held while a store call
// blocks.
func (r *Registry) enqueue(ops []store.Op) error {
	if r.closed.Load() {
		return coreerrors.Wrap(coreerrors.ErrRegistryClosed, coreerrors.CodeRegistryClosed, "mutation rejected")
	}

	if r.mode == Buffered {
		r.buffer.add(ops)
		return nil
	}

	if len(ops) == 1 && ops[0].Kind == store.OpIncr {
		_, err := r.store.IncrBy(r.ctx, r.namespace, ops[0].Key, ops[0].Delta)
		return err
	}
	return r.store.Pipeline(r.ctx, r.namespace, ops)
}

// Transfer flushes all pending deltas as one pipelined batch. In eager mode
// it is a no-op. Either every pending delta is applied and the buffer is
// cleared, or the buffer is retained and Transfer is safe to call again.
func (r *Registry) Transfer(ctx context.Context) error {
	if r.closed.Load() {
		return coreerrors.Wrap(coreerrors.ErrRegistryClosed, coreerrors.CodeRegistryClosed, "transfer rejected")
	}
	if r.mode != Buffered {
		return nil
	}

	n, err := r.buffer.flush(ctx, r.store, r.namespace)
	if err != nil {
		r.log.WithError(err).Warnf("Registry: transfer failed, %d keys retained", r.buffer.len())
		return err
	}
	if n > 0 {
		r.log.Debugf("Registry: transferred %d ops to namespace %s", n, r.namespace)
	}
	return nil
}

// Pending reports the number of distinct keys waiting for transfer.
func (r *Registry) Pending() int {
	return r.buffer.len()
}

// Close marks the registry closed and, in buffered mode, flushes the
// remaining deltas once. Operations after Close fail with the closed error.
func (r *Registry) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	if r.mode == Buffered {
		if _, err := r.buffer.flush(ctx, r.store, r.namespace); err != nil {
			r.log.WithError(err).Error("Registry: final flush on close failed")
			return err
		}
	}
	r.log.Infof("Registry: closed namespace %s", r.namespace)
	return nil
}
