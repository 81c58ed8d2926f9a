// Package cache implements the process-local memoization layer described
// in SPEC_FULL.md §4.2: a time-bounded, single-flight map from string key
// to a value of generic type T. No singleflight library appears anywhere
// in the retrieved corpus, so this is a deliberate, justified stdlib
// construction (see DESIGN.md) built from sync.Mutex plus per-key wait
// channels, in the spirit of the teacher framework's fine-grained-lock
// preference over a single global mutex (core/tool.go's registry uses the
// same per-entry-lock shape for its capability map).
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

type inFlight[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Cache memoizes the result of a factory function per key for a fixed
// time-to-live, coalescing concurrent misses for the same key into a
// single factory invocation.
type Cache[T any] struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]entry[T]
	inflight map[string]*inFlight[T]

	now func() time.Time
}

// New builds a Cache with the given time-to-live. ttl <= 0 disables
// memoization: every Get invokes the factory.
func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		ttl:      ttl,
		entries:  make(map[string]entry[T]),
		inflight: make(map[string]*inFlight[T]),
		now:      time.Now,
	}
}

// Get returns the cached value for key if live, otherwise invokes factory
// exactly once across all concurrent callers for that key, stores the
// result (unless ctx was cancelled or factory failed), and returns it.
func (c *Cache[T]) Get(ctx context.Context, key string, factory func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.value, nil
	}

	if f, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		return c.wait(ctx, f)
	}

	f := &inFlight[T]{done: make(chan struct{})}
	c.inflight[key] = f
	c.mu.Unlock()

	value, err := factory(ctx)

	c.mu.Lock()
	delete(c.inflight, key)
	if err == nil && ctx.Err() == nil {
		c.entries[key] = entry[T]{value: value, expiresAt: c.now().Add(c.ttl)}
	}
	c.mu.Unlock()

	f.value, f.err = value, err
	close(f.done)

	return value, err
}

func (c *Cache[T]) wait(ctx context.Context, f *inFlight[T]) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Invalidate removes key's cached entry, if any. Used by tests and by
// callers that need to force a refresh.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
