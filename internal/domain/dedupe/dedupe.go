// Package dedupe tracks claimed idempotency keys.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10_000

// Deduper maps idempotency keys to the job that claimed them.
type Deduper interface {
	// Claim atomically records owner for key unless the key is already claimed.
	// It returns the current owner and whether this call claimed the key.
	Claim(ctx context.Context, key, owner string) (string, bool)

	// Unrecord releases a key so it can be claimed again. Used when the
	// claiming submission was refused (e.g., queue backpressure).
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key   string
	owner string
}

// inMemoryDeduper keeps at most maxSize keys and evicts the oldest claim first.
// maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, key, owner string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		return el.Value.(*entry).owner, false
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushBack(&entry{key: key, owner: owner})
	d.size.Store(int64(len(d.seen)))
	return owner, true
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
		d.size.Store(int64(len(d.seen)))
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if el := d.order.Front(); el != nil {
		d.order.Remove(el)
		delete(d.seen, el.Value.(*entry).key)
	}
}

// Size returns the current number of claimed keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
