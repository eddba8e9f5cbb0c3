// Package dedupe tracks recently seen signal event ids so a retried client
// emit is buffered at most once.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen event IDs.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a dropped event can be emitted again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// ringDeduper keeps the last capacity ids in a ring. When full, recording a
// new id evicts the oldest one.
type ringDeduper struct {
	mu       sync.Mutex
	seen     map[string]int // id -> slot
	ring     []string
	next     int
	capacity int
}

// NewInMemoryDeduper creates a deduper. A capacity <= 0 disables eviction.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &ringDeduper{capacity: 50000}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.capacity > 0 {
		d.ring = make([]string, d.capacity)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.capacity <= 0 {
		d.seen[id] = -1
		return false
	}
	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.ring[d.next] = id
	d.seen[id] = d.next
	d.next = (d.next + 1) % d.capacity
	return false
}

func (d *ringDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if slot >= 0 {
		d.ring[slot] = ""
	}
}

func (d *ringDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
