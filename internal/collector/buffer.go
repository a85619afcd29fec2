package collector

import (
	"maps"
	"sync"
	"time"

	"github.com/bowiephone/bowietest/internal/model"
)

// DefaultCapacity bounds the buffer when no capacity is configured.
const DefaultCapacity = 200

// BufferOpts configures optional hooks on a Buffer.
type BufferOpts struct {
	// OnAdd is invoked with the stored entry after it has been stamped
	// and appended. It runs outside the buffer's critical section and
	// must handle its own failures; a panicking hook takes the ingest
	// request down with it.
	OnAdd func(model.Entry)
}

// Buffer is a bounded FIFO store of debug entries. When full, adding a
// new entry evicts the oldest one. All methods are safe for concurrent
// use.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	entries  []model.Entry

	onAdd func(model.Entry)
}

// NewBuffer returns a Buffer holding at most capacity entries.
// Non-positive capacities fall back to DefaultCapacity.
func NewBuffer(capacity int, opts *BufferOpts) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Buffer{
		capacity: capacity,
		entries:  make([]model.Entry, 0, capacity),
	}
	if opts != nil {
		b.onAdd = opts.OnAdd
	}
	return b
}

// Add stamps a copy of entry with the ingestion timestamp, appends it,
// and returns the stored copy. The append and the eviction happen in
// one critical section, so no reader ever observes more than capacity
// entries.
func (b *Buffer) Add(entry model.Entry) model.Entry {
	stored := maps.Clone(entry)
	if stored == nil {
		stored = model.Entry{}
	}
	stored[model.ServerTimestampKey] = time.Now().Format(time.RFC3339Nano)

	b.mu.Lock()
	b.entries = append(b.entries, stored)
	if len(b.entries) > b.capacity {
		b.entries = b.entries[1:]
	}
	b.mu.Unlock()

	if b.onAdd != nil {
		b.onAdd(stored)
	}
	return stored
}

// Snapshot returns a copy of the buffer contents, oldest first. The
// returned slice is the caller's to keep; later adds do not affect it.
func (b *Buffer) Snapshot() []model.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len reports how many entries are currently buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Clear drops every buffered entry.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = b.entries[:0]
}
