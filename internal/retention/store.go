// Package retention provides a generic bounded, ordered, in-memory container
// keyed by item identity. Every data kind the feed retains (quotes,
// opportunities, MEV alerts, depth snapshots, execution updates) is held in
// one of these stores so memory growth stays capped in a single place.
package retention

import "sync"

// Order selects how items are arranged and which end is evicted when the
// store exceeds its capacity.
type Order int

const (
	// Insertion keeps items in arrival order and evicts the oldest
	// (front) item on overflow.
	Insertion Order = iota

	// NewestFirst keeps the most recently upserted item at the front and
	// evicts from the back on overflow.
	NewestFirst
)

// Store is a bounded container of items with string identities. Upserting an
// item whose key is already present replaces the existing entry, so a key
// appears at most once. Reads and writes may come from different goroutines;
// Snapshot returns a copy that is never mutated afterwards.
type Store[T any] struct {
	mu       sync.RWMutex
	capacity int
	order    Order
	keyFn    func(T) string
	items    []T
	index    map[string]int
}

// New creates a store holding at most capacity items, keyed by keyFn.
// A capacity below 1 is treated as 1.
func New[T any](capacity int, order Order, keyFn func(T) string) *Store[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Store[T]{
		capacity: capacity,
		order:    order,
		keyFn:    keyFn,
		index:    make(map[string]int, capacity),
	}
}

// Upsert inserts item, replacing any existing entry with the same key. If the
// insertion pushes the store past capacity, one item is evicted according to
// the ordering policy.
func (s *Store[T]) Upsert(item T) {
	key := s.keyFn(item)

	s.mu.Lock()
	defer s.mu.Unlock()

	if pos, ok := s.index[key]; ok {
		switch s.order {
		case NewestFirst:
			// Re-position the updated entry at the front.
			s.items = append(s.items[:pos], s.items[pos+1:]...)
			s.items = append([]T{item}, s.items...)
		default:
			s.items[pos] = item
		}
		s.reindex()
		return
	}

	switch s.order {
	case NewestFirst:
		s.items = append([]T{item}, s.items...)
		if len(s.items) > s.capacity {
			s.items = s.items[:s.capacity]
		}
	default:
		s.items = append(s.items, item)
		if len(s.items) > s.capacity {
			s.items = s.items[1:]
		}
	}
	s.reindex()
}

// Get returns the item stored under key, if any.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pos, ok := s.index[key]; ok {
		return s.items[pos], true
	}
	var zero T
	return zero, false
}

// Delete removes the item stored under key and reports whether it existed.
func (s *Store[T]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[key]
	if !ok {
		return false
	}
	s.items = append(s.items[:pos], s.items[pos+1:]...)
	s.reindex()
	return true
}

// Len returns the current number of items.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Capacity returns the configured maximum number of items.
func (s *Store[T]) Capacity() int { return s.capacity }

// Snapshot returns a copy of the current contents in store order. The
// returned slice is owned by the caller; later mutations of the store do not
// affect it.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// reindex rebuilds the key index after any structural change. Store
// capacities are small (≤100), so the linear rebuild is not worth avoiding.
func (s *Store[T]) reindex() {
	clear(s.index)
	for i, item := range s.items {
		s.index[s.keyFn(item)] = i
	}
}
