package zarr

import (
	"context"
	"sync"

	"github.com/hydroclim/aorc-extract/internal/observability"
)

// LRUStore wraps a Store with an in-memory LRU cache of fetched objects,
// keyed by object key. Metadata and coordinate arrays are read repeatedly
// during subset resolution; caching them keeps those reads off the network.
// Listings pass through uncached.
type LRUStore struct {
	inner   Store
	metrics *observability.Metrics

	mu         sync.Mutex
	maxEntries int
	entries    map[string]*cacheEntry
	head       *cacheEntry // most recently used
	tail       *cacheEntry // least recently used
}

type cacheEntry struct {
	key   string
	value []byte
	prev  *cacheEntry
	next  *cacheEntry
}

// NewLRUStore wraps inner with a cache of at most maxEntries objects.
func NewLRUStore(inner Store, maxEntries int, metrics *observability.Metrics) *LRUStore {
	return &LRUStore{
		inner:      inner,
		metrics:    metrics,
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
	}
}

func (s *LRUStore) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := s.get(key); ok {
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return data, nil
	}
	s.metrics.CacheLookups.WithLabelValues("miss").Inc()

	data, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.put(key, data)
	return data, nil
}

func (s *LRUStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func (s *LRUStore) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	s.moveToFront(e)
	return e.value, true
}

func (s *LRUStore) put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.value = value
		s.moveToFront(e)
		return
	}

	e := &cacheEntry{key: key, value: value}
	s.entries[key] = e
	s.addToFront(e)

	if len(s.entries) > s.maxEntries {
		s.evictTail()
	}
}

func (s *LRUStore) moveToFront(e *cacheEntry) {
	if e == s.head {
		return
	}
	s.remove(e)
	s.addToFront(e)
}

func (s *LRUStore) addToFront(e *cacheEntry) {
	e.next = s.head
	e.prev = nil
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *LRUStore) remove(e *cacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
}

func (s *LRUStore) evictTail() {
	if s.tail == nil {
		return
	}
	delete(s.entries, s.tail.key)
	s.remove(s.tail)
}
