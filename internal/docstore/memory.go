package docstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-memory fallback adapter. It is the reference
// implementation used when no durable backing store is available, and the
// workhorse of the test suite.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     []ReferenceDocument
	lastSync *time.Time
	capacity int // 0 means unbounded
	maxAge   time.Duration
	now      func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithCapacity bounds the number of documents the store accepts before it
// reports a quota rejection.
func WithCapacity(n int) MemoryOption {
	return func(s *MemoryStore) { s.capacity = n }
}

// WithMaxAge overrides the staleness window.
func WithMaxAge(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.maxAge = d }
}

// WithClock overrides the time source; tests use it to age the cache.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{maxAge: DefaultMaxAge, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Store(_ context.Context, docs []ReferenceDocument) error {
	if err := s.put(docs); err != nil {
		// Quota policy: keep the newest MaxDocuments and retry once.
		docs = TruncateNewest(docs, MaxDocuments)
		if err := s.put(docs); err != nil {
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) put(docs []ReferenceDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capacity > 0 && len(docs) > s.capacity {
		return ErrQuotaExceeded
	}
	copied := make([]ReferenceDocument, len(docs))
	copy(copied, docs)
	s.docs = copied
	now := s.now()
	s.lastSync = &now
	return nil
}

func (s *MemoryStore) Retrieve(_ context.Context) ([]ReferenceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]ReferenceDocument, len(s.docs))
	copy(docs, s.docs)
	return docs, nil
}

func (s *MemoryStore) LastSync(_ context.Context) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	s.lastSync = nil
	return nil
}

func (s *MemoryStore) Status(_ context.Context) (CacheStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return buildStatus(len(s.docs), s.lastSync, s.maxAge, s.now()), nil
}
