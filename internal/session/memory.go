package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and single-node
// deployments. Expired records are evicted lazily on Get and swept
// periodically once Start is called.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]memoryEntry
	ttl     time.Duration

	stop chan struct{}
	once sync.Once
}

type memoryEntry struct {
	rec       Record
	expiresAt time.Time
}

// NewMemoryStore creates an empty store. A non-positive ttl falls back to
// DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		records: make(map[uuid.UUID]memoryEntry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
}

// Start launches the background sweep. Safe to skip in tests.
func (s *MemoryStore) Start(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep(time.Now())
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the background sweep.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) Put(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = memoryEntry{
		rec:       *rec,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	entry, ok := s.records[id]
	s.mu.RUnlock()

	if !ok {
		return nil, notFound(id)
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.records, id)
		s.mu.Unlock()
		return nil, notFound(id)
	}

	rec := entry.rec
	rec.Form = entry.rec.Form.Clone()
	rec.Nav.Errors = entry.rec.Nav.Errors.Clone()
	return &rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.records {
		if now.After(entry.expiresAt) {
			delete(s.records, id)
		}
	}
}

// Len reports how many records are held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
