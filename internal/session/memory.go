package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps badge faces in process. Suitable for a single instance.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*BadgeFace
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates the store and, when cleanupInterval is positive,
// a goroutine evicting expired entries. Call Stop to end it.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*BadgeFace),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, face *BadgeFace, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = stamp(face, s.now(), ttl)
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*BadgeFace, error) {
	s.mu.RLock()
	face, ok := s.entries[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if face.expired(s.now()) {
		s.mu.Lock()
		if current, ok := s.entries[sessionID]; ok && current == face {
			delete(s.entries, sessionID)
		}
		s.mu.Unlock()
		return nil, ErrExpired
	}

	c := *face
	return &c, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// CleanupExpired removes expired entries and returns how many were removed.
func (s *MemoryStore) CleanupExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, face := range s.entries {
		if face.expired(now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupExpired()
		case <-s.stop:
			return
		}
	}
}
