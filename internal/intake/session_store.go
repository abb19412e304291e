package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrSessionNotFound is returned when a session id has no record, either
// because it never existed or because it expired.
var ErrSessionNotFound = errors.New("intake: session not found")

// SessionStore holds the per-session case record. Update gives the callback
// exclusive access to the session's record for the duration of the call, so
// two concurrent turns on the same session serialize rather than interleave.
type SessionStore interface {
	// Get returns a snapshot of the record, or ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*Record, error)
	// Update loads the record (creating an empty one if absent), runs fn with
	// exclusive access, persists the result, and returns a snapshot. If fn
	// returns an error nothing is persisted.
	Update(ctx context.Context, sessionID string, fn func(*Record) error) (*Record, error)
	// Delete removes the session.
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	mu        sync.Mutex
	rec       *Record
	expiresAt time.Time
}

// MemorySessionStore keeps records in process memory with a TTL. Each session
// carries its own lock; the map-level lock is only held long enough to find
// or create the entry.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySessionStore builds an in-memory store; ttl <= 0 means records
// never expire.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemorySessionStore) entry(sessionID string, create bool) (*memoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if ok && s.ttl > 0 && s.now().After(e.expiresAt) {
		delete(s.entries, sessionID)
		ok = false
	}
	if !ok {
		if !create {
			return nil, ErrSessionNotFound
		}
		e = &memoryEntry{rec: NewRecord(sessionID, s.now())}
		s.entries[sessionID] = e
	}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	return e, nil
}

func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	e, err := s.entry(sessionID, false)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone(), nil
}

func (s *MemorySessionStore) Update(ctx context.Context, sessionID string, fn func(*Record) error) (*Record, error) {
	e, err := s.entry(sessionID, true)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.rec.Clone()
	if err := fn(working); err != nil {
		return nil, fmt.Errorf("intake: update session %s: %w", sessionID, err)
	}
	working.UpdatedAt = s.now()
	e.rec = working
	return working.Clone(), nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}
