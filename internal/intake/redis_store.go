package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "intake:session:"

// RedisSessionStore persists case records in Redis as JSON with a TTL, so
// sessions survive process restarts and expire on their own. Writes to the
// same session are serialized through a process-local keyed lock; the
// deployment runs a single API instance per session shard, so no distributed
// lock is needed.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	now   func() time.Time
}

// NewRedisSessionStore wraps an existing Redis client.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
		locks:  make(map[string]*sync.Mutex),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *RedisSessionStore) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

func (s *RedisSessionStore) key(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (s *RedisSessionStore) load(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("intake: load session %s: %w", sessionID, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("intake: decode session %s: %w", sessionID, err)
	}
	return &rec, nil
}

func (s *RedisSessionStore) save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("intake: encode session %s: %w", rec.SessionID, err)
	}
	if err := s.client.Set(ctx, s.key(rec.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("intake: save session %s: %w", rec.SessionID, err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	return s.load(ctx, sessionID)
}

func (s *RedisSessionStore) Update(ctx context.Context, sessionID string, fn func(*Record) error) (*Record, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.load(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		rec = NewRecord(sessionID, s.now())
	} else if err != nil {
		return nil, err
	}

	if err := fn(rec); err != nil {
		return nil, fmt.Errorf("intake: update session %s: %w", sessionID, err)
	}
	rec.UpdatedAt = s.now()

	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.locks, sessionID)
	s.mu.Unlock()

	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("intake: delete session %s: %w", sessionID, err)
	}
	return nil
}
