package memory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kailas-cloud/recommender/internal/db"
)

var _ db.CacheStore = (*Store)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no per-entry deadline
}

// Store is an in-process db.CacheStore backed by an expirable LRU.
// The LRU evicts by size and by maxTTL; SetWithTTL additionally records
// a per-entry deadline checked on read.
type Store struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

// NewStore creates a memory store holding at most size entries.
// maxTTL bounds the lifetime of every entry; zero keeps entries until evicted.
func NewStore(size int, maxTTL time.Duration) *Store {
	return &Store{
		lru: expirable.NewLRU[string, entry](size, nil, maxTTL),
		now: time.Now,
	}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close drops all entries.
func (s *Store) Close() { s.lru.Purge() }

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := s.lru.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.lru.Remove(key)
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a value without a per-entry deadline.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.lru.Add(key, entry{value: append([]byte(nil), value...)})
	return nil
}

// SetWithTTL stores a value that expires after ttl.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.lru.Add(key, e)
	return nil
}

// Del removes a key. Deleting a missing key is not an error.
func (s *Store) Del(_ context.Context, key string) error {
	s.lru.Remove(key)
	return nil
}

// Len reports the number of entries currently held, including expired ones not yet swept.
func (s *Store) Len() int { return s.lru.Len() }
