package respcache

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/recommender/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	mu       sync.Mutex
	pingErr  error
	getFn    func(ctx context.Context, key string) ([]byte, error)
	setFn    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	getCalls int
	setCalls int
	lastTTL  time.Duration
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.setCalls++
	m.lastTTL = ttl
	m.mu.Unlock()
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}
