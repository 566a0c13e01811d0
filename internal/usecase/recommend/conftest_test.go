package recommend

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/recommender/internal/domain"
)

// memCache is an in-memory Cache that records writes.
type memCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	unavailable bool
	sets        int
	lastTTL     time.Duration
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) domain.CacheLookup {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return domain.CacheLookup{Status: domain.CacheUnavailable}
	}
	v, ok := c.entries[key]
	if !ok {
		return domain.CacheLookup{Status: domain.CacheMiss}
	}
	return domain.CacheLookup{Payload: v, Status: domain.CacheHit}
}

func (c *memCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.lastTTL = ttl
	if c.unavailable {
		return
	}
	c.entries[key] = payload
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

type mockEmbedder struct {
	vec     []float32
	err     error
	calls   atomic.Int32
	texts   []string
	mu      sync.Mutex
	release chan struct{} // when set, Embed blocks until closed
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return domain.EmbeddingResult{}, ctx.Err()
		}
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 3}, nil
}

type mockSearcher struct {
	hits       []domain.SearchHit
	err        error
	calls      atomic.Int32
	collection string
	limit      int
}

func (m *mockSearcher) Search(_ context.Context, collection string, _ []float32, limit int) ([]domain.SearchHit, error) {
	m.calls.Add(1)
	m.collection = collection
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

func catalogHits() []domain.SearchHit {
	return []domain.SearchHit{
		{ID: "1", Score: 0.912345, Payload: map[string]any{"prod_name": "Leather jacket", "colour_name": "Black"}},
		{ID: "2", Score: 0.80001, Payload: map[string]any{"prod_name": "Biker jacket"}},
		{ID: "3", Score: 0.7, Payload: map[string]any{"article_id": float64(108775015)}},
	}
}
