package chi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/domain/query"
	healthuc "github.com/kailas-cloud/recommender/internal/usecase/health"
	"github.com/kailas-cloud/recommender/internal/usecase/recommend"
)

// --- fakeCache ---

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	down    bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(_ context.Context, key string) domain.CacheLookup {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return domain.CacheLookup{Status: domain.CacheUnavailable}
	}
	v, ok := c.entries[key]
	if !ok {
		return domain.CacheLookup{Status: domain.CacheMiss}
	}
	return domain.CacheLookup{Payload: v, Status: domain.CacheHit}
}

func (c *fakeCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return
	}
	c.entries[key] = payload
	c.ttls[key] = ttl
}

func (c *fakeCache) IsAvailable(context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.down
}

func (c *fakeCache) setDown(down bool) {
	c.mu.Lock()
	c.down = down
	c.mu.Unlock()
}

func (c *fakeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// --- fakeEmbedder ---

type fakeEmbedder struct {
	mu        sync.Mutex
	calls     int
	tokens    int
	err       error
	healthErr error
}

func (e *fakeEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: e.tokens,
		TotalTokens:  e.tokens,
	}, nil
}

func (e *fakeEmbedder) HealthCheck(context.Context) error { return e.healthErr }

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// --- fakeSearcher ---

type fakeSearcher struct {
	mu        sync.Mutex
	hits      []domain.SearchHit
	err       error
	calls     int
	lastLimit int
}

func (s *fakeSearcher) Search(_ context.Context, _ string, _ []float32, limit int) ([]domain.SearchHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func (s *fakeSearcher) Ping(context.Context) error { return nil }

func (s *fakeSearcher) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func catalogHits() []domain.SearchHit {
	return []domain.SearchHit{
		{ID: "108775015", Score: 0.91234, Payload: map[string]any{"prod_name": "Strap dress", "colour_group_name": "Red"}},
		{ID: "108775044", Score: 0.87, Payload: map[string]any{"prod_name": "Jersey dress"}},
		{ID: "110065001", Score: 0.5, Payload: map[string]any{"colour_group_name": "Black"}},
	}
}

// --- test environment ---

const testModel = "all-MiniLM-L6-v2"

type testEnv struct {
	handler  http.Handler
	cache    *fakeCache
	embedder *fakeEmbedder
	searcher *fakeSearcher
}

func newTestEnv(t *testing.T, apiKeys ...string) *testEnv {
	t.Helper()

	cache := newFakeCache()
	embedder := &fakeEmbedder{tokens: 4}
	searcher := &fakeSearcher{hits: catalogHits()}

	rec := recommend.New(cache, embedder, searcher, recommend.Options{Collection: "hm_items"}, zap.NewNop())
	health := healthuc.New(cache, searcher, embedder, testModel)
	srv := NewServer(rec, health, query.DefaultLimits(), zap.NewNop())

	return &testEnv{
		handler:  NewRouter(srv, apiKeys, zap.NewNop()),
		cache:    cache,
		embedder: embedder,
		searcher: searcher,
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}
