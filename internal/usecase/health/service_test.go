package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockCache struct {
	available bool
}

func (m *mockCache) IsAvailable(_ context.Context) bool { return m.available }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestLiveness(t *testing.T) {
	tests := []struct {
		name  string
		cache CacheProbe
		want  string
	}{
		{"cache up", &mockCache{available: true}, CacheActive},
		{"cache down", &mockCache{available: false}, CacheInactive},
		{"no cache", nil, CacheInactive},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := New(tc.cache, nil, nil, "all-MiniLM-L6-v2")
			l := svc.Liveness(context.Background())
			if l.Status != "alive" {
				t.Errorf("expected alive, got %q", l.Status)
			}
			if l.RedisCache != tc.want {
				t.Errorf("expected cache %q, got %q", tc.want, l.RedisCache)
			}
			if l.Model != "all-MiniLM-L6-v2" {
				t.Errorf("unexpected model %q", l.Model)
			}
		})
	}
}

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockCache{available: true}, &mockPinger{}, &mockEmbeddingChecker{}, "m")
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{CheckCache, CheckVector, CheckEmbedding} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_CacheDownIsDegraded(t *testing.T) {
	svc := New(&mockCache{}, &mockPinger{}, &mockEmbeddingChecker{}, "m")
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[CheckCache] != CheckError {
		t.Errorf("expected cache %q, got %q", CheckError, r.Checks[CheckCache])
	}
}

func TestCheck_VectorDownIsUnhealthy(t *testing.T) {
	svc := New(&mockCache{}, &mockPinger{err: errors.New("conn refused")}, &mockEmbeddingChecker{}, "m")
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[CheckVector] != CheckError {
		t.Errorf("expected vector %q, got %q", CheckError, r.Checks[CheckVector])
	}
}

func TestCheck_EmbeddingDownIsUnhealthy(t *testing.T) {
	svc := New(&mockCache{available: true}, &mockPinger{}, &mockEmbeddingChecker{err: errors.New("timeout")}, "m")
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[CheckEmbedding] != CheckError {
		t.Errorf("expected embedding %q, got %q", CheckError, r.Checks[CheckEmbedding])
	}
}

func TestCheck_OptionalComponents(t *testing.T) {
	svc := New(&mockCache{available: true}, nil, nil, "m")
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks[CheckVector]; ok {
		t.Error("vector check should be absent when no pinger is configured")
	}
	if _, ok := r.Checks[CheckEmbedding]; ok {
		t.Error("embedding check should be absent when no checker is configured")
	}
}
