package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the service answers but without its cache.
	Degraded Status = "degraded"
	// Unhealthy indicates live recommendations cannot be computed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Cache state as reported on the liveness endpoint.
const (
	CacheActive   = "active"
	CacheInactive = "inactive"
)

// Component names used in Report.Checks.
const (
	CheckCache     = "cache"
	CheckVector    = "vector"
	CheckEmbedding = "embedding"
)

// DefaultCheckTimeout bounds each probe.
const DefaultCheckTimeout = 2 * time.Second

// Liveness is the process status: always alive, plus cache state and model.
type Liveness struct {
	Status     string
	RedisCache string
	Model      string
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache     CacheProbe
	vector    VectorPinger
	embedding EmbeddingChecker
	model     string
	timeout   time.Duration
}

// New creates a Service. vector and embedding can be nil.
func New(cache CacheProbe, vector VectorPinger, embedding EmbeddingChecker, model string) *Service {
	return &Service{
		cache:     cache,
		vector:    vector,
		embedding: embedding,
		model:     model,
		timeout:   DefaultCheckTimeout,
	}
}

// Liveness reports process status, cache availability and the configured model.
func (s *Service) Liveness(ctx context.Context) Liveness {
	state := CacheInactive
	if s.cacheUp(ctx) {
		state = CacheActive
	}
	return Liveness{Status: "alive", RedisCache: state, Model: s.model}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.cacheUp(ctx) {
		checks[CheckCache] = CheckOK
	} else {
		checks[CheckCache] = CheckError
	}

	if s.vector != nil {
		checks[CheckVector] = s.probe(ctx, s.vector.Ping)
	}
	if s.embedding != nil {
		checks[CheckEmbedding] = s.probe(ctx, s.embedding.HealthCheck)
	}

	status := Healthy
	if checks[CheckCache] == CheckError {
		status = Degraded
	}
	if checks[CheckVector] == CheckError || checks[CheckEmbedding] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) cacheUp(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.cache.IsAvailable(ctx)
}

func (s *Service) probe(ctx context.Context, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
