package domain

import (
	"context"
	"sync/atomic"
)

type embeddingUsageKey struct{}

// EmbeddingUsage counts the tokens spent embedding the query of one request.
// The recommendation may finish on a detached computation after the handler
// has given up, so the counters are atomic.
type EmbeddingUsage struct {
	tokens atomic.Int64
	calls  atomic.Int32
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector, or nil if none was attached.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records one embedding call. n is 0 when the vector came from the embedding cache.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.tokens.Add(int64(n))
	u.calls.Add(1)
}

// Tokens returns the tokens recorded so far.
func (u *EmbeddingUsage) Tokens() int {
	if u == nil {
		return 0
	}
	return int(u.tokens.Load())
}

// Embedded reports whether the query was embedded for this request.
// Responses served from the response cache never are.
func (u *EmbeddingUsage) Embedded() bool {
	return u != nil && u.calls.Load() > 0
}
