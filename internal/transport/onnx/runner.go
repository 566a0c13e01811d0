package onnx

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/metrics"
)

// session runs the model over one tokenized input and returns last_hidden_state.
type session interface {
	Run(inputIDs, attentionMask, tokenTypeIDs []int64) ([]float32, error)
	Destroy() error
}

// runner serializes inference over a single session. The session is guarded by
// a one-slot semaphore so that queued callers give up when their context ends.
type runner struct {
	sess       session // nil once closed
	slot       chan struct{}
	tokenizer  Tokenizer
	model      string
	dimensions int
	maxTokens  int
}

func newRunner(sess session, tokenizer Tokenizer, model string, dimensions, maxTokens int) *runner {
	return &runner{
		sess:       sess,
		slot:       make(chan struct{}, 1),
		tokenizer:  tokenizer,
		model:      model,
		dimensions: dimensions,
		maxTokens:  maxTokens,
	}
}

func (r *runner) acquire(ctx context.Context) error {
	select {
	case r.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	// Both cases may be ready at once; an expired caller must not run.
	if err := ctx.Err(); err != nil {
		r.release()
		return err
	}
	return nil
}

func (r *runner) release() { <-r.slot }

func (r *runner) embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	inputIDs, attentionMask, tokenTypeIDs := r.tokenizer.Tokenize(text, r.maxTokens)

	if err := r.acquire(ctx); err != nil {
		metrics.EmbeddingErrorsTotal.WithLabelValues("onnx", r.model, "timeout").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("wait for onnx session: %w: %w", err, domain.ErrEmbeddingProviderError)
	}
	defer r.release()

	if r.sess == nil {
		return domain.EmbeddingResult{}, fmt.Errorf("onnx session closed: %w", domain.ErrEmbeddingProviderError)
	}

	start := time.Now()
	hidden, err := r.sess.Run(inputIDs, attentionMask, tokenTypeIDs)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("onnx", r.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues("onnx", r.model, "inference").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("inference failed: %w: %w", err, domain.ErrEmbeddingProviderError)
	}

	vec := meanPool(hidden, attentionMask, r.dimensions)
	normalizeL2(vec)

	metrics.EmbeddingRequestsTotal.WithLabelValues("onnx", r.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues("onnx", r.model).Observe(time.Since(start).Seconds())

	var tokens int
	for _, m := range attentionMask {
		tokens += int(m)
	}
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: tokens, TotalTokens: tokens}, nil
}

func (r *runner) healthCheck(ctx context.Context) error {
	if err := r.acquire(ctx); err != nil {
		return fmt.Errorf("wait for onnx session: %w: %w", err, domain.ErrEmbeddingProviderError)
	}
	defer r.release()
	if r.sess == nil {
		return fmt.Errorf("onnx session closed: %w", domain.ErrEmbeddingProviderError)
	}
	return nil
}

// close waits for in-flight inference, then destroys the session. Safe to call twice.
func (r *runner) close() error {
	r.slot <- struct{}{}
	defer r.release()

	if r.sess == nil {
		return nil
	}
	err := r.sess.Destroy()
	r.sess = nil
	if err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}
