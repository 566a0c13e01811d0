//go:build !cgo

// Package onnx provides local sentence embeddings via ONNX Runtime (requires CGO and the onnxruntime library).
package onnx

import (
	"context"
	"errors"

	"github.com/kailas-cloud/recommender/internal/domain"
)

// Config holds the local model settings.
type Config struct {
	ModelPath  string
	VocabPath  string
	Model      string
	Dimensions int
	MaxTokens  int
}

// Embedder stub type when built without CGO (see onnx.go for the real implementation).
type Embedder struct{}

// NewEmbedder returns an error when built without CGO (ONNX not available).
func NewEmbedder(_ Config) (*Embedder, error) {
	return nil, errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// Embed is never reachable: NewEmbedder always fails without CGO.
func (e *Embedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, domain.ErrEmbeddingProviderError
}

// HealthCheck always fails without CGO.
func (e *Embedder) HealthCheck(_ context.Context) error { return domain.ErrEmbeddingProviderError }

// Close is a no-op.
func (e *Embedder) Close() error { return nil }
