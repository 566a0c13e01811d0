//go:build cgo

// Package onnx provides local sentence embeddings via ONNX Runtime (requires CGO and the onnxruntime library).
package onnx

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/kailas-cloud/recommender/internal/domain"
)

// Config holds the local model settings.
type Config struct {
	ModelPath  string
	VocabPath  string // empty falls back to HashTokenizer
	Model      string
	Dimensions int
	MaxTokens  int
}

// Embedder runs a sentence-transformers model exported to ONNX: mean pooling over
// last_hidden_state followed by L2 normalization.
type Embedder struct {
	r *runner
}

// ortSession owns the ONNX session and its pre-allocated tensors.
// Run overwrites the inputs and returns the output buffer.
type ortSession struct {
	session             *ort.AdvancedSession
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
}

func (s *ortSession) Run(inputIDs, attentionMask, tokenTypeIDs []int64) ([]float32, error) {
	copy(s.inputIDsTensor.GetData(), inputIDs)
	copy(s.attentionMaskTensor.GetData(), attentionMask)
	copy(s.tokenTypeIDsTensor.GetData(), tokenTypeIDs)
	if err := s.session.Run(); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by runner
	}
	return s.outputTensor.GetData(), nil
}

func (s *ortSession) Destroy() error {
	err := s.session.Destroy()
	for _, t := range []interface{ Destroy() error }{
		s.inputIDsTensor, s.attentionMaskTensor, s.tokenTypeIDsTensor, s.outputTensor,
	} {
		_ = t.Destroy()
	}
	return err //nolint:wrapcheck // wrapped by runner
}

// NewEmbedder loads the model and allocates the session tensors.
func NewEmbedder(cfg Config) (*Embedder, error) {
	var tokenizer Tokenizer = HashTokenizer{}
	if cfg.VocabPath != "" {
		wp, err := LoadVocab(cfg.VocabPath)
		if err != nil {
			return nil, err
		}
		tokenizer = wp
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	seq := int64(cfg.MaxTokens)
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", cfg.MaxTokens)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, seq), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, seq), attentionMask)
	if err != nil {
		_ = inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, seq), tokenTypeIDs)
	if err != nil {
		_ = inputIDsTensor.Destroy()
		_ = attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seq, int64(cfg.Dimensions)))
	if err != nil {
		_ = inputIDsTensor.Destroy()
		_ = attentionMaskTensor.Destroy()
		_ = tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		_ = inputIDsTensor.Destroy()
		_ = attentionMaskTensor.Destroy()
		_ = tokenTypeIDsTensor.Destroy()
		_ = outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	sess := &ortSession{
		session:             session,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}
	return &Embedder{r: newRunner(sess, tokenizer, cfg.Model, cfg.Dimensions, cfg.MaxTokens)}, nil
}

// Embed implements domain.Embedder. Inference is serialized over the shared session;
// a caller still queued when ctx ends gets ErrEmbeddingProviderError.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return e.r.embed(ctx, text)
}

// HealthCheck reports whether the session is still loaded.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	return e.r.healthCheck(ctx)
}

// Close destroys the session and tensors.
func (e *Embedder) Close() error {
	return e.r.close()
}
