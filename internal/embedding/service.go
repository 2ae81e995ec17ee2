// Package embedding wraps external embedding models behind a batching
// service. Batch size is a throughput knob only: any batch size yields
// the same per-text vector as embedding each text alone.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/docdex/docdex/internal/config"
)

// ErrUnavailable reports that the external embedding model is
// unreachable or erroring. Callers of an ingestion run abort on it;
// a partially embedded batch is never committed to the vector store.
var ErrUnavailable = errors.New("embedding model unavailable")

// Client is the interface for embedding API clients
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Service provides embedding generation functionality
type Service struct {
	client    Client
	batchSize int
}

// NewService creates a new embedding service
func NewService(cfg *config.EmbeddingConfig) (*Service, error) {
	var client Client
	var err error

	switch cfg.Provider {
	case "openai":
		client, err = NewOpenAIClient(cfg)
	case "local":
		client, err = NewLocalClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	return NewServiceWithClient(client, cfg.BatchSize), nil
}

// NewServiceWithClient wraps an existing client; used by tests and by
// callers that manage their own provider.
func NewServiceWithClient(client Client, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Service{client: client, batchSize: batchSize}
}

// Embed generates an embedding for a single text
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	vec, err := s.client.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts, slicing the
// input through the configured batch size. The output is positionally
// parallel to the input.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += s.batchSize {
		end := i + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := s.client.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d-%d: %v", ErrUnavailable, i, end, err)
		}
		if len(embeddings) != end-i {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrUnavailable, end-i, len(embeddings))
		}
		results = append(results, embeddings...)
	}

	return results, nil
}

// Dimensions returns the dimension of the embeddings
func (s *Service) Dimensions() int {
	return s.client.Dimensions()
}

// BatchSize returns the configured sub-batch size.
func (s *Service) BatchSize() int {
	return s.batchSize
}

// SquaredL2 computes squared Euclidean distance between two vectors.
// Lower means more similar; the opposite sense of cosine similarity.
func SquaredL2(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d vs %d", len(a), len(b))
	}

	var sum float32
	for i := 0; i < len(a); i++ {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum, nil
}
