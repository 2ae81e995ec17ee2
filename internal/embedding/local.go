package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docdex/docdex/internal/config"
)

// LocalClient implements Client against a self-hosted
// sentence-transformers embedding server (e.g. all-MiniLM-L6-v2
// behind text-embeddings-inference, D=384).
type LocalClient struct {
	endpoint   string
	model      string
	dimensions int
	client     *http.Client
}

// localEmbedRequest is the request format for the embedding server
type localEmbedRequest struct {
	Inputs []string `json:"inputs"`
	Model  string   `json:"model,omitempty"`
}

// NewLocalClient creates a client for a local embedding server
func NewLocalClient(cfg *config.EmbeddingConfig) (*LocalClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("local embedding endpoint is required")
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = 384
	}

	return &LocalClient{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		dimensions: dimensions,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Embed generates an embedding for a single text
func (c *LocalClient) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts
func (c *LocalClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody, err := json.Marshal(localEmbedRequest{Inputs: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server returned status %d: %s", resp.StatusCode, string(body))
	}

	var embeddings [][]float32
	if err := json.Unmarshal(body, &embeddings); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddings))
	}
	for i, vec := range embeddings {
		if len(vec) != c.dimensions {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(vec), c.dimensions)
		}
	}

	return embeddings, nil
}

// Dimensions returns the dimension of the embeddings
func (c *LocalClient) Dimensions() int {
	return c.dimensions
}
