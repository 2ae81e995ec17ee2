package retrieval

import (
	"context"
	"testing"

	"github.com/docdex/docdex/internal/document"
	"github.com/docdex/docdex/internal/embedding"
	"github.com/docdex/docdex/internal/store"
)

// stubEmbedder maps known texts to fixed vectors so ranking is fully
// deterministic.
type stubEmbedder struct {
	vectors map[string][]float32
	dim     int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, s.dim), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dim }

func buildTestRetriever(t *testing.T) (*Retriever, []document.Chunk) {
	t.Helper()

	chunks := []document.Chunk{
		{Text: "Metformin 500mg is a tier 1 generic drug.", SourceID: "nc-formulary.pdf", PageNumber: 1, ChunkIndex: 0, ChunkID: "nc-formulary-p1-c0", Region: "NC", Category: "formulary"},
		{Text: "Specialist visits require a $40 copay.", SourceID: "tx-summary.pdf", PageNumber: 2, ChunkIndex: 0, ChunkID: "tx-summary-p2-c0", Region: "TX", Category: "summary"},
		{Text: "In-network providers are listed by county.", SourceID: "nc-network.pdf", PageNumber: 3, ChunkIndex: 0, ChunkID: "nc-network-p3-c0", Region: "NC", Category: "network"},
		{Text: "How do I appeal a denied claim?", SourceID: "faq.pdf", PageNumber: 1, ChunkIndex: 0, ChunkID: "faq-p1-c0", Region: "unknown", Category: "faq"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0.9, 0.1, 0},
	}

	s, err := store.Build(vectors, chunks)
	if err != nil {
		t.Fatalf("store.Build() error = %v", err)
	}

	embedder := &stubEmbedder{
		dim: 3,
		vectors: map[string][]float32{
			"metformin coverage": {1, 0, 0},
			"copay amounts":      {0, 1, 0},
		},
	}
	svc := embedding.NewServiceWithClient(embedder, 32)
	return New(s, svc), chunks
}

func TestRetrieveOrdering(t *testing.T) {
	r, _ := buildTestRetriever(t)

	results, err := r.Retrieve(context.Background(), "metformin coverage", Options{TopK: 4})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Retrieve() returned %d results, want 4", len(results))
	}
	if results[0].Chunk.ChunkID != "nc-formulary-p1-c0" {
		t.Errorf("top result = %s, want nc-formulary-p1-c0", results[0].Chunk.ChunkID)
	}
	if results[0].Distance != 0 {
		t.Errorf("top result distance = %v, want 0", results[0].Distance)
	}
	for i := range results {
		if results[i].Rank != i {
			t.Errorf("result %d has rank %d", i, results[i].Rank)
		}
		if i > 0 && results[i].Distance < results[i-1].Distance {
			t.Errorf("distances not ascending at rank %d", i)
		}
	}
}

func TestRetrieveStablePrefix(t *testing.T) {
	r, _ := buildTestRetriever(t)
	ctx := context.Background()

	small, err := r.Retrieve(ctx, "metformin coverage", Options{TopK: 2})
	if err != nil {
		t.Fatalf("Retrieve(k=2) error = %v", err)
	}
	large, err := r.Retrieve(ctx, "metformin coverage", Options{TopK: 4})
	if err != nil {
		t.Fatalf("Retrieve(k=4) error = %v", err)
	}
	if len(small) != 2 {
		t.Fatalf("Retrieve(k=2) returned %d results", len(small))
	}
	for i := range small {
		if small[i].Chunk.ChunkID != large[i].Chunk.ChunkID {
			t.Errorf("rank %d differs: %s vs %s", i, small[i].Chunk.ChunkID, large[i].Chunk.ChunkID)
		}
	}
}

func TestRetrieveFilters(t *testing.T) {
	r, _ := buildTestRetriever(t)
	ctx := context.Background()

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "region filter",
			opts: Options{TopK: 10, Region: "NC"},
			want: []string{"nc-formulary-p1-c0", "nc-network-p3-c0"},
		},
		{
			name: "category filter",
			opts: Options{TopK: 10, Category: "faq"},
			want: []string{"faq-p1-c0"},
		},
		{
			name: "region and category",
			opts: Options{TopK: 10, Region: "NC", Category: "network"},
			want: []string{"nc-network-p3-c0"},
		},
		{
			name: "case insensitive region",
			opts: Options{TopK: 10, Region: "nc", Category: "formulary"},
			want: []string{"nc-formulary-p1-c0"},
		},
		{
			name: "no match",
			opts: Options{TopK: 10, Region: "CA"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := r.Retrieve(ctx, "metformin coverage", tt.opts)
			if err != nil {
				t.Fatalf("Retrieve() error = %v", err)
			}
			if len(results) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.want))
			}
			for i, id := range tt.want {
				if results[i].Chunk.ChunkID != id {
					t.Errorf("rank %d = %s, want %s", i, results[i].Chunk.ChunkID, id)
				}
			}
		})
	}
}

func TestRetrieveEmptyStore(t *testing.T) {
	s, err := store.Build(nil, nil)
	if err != nil {
		t.Fatalf("store.Build() error = %v", err)
	}
	svc := embedding.NewServiceWithClient(&stubEmbedder{dim: 3}, 32)
	r := New(s, svc)

	results, err := r.Retrieve(context.Background(), "anything", Options{TopK: 5})
	if err != nil {
		t.Fatalf("Retrieve() on empty store error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Retrieve() on empty store returned %d results", len(results))
	}
}

func TestRetrieveEmptyQuery(t *testing.T) {
	r, _ := buildTestRetriever(t)
	if _, err := r.Retrieve(context.Background(), "   ", Options{TopK: 5}); err == nil {
		t.Fatal("Retrieve() with blank query succeeded, want error")
	}
}

func TestHybridFusion(t *testing.T) {
	r, chunks := buildTestRetriever(t)

	idx, err := NewMemoryKeywordIndex()
	if err != nil {
		t.Fatalf("NewMemoryKeywordIndex() error = %v", err)
	}
	defer idx.Close()
	if err := idx.IndexChunks(chunks); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
	r.keyword = idx

	// "copay" appears only in the TX summary chunk. With a strong
	// keyword weight that chunk must outrank the vector-nearest one.
	results, err := r.Retrieve(context.Background(), "copay", Options{
		TopK:          2,
		VectorWeight:  0.1,
		KeywordWeight: 0.9,
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Retrieve() returned no results")
	}
	if results[0].Chunk.ChunkID != "tx-summary-p2-c0" {
		t.Errorf("top hybrid result = %s, want tx-summary-p2-c0", results[0].Chunk.ChunkID)
	}
	if results[0].KeywordScore != 1.0 {
		t.Errorf("top keyword score = %v, want 1.0", results[0].KeywordScore)
	}
}
