// Package retrieval turns a question into ranked chunks. The primary
// path is exact vector search; an optional keyword index can be fused
// in for term-sensitive queries.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/docdex/docdex/internal/document"
	"github.com/docdex/docdex/internal/embedding"
	"github.com/docdex/docdex/internal/store"
)

// Options configures one retrieval call.
type Options struct {
	TopK     int
	Region   string // filter, empty means any
	Category string // filter, empty means any

	// Fusion weights. Keyword fusion only applies when the retriever
	// has a keyword index and KeywordWeight is positive; otherwise
	// results are ranked purely by vector distance.
	VectorWeight  float32
	KeywordWeight float32
}

// DefaultOptions returns the standard retrieval settings.
func DefaultOptions() Options {
	return Options{
		TopK:          5,
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	}
}

// Result is one ranked chunk. Distance is squared Euclidean distance
// between query and chunk embeddings, so lower means more relevant.
// Combined is only populated on the hybrid path, where higher is
// better.
type Result struct {
	Chunk        document.Chunk
	Distance     float32
	KeywordScore float64
	Combined     float64
	Rank         int
}

// Retriever answers queries against a built store.
type Retriever struct {
	store   *store.Store
	embed   *embedding.Service
	keyword *KeywordIndex
}

// New creates a vector-only retriever.
func New(s *store.Store, embed *embedding.Service) *Retriever {
	return &Retriever{store: s, embed: embed}
}

// NewHybrid creates a retriever that fuses keyword relevance into the
// ranking. keyword may be nil, which degrades to vector-only.
func NewHybrid(s *store.Store, embed *embedding.Service, keyword *KeywordIndex) *Retriever {
	return &Retriever{store: s, embed: embed, keyword: keyword}
}

// Retrieve embeds the query and returns the top chunks. The query is
// cleaned with the same embedder that produced the stored vectors, so
// distances are comparable. Filters are applied after scoring against
// the whole corpus, which keeps the ranking stable: the results for
// k=5 are always a prefix of the results for k=10 under identical
// options.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if r.store.Len() == 0 {
		return nil, nil
	}

	queryVector, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Score every stored vector so post-filtering never starves the
	// result set.
	hits, err := r.store.Search(queryVector, r.store.Len())
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if !matchesFilters(h.Chunk, opts) {
			continue
		}
		results = append(results, Result{Chunk: h.Chunk, Distance: h.Score})
	}

	if r.keyword != nil && opts.KeywordWeight > 0 {
		results, err = r.fuseKeyword(query, results, opts)
		if err != nil {
			return nil, err
		}
	}

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	for i := range results {
		results[i].Rank = i
	}
	return results, nil
}

func matchesFilters(c document.Chunk, opts Options) bool {
	if opts.Region != "" && !strings.EqualFold(c.Region, opts.Region) {
		return false
	}
	if opts.Category != "" && !strings.EqualFold(c.Category, opts.Category) {
		return false
	}
	return true
}

// fuseKeyword reranks vector candidates by a weighted blend of vector
// similarity and keyword relevance. Vector distance is mapped into
// (0, 1] via 1/(1+d) and keyword scores are normalized against the
// best keyword hit, so both signals share a scale before weighting.
func (r *Retriever) fuseKeyword(query string, candidates []Result, opts Options) ([]Result, error) {
	total := opts.VectorWeight + opts.KeywordWeight
	if total == 0 {
		return candidates, nil
	}
	vw := float64(opts.VectorWeight / total)
	kw := float64(opts.KeywordWeight / total)

	keywordScores, err := r.keyword.Search(query, len(candidates))
	if err != nil {
		return nil, err
	}
	var maxScore float64
	for _, s := range keywordScores {
		if s > maxScore {
			maxScore = s
		}
	}

	for i := range candidates {
		vecScore := 1.0 / (1.0 + float64(candidates[i].Distance))
		kwScore := 0.0
		if maxScore > 0 {
			kwScore = keywordScores[candidates[i].Chunk.ChunkID] / maxScore
		}
		candidates[i].KeywordScore = kwScore
		candidates[i].Combined = vw*vecScore + kw*kwScore
	}

	// Stable sort keeps the vector ordering for equal blended scores.
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Combined > candidates[b].Combined
	})
	return candidates, nil
}
