// Package store implements the persistent similarity index: an exact,
// linear-scan squared-Euclidean index over embedding vectors plus a
// positionally parallel metadata table. Corpora stay in the low tens
// of thousands of chunks, so a flat scan per query is sufficient.
package store

import (
	"errors"
	"fmt"
	"sort"

	"github.com/docdex/docdex/internal/document"
	"github.com/docdex/docdex/internal/embedding"
)

var (
	// ErrDimensionMismatch reports vectors of inconsistent length or a
	// vector/metadata count disagreement at build time. Always fatal.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrCorruptStore reports a vector/metadata count disagreement
	// after loading the persisted pair. The store is refused; the
	// caller must rebuild.
	ErrCorruptStore = errors.New("corrupt vector store")
)

// Store owns the vector index and its parallel metadata table.
// Position i in the index corresponds to position i in the metadata,
// by insertion order. A Store is immutable once built or loaded, so
// concurrent readers need no locking.
type Store struct {
	vectors [][]float32
	meta    []document.Chunk
	dim     int
}

// Hit is one nearest-neighbor search result. Score is squared
// Euclidean distance: lower means more similar, the opposite sense of
// cosine similarity.
type Hit struct {
	Chunk document.Chunk
	Score float32
	Rank  int
}

// Build creates a store from parallel vector and metadata slices. All
// vectors must share one dimension and the slices must have equal
// length; otherwise the build fails with ErrDimensionMismatch.
func Build(vectors [][]float32, meta []document.Chunk) (*Store, error) {
	if len(vectors) != len(meta) {
		return nil, fmt.Errorf("%w: %d vectors but %d metadata records",
			ErrDimensionMismatch, len(vectors), len(meta))
	}

	dim := 0
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: vector %d is empty", ErrDimensionMismatch, i)
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d",
				ErrDimensionMismatch, i, len(v), dim)
		}
	}

	return &Store{vectors: vectors, meta: meta, dim: dim}, nil
}

// Len returns the number of stored vectors.
func (s *Store) Len() int {
	return len(s.vectors)
}

// Dimension returns the vector dimension D, or 0 for an empty store.
func (s *Store) Dimension() int {
	return s.dim
}

// Metadata returns the chunk record at index i.
func (s *Store) Metadata(i int) document.Chunk {
	return s.meta[i]
}

// Search returns the k entries nearest to the query vector by squared
// Euclidean distance, ties broken by insertion order. If k exceeds the
// number of stored vectors, all of them are returned ranked; an empty
// store yields an empty result, never an error.
func (s *Store) Search(query []float32, k int) ([]Hit, error) {
	if len(s.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			ErrDimensionMismatch, len(query), s.dim)
	}

	type scored struct {
		idx  int
		dist float32
	}
	all := make([]scored, len(s.vectors))
	for i, v := range s.vectors {
		dist, err := embedding.SquaredL2(v, query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
		}
		all[i] = scored{idx: i, dist: dist}
	}

	// Stable sort keeps insertion order for equal distances.
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].dist < all[b].dist
	})

	if k > len(all) {
		k = len(all)
	}
	hits := make([]Hit, k)
	for rank := 0; rank < k; rank++ {
		hits[rank] = Hit{
			Chunk: s.meta[all[rank].idx],
			Score: all[rank].dist,
			Rank:  rank,
		}
	}
	return hits, nil
}
