package retrieval

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/docdex/docdex/internal/document"
)

// KeywordIndex is a full-text index over chunk text, keyed by chunk
// ID. It supplements vector retrieval for queries that hinge on exact
// terms such as drug names or plan codes.
type KeywordIndex struct {
	index bleve.Index
}

// CreateKeywordIndex resets dir and builds a fresh on-disk index.
func CreateKeywordIndex(dir string) (*KeywordIndex, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("reset keyword index dir: %w", err)
	}
	index, err := bleve.New(dir, buildKeywordMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &KeywordIndex{index: index}, nil
}

// OpenKeywordIndex opens an existing on-disk index.
func OpenKeywordIndex(dir string) (*KeywordIndex, error) {
	index, err := bleve.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open keyword index: %w", err)
	}
	return &KeywordIndex{index: index}, nil
}

// NewMemoryKeywordIndex builds an in-memory index, used in tests and
// for ephemeral search sessions.
func NewMemoryKeywordIndex() (*KeywordIndex, error) {
	index, err := bleve.NewMemOnly(buildKeywordMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &KeywordIndex{index: index}, nil
}

type keywordDoc struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Region   string `json:"region"`
	Category string `json:"category"`
}

// IndexChunk adds one chunk to the index under its chunk ID.
func (k *KeywordIndex) IndexChunk(c document.Chunk) error {
	return k.index.Index(c.ChunkID, keywordDoc{
		Text:     c.Text,
		Source:   c.SourceID,
		Region:   c.Region,
		Category: c.Category,
	})
}

// IndexChunks adds chunks in a single batch.
func (k *KeywordIndex) IndexChunks(chunks []document.Chunk) error {
	batch := k.index.NewBatch()
	for _, c := range chunks {
		if err := batch.Index(c.ChunkID, keywordDoc{
			Text:     c.Text,
			Source:   c.SourceID,
			Region:   c.Region,
			Category: c.Category,
		}); err != nil {
			return fmt.Errorf("index chunk %s: %w", c.ChunkID, err)
		}
	}
	return k.index.Batch(batch)
}

// Search returns up to topK chunk IDs with bleve relevance scores,
// best first.
func (k *KeywordIndex) Search(query string, topK int) (map[string]float64, error) {
	if topK <= 0 {
		topK = 10
	}
	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("text")

	req := bleve.NewSearchRequestOptions(matchQuery, topK, 0, false)
	res, err := k.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	scores := make(map[string]float64, len(res.Hits))
	for _, hit := range res.Hits {
		scores[hit.ID] = hit.Score
	}
	return scores, nil
}

// Close releases the underlying index.
func (k *KeywordIndex) Close() error {
	return k.index.Close()
}

func buildKeywordMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "text"

	docMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Store = false
	textField.Index = true
	docMapping.AddFieldMappingsAt("text", textField)

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Store = true
	sourceField.Index = true
	docMapping.AddFieldMappingsAt("source", sourceField)

	regionField := bleve.NewTextFieldMapping()
	regionField.Store = true
	regionField.Index = true
	regionField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("region", regionField)

	categoryField := bleve.NewTextFieldMapping()
	categoryField.Store = true
	categoryField.Index = true
	categoryField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("category", categoryField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
