package document

// Page is one page of extracted text from a source document.
// Pages are produced by an external PDF extractor and are immutable
// once loaded.
type Page struct {
	SourceID   string `json:"source"`
	PageNumber int    `json:"page"`
	Text       string `json:"text"`
}

// Chunk is a bounded span of normalized page text, the unit of
// embedding and retrieval. Region and Category default to "unknown"
// when they cannot be derived from the source name.
type Chunk struct {
	Text       string `json:"text"`
	SourceID   string `json:"source"`
	PageNumber int    `json:"page"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkID    string `json:"chunk_id"`
	Region     string `json:"region"`
	Category   string `json:"category"`
}
