// Package tag attaches provenance metadata to chunk text: the
// originating document and page, the jurisdiction (US state) and
// document category derived from the source name, and a stable chunk
// identifier used for idempotent re-indexing.
package tag

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docdex/docdex/internal/document"
)

// Unknown is the fallback label when region or category cannot be
// derived from the source name. Unmatched sources are never an error.
const Unknown = "unknown"

// PageError reports a malformed page record rejected at the tagging
// boundary. The page is skipped; the rest of the batch proceeds.
type PageError struct {
	SourceID   string
	PageNumber int
	Reason     string
}

func (e *PageError) Error() string {
	return fmt.Sprintf("invalid page %q page %d: %s", e.SourceID, e.PageNumber, e.Reason)
}

// CategoryRule maps filename keywords to a category label. Rules are
// evaluated in order and the first match wins, so overlapping keyword
// sets (e.g. "coverage" in both formulary and summary documents)
// resolve by explicit priority rather than incidental code order.
type CategoryRule struct {
	Label    string
	Keywords []string
}

// DefaultCategoryRules orders coverage/drug keywords before
// network/provider keywords before generic summary keywords.
var DefaultCategoryRules = []CategoryRule{
	{Label: "formulary", Keywords: []string{"formulary", "drug", "medication", "tier"}},
	{Label: "faq", Keywords: []string{"faq", "question", "answer"}},
	{Label: "network", Keywords: []string{"network", "provider", "doctor", "physician"}},
	{Label: "summary", Keywords: []string{"summary", "benefit", "coverage"}},
}

// Tagger derives chunk metadata from source names. The zero value is
// not usable; construct with New.
type Tagger struct {
	rules []CategoryRule
}

// New returns a Tagger with the given category rules, or the defaults
// when none are supplied.
func New(rules []CategoryRule) *Tagger {
	if len(rules) == 0 {
		rules = DefaultCategoryRules
	}
	return &Tagger{rules: rules}
}

// TagPage turns the chunk strings of one page into Chunk records,
// in order. It returns a *PageError when the page record is missing
// required fields; callers skip such pages and continue.
func (t *Tagger) TagPage(page document.Page, chunks []string) ([]document.Chunk, error) {
	if strings.TrimSpace(page.SourceID) == "" {
		return nil, &PageError{SourceID: page.SourceID, PageNumber: page.PageNumber, Reason: "missing source id"}
	}
	if page.PageNumber < 1 {
		return nil, &PageError{SourceID: page.SourceID, PageNumber: page.PageNumber, Reason: "page number must be >= 1"}
	}

	region := RegionFromSource(page.SourceID)
	category := t.CategoryFromSource(page.SourceID)

	tagged := make([]document.Chunk, 0, len(chunks))
	for i, text := range chunks {
		tagged = append(tagged, document.Chunk{
			Text:       text,
			SourceID:   page.SourceID,
			PageNumber: page.PageNumber,
			ChunkIndex: i,
			ChunkID:    ChunkID(page.SourceID, page.PageNumber, i),
			Region:     region,
			Category:   category,
		})
	}
	return tagged, nil
}

// CategoryFromSource classifies a source name through the ordered
// rules; case-insensitive substring match, first hit wins.
func (t *Tagger) CategoryFromSource(source string) string {
	lower := strings.ToLower(source)
	for _, rule := range t.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Label
			}
		}
	}
	return Unknown
}

var idSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// ChunkID builds the stable identifier {truncatedSource}-p{page}-c{index}.
// Re-running over identical input reproduces identical ids, which makes
// re-indexing idempotent.
func ChunkID(source string, page, index int) string {
	prefix := strings.TrimSuffix(strings.TrimSuffix(source, ".pdf"), ".PDF")
	if len(prefix) > 20 {
		prefix = prefix[:20]
	}
	prefix = idSanitizer.ReplaceAllString(prefix, "-")
	return fmt.Sprintf("%s-p%d-c%d", prefix, page, index)
}

// Summary counts tagged chunks per region and category.
type Summary struct {
	Total      int
	Regions    map[string]int
	Categories map[string]int
}

// Summarize aggregates metadata counts across chunks, for ingest
// reporting and validation.
func Summarize(chunks []document.Chunk) Summary {
	s := Summary{
		Total:      len(chunks),
		Regions:    make(map[string]int),
		Categories: make(map[string]int),
	}
	for _, c := range chunks {
		s.Regions[c.Region]++
		s.Categories[c.Category]++
	}
	return s
}
