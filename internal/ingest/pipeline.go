// Package ingest runs the document pipeline: clean page text, split it
// into overlapping chunks, tag each chunk with provenance, embed the
// chunk texts and build the vector store. A run is all-or-nothing at
// the corpus level: embedding failure aborts the run and leaves any
// previously persisted store untouched.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/docdex/docdex/internal/catalog"
	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/document"
	"github.com/docdex/docdex/internal/embedding"
	"github.com/docdex/docdex/internal/normalize"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/internal/tag"
)

// Pipeline wires the processing stages together.
type Pipeline struct {
	normOpts normalize.Options
	splitter *chunk.Splitter
	tagger   *tag.Tagger
	embed    *embedding.Service
	workers  int
	logger   *log.Logger
	progress ProgressReporter
}

// Result holds the output of one pipeline run, ready to persist.
type Result struct {
	Store        *store.Store
	Chunks       []document.Chunk
	Sources      []catalog.SourceRecord
	Pages        int
	SkippedPages int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// New builds a pipeline from configuration. The embedding service is
// passed in so commands can share one client.
func New(cfg *config.Config, embed *embedding.Service, logger *log.Logger) (*Pipeline, error) {
	splitter, err := chunk.NewSplitter(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	workers := cfg.Ingest.MaxWorkers
	if workers <= 0 {
		workers = 4
	}
	return &Pipeline{
		normOpts: normalize.Options{
			StripBoilerplate: cfg.Normalize.StripBoilerplateEnabled(),
			HeaderPatterns:   cfg.Normalize.HeaderPatterns,
		},
		splitter: splitter,
		tagger:   tag.New(tag.DefaultCategoryRules),
		embed:    embed,
		workers:  workers,
		logger:   logger,
	}, nil
}

// SetProgress attaches a progress reporter. Nil disables reporting.
func (p *Pipeline) SetProgress(reporter ProgressReporter) {
	p.progress = reporter
}

type pageOutput struct {
	chunks  []document.Chunk
	skipped bool
}

// Run processes pages into a built, in-memory store. Pages that fail
// structural validation are skipped and logged; any embedding error
// aborts the whole run.
func (p *Pipeline) Run(ctx context.Context, pages []document.Page) (*Result, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to ingest")
	}
	startedAt := time.Now()

	outputs, skipped, err := p.processPages(ctx, pages)
	if err != nil {
		return nil, err
	}

	// Flatten in page order so chunk positions are reproducible
	// across runs regardless of worker scheduling.
	var chunks []document.Chunk
	for _, out := range outputs {
		chunks = append(chunks, out.chunks...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks produced from %d pages", len(pages))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}

	s, err := store.Build(vectors, chunks)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}

	return &Result{
		Store:        s,
		Chunks:       chunks,
		Sources:      p.sourceRecords(pages, outputs),
		Pages:        len(pages),
		SkippedPages: skipped,
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
	}, nil
}

// embedTexts embeds all chunk texts, one service-sized batch at a
// time so the progress reporter ticks as the corpus is embedded.
func (p *Pipeline) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	batch := p.embed.BatchSize()
	if batch <= 0 || batch > len(texts) {
		batch = len(texts)
	}

	if p.progress != nil {
		p.progress.Start((len(texts)+batch-1)/batch, "embedding chunks")
		defer p.progress.Finish()
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batch {
		end := start + batch
		if end > len(texts) {
			end = len(texts)
		}
		vs, err := p.embed.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vs...)
		if p.progress != nil {
			p.progress.Increment()
		}
	}
	return vectors, nil
}

// processPages cleans, splits and tags pages concurrently, collecting
// results by page index.
func (p *Pipeline) processPages(ctx context.Context, pages []document.Page) ([]pageOutput, int, error) {
	if p.progress != nil {
		p.progress.Start(len(pages), "processing pages")
		defer p.progress.Finish()
	}

	outputs := make([]pageOutput, len(pages))
	indices := make(chan int)
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				out, err := p.processPage(pages[i])
				if err != nil {
					select {
					case errCh <- err:
					default:
					}
					return
				}
				outputs[i] = out
				if p.progress != nil {
					p.progress.Increment()
				}
			}
		}()
	}

feed:
	for i := range pages {
		select {
		case indices <- i:
		case <-ctx.Done():
			break feed
		case err := <-errCh:
			close(indices)
			wg.Wait()
			return nil, 0, err
		}
	}
	close(indices)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	select {
	case err := <-errCh:
		return nil, 0, err
	default:
	}

	skipped := 0
	for _, out := range outputs {
		if out.skipped {
			skipped++
		}
	}
	return outputs, skipped, nil
}

// processPage runs one page through clean, split and tag. A page that
// fails validation is reported as skipped, not as a pipeline error.
func (p *Pipeline) processPage(page document.Page) (pageOutput, error) {
	cleaned := normalize.Clean(page.Text, p.normOpts)
	if cleaned == "" {
		p.logger.Printf("page %d of %s: empty after cleanup, skipped", page.PageNumber, page.SourceID)
		return pageOutput{skipped: true}, nil
	}
	page.Text = cleaned

	pieces := p.splitter.Split(cleaned)
	chunks, err := p.tagger.TagPage(page, pieces)
	if err != nil {
		var pageErr *tag.PageError
		if errors.As(err, &pageErr) {
			p.logger.Printf("skipping page: %v", pageErr)
			return pageOutput{skipped: true}, nil
		}
		return pageOutput{}, err
	}
	return pageOutput{chunks: chunks}, nil
}

// sourceRecords aggregates per-source counts for the catalog.
func (p *Pipeline) sourceRecords(pages []document.Page, outputs []pageOutput) []catalog.SourceRecord {
	now := time.Now()
	bySource := make(map[string]*catalog.SourceRecord)
	for i, page := range pages {
		rec, ok := bySource[page.SourceID]
		if !ok {
			rec = &catalog.SourceRecord{
				SourceID:   page.SourceID,
				Region:     tag.RegionFromSource(page.SourceID),
				Category:   p.tagger.CategoryFromSource(page.SourceID),
				IngestedAt: now,
			}
			bySource[page.SourceID] = rec
		}
		rec.Pages++
		rec.Chunks += len(outputs[i].chunks)
		if outputs[i].skipped {
			rec.SkippedPages++
		}
	}

	ids := make([]string, 0, len(bySource))
	for id := range bySource {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]catalog.SourceRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, *bySource[id])
	}
	return records
}
