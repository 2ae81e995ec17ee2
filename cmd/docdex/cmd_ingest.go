package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/docdex/docdex/cmd/docdex/internal"
	"github.com/docdex/docdex/internal/catalog"
	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/document"
	"github.com/docdex/docdex/internal/embedding"
	"github.com/docdex/docdex/internal/ingest"
	"github.com/docdex/docdex/internal/retrieval"
	"github.com/docdex/docdex/internal/tag"
)

// handleIngest implements the ingest subcommand.
func handleIngest(cfg *config.Config, dataDir string, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)

	var noProgress bool
	fs.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex ingest [options] <pages-dir>

DESCRIPTION:
    Load extracted page files (*.pages.json, *.pages.jsonl) from the
    given directory, clean and chunk the text, embed every chunk and
    write a fresh vector store. The previous store is replaced only
    after the new one is fully built.

OPTIONS:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: pages directory is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	pagesDir := fs.Arg(0)

	pages, err := document.LoadAllPages(pagesDir, document.LoaderOptions{
		Include: cfg.Ingest.Include,
		Exclude: cfg.Ingest.Exclude,
	})
	if err != nil {
		log.Fatalf("Failed to load pages: %v", err)
	}
	if len(pages) == 0 {
		log.Fatalf("No page files found under %s", pagesDir)
	}
	log.Printf("Loaded %d pages from %s", len(pages), pagesDir)

	embedSvc, err := embedding.NewService(&cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}

	pipeline, err := ingest.New(cfg, embedSvc, log.Default())
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	pipeline.SetProgress(ingest.NewProgress(!noProgress && ingest.DefaultProgressEnabled()))

	result, err := pipeline.Run(context.Background(), pages)
	if err != nil {
		log.Fatalf("Ingest failed, store unchanged: %v", err)
	}

	if err := result.Store.Save(dataDir); err != nil {
		log.Fatalf("Failed to persist store: %v", err)
	}

	if cfg.Search.EnableKeyword {
		idx, err := retrieval.CreateKeywordIndex(internal.KeywordDir(dataDir))
		if err != nil {
			log.Fatalf("Failed to create keyword index: %v", err)
		}
		if err := idx.IndexChunks(result.Chunks); err != nil {
			idx.Close()
			log.Fatalf("Failed to build keyword index: %v", err)
		}
		idx.Close()
	}

	cat, err := catalog.Open(internal.CatalogPath(dataDir))
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()

	run := catalog.RunRecord{
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
		Sources:      len(result.Sources),
		Pages:        result.Pages,
		Chunks:       len(result.Chunks),
		SkippedPages: result.SkippedPages,
		EmbedModel:   cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
	}
	if err := cat.RecordRun(run, result.Sources); err != nil {
		log.Fatalf("Failed to record ingest run: %v", err)
	}

	fmt.Printf("Ingested %d sources: %d pages, %d chunks (%d pages skipped)\n",
		len(result.Sources), result.Pages, len(result.Chunks), result.SkippedPages)

	stats := chunk.Stats(chunkTexts(result.Chunks))
	fmt.Printf("Chunk sizes: min %d, avg %d, max %d chars\n",
		stats.MinSize, stats.AvgSize, stats.MaxSize)

	summary := tag.Summarize(result.Chunks)
	fmt.Printf("Regions: %s\n", formatCounts(summary.Regions))
	fmt.Printf("Categories: %s\n", formatCounts(summary.Categories))

	fmt.Printf("Store written to %s\n", dataDir)
}

func chunkTexts(chunks []document.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}
