package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/docdex/docdex/cmd/docdex/internal"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/embedding"
	"github.com/docdex/docdex/internal/retrieval"
	"github.com/docdex/docdex/internal/store"
)

// handleSearch implements the search subcommand.
func handleSearch(cfg *config.Config, dataDir string, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)

	var topK int
	var region, category string
	var vectorOnly, keywordOnly, jsonOutput, verbose bool

	fs.IntVar(&topK, "k", cfg.Search.DefaultTopK, "Number of results to return")
	fs.StringVar(&region, "region", "", "Only return chunks from this state (e.g. NC)")
	fs.StringVar(&category, "category", "", "Only return chunks of this document type")
	fs.BoolVar(&vectorOnly, "vector-only", false, "Skip keyword fusion even if the index exists")
	fs.BoolVar(&keywordOnly, "keyword-only", false, "Rank by keyword relevance alone")
	fs.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	fs.BoolVar(&verbose, "v", false, "Verbose output (show scores)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex search [options] "<query>"

DESCRIPTION:
    Embed the query and return the most similar chunks from the store.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    docdex search "is metformin covered"
    docdex search -region NC -category formulary "tier 1 drugs"
    docdex search -k 10 -json "deductible"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: search query is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	query := fs.Arg(0)

	retriever := openRetriever(cfg, dataDir, !vectorOnly)

	opts := retrieval.Options{
		TopK:          topK,
		Region:        region,
		Category:      category,
		VectorWeight:  float32(cfg.Search.VectorWeight),
		KeywordWeight: float32(cfg.Search.KeywordWeight),
	}
	if vectorOnly {
		opts.KeywordWeight = 0
	} else if keywordOnly {
		opts.VectorWeight = 0
		opts.KeywordWeight = 1
	}

	results, err := retriever.Retrieve(context.Background(), query, opts)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	if jsonOutput {
		outputJSON(results, query)
	} else {
		outputText(results, query, verbose)
	}
}

// openRetriever loads the persisted store and, when requested and
// present, the keyword index.
func openRetriever(cfg *config.Config, dataDir string, withKeyword bool) *retrieval.Retriever {
	s, err := store.Load(dataDir)
	if err != nil {
		log.Fatalf("Failed to load store from %s (run 'docdex ingest' first): %v", dataDir, err)
	}

	embedSvc, err := embedding.NewService(&cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}

	if withKeyword && cfg.Search.EnableKeyword {
		idx, err := retrieval.OpenKeywordIndex(internal.KeywordDir(dataDir))
		if err != nil {
			log.Printf("Warning: keyword index unavailable, falling back to vector-only: %v", err)
		} else {
			return retrieval.NewHybrid(s, embedSvc, idx)
		}
	}
	return retrieval.New(s, embedSvc)
}

// outputText renders results as human-readable text.
func outputText(results []retrieval.Result, query string, verbose bool) {
	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	fmt.Printf("Found %d result(s) for: %s\n\n", len(results), query)

	for i, r := range results {
		fmt.Printf("%d. %s\n", i+1, r.Chunk.ChunkID)
		fmt.Printf("   Source:   %s (page %d)\n", r.Chunk.SourceID, r.Chunk.PageNumber)
		fmt.Printf("   Region:   %s\n", r.Chunk.Region)
		fmt.Printf("   Category: %s\n", r.Chunk.Category)

		if verbose {
			fmt.Printf("   Distance: %.4f\n", r.Distance)
			if r.Combined > 0 {
				fmt.Printf("   Keyword:  %.3f\n", r.KeywordScore)
				fmt.Printf("   Combined: %.3f\n", r.Combined)
			}
		}

		text := r.Chunk.Text
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		fmt.Printf("   %s\n\n", text)
	}
}

// outputJSON renders results as JSON for scripting.
func outputJSON(results []retrieval.Result, query string) {
	output := map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": results,
	}

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal results: %v", err)
	}
	fmt.Println(string(jsonData))
}
