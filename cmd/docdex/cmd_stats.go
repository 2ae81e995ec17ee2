package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/docdex/docdex/cmd/docdex/internal"
	"github.com/docdex/docdex/internal/catalog"
	"github.com/docdex/docdex/internal/store"
)

// handleStats implements the stats subcommand.
func handleStats(dataDir string, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)

	var showSources bool
	fs.BoolVar(&showSources, "sources", false, "List every ingested source")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex stats [options]

DESCRIPTION:
    Show what was ingested in the last run: source, page and chunk
    counts, broken down by region and category.

OPTIONS:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	cat, err := catalog.Open(internal.CatalogPath(dataDir))
	if err != nil {
		log.Fatalf("Failed to open catalog (run 'docdex ingest' first): %v", err)
	}
	defer cat.Close()

	stats, err := cat.Stats()
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}

	if stats.Sources == 0 {
		fmt.Println("Nothing ingested yet. Run 'docdex ingest <pages-dir>' first.")
		return
	}

	fmt.Printf("Sources:       %d\n", stats.Sources)
	fmt.Printf("Pages:         %d\n", stats.Pages)
	fmt.Printf("Chunks:        %d\n", stats.Chunks)
	fmt.Printf("Skipped pages: %d\n", stats.SkippedPages)

	if s, err := store.Load(dataDir); err == nil {
		fmt.Printf("Store:         %d vectors, D=%d\n", s.Len(), s.Dimension())
	}

	printBreakdown("Chunks by region", stats.ByRegion)
	printBreakdown("Chunks by category", stats.ByCategory)

	if run := stats.LastRun; run != nil {
		fmt.Printf("\nLast ingest: %s (%s, D=%d, took %s)\n",
			run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			run.EmbedModel, run.Dimensions,
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}

	if showSources {
		sources, err := cat.Sources()
		if err != nil {
			log.Fatalf("Failed to list sources: %v", err)
		}
		fmt.Println("\nSources:")
		for _, s := range sources {
			fmt.Printf("  %-40s %3d pages %5d chunks  %s/%s\n",
				s.SourceID, s.Pages, s.Chunks, s.Region, s.Category)
		}
	}
}

func printBreakdown(title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("\n%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %-12s %d\n", k, counts[k])
	}
}
