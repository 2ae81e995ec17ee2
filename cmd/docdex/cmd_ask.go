package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/docdex/docdex/internal/answer"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/document"
	"github.com/docdex/docdex/internal/retrieval"
)

// handleAsk implements the ask subcommand.
func handleAsk(cfg *config.Config, dataDir string, args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)

	var region, category string
	var topK int
	var showSources bool

	fs.IntVar(&topK, "k", cfg.Answer.MaxChunks, "Number of context chunks to retrieve")
	fs.StringVar(&region, "region", "", "Only use chunks from this state (e.g. NC)")
	fs.StringVar(&category, "category", "", "Only use chunks of this document type")
	fs.BoolVar(&showSources, "sources", false, "Print the retrieved chunks after the answer")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex ask [options] "<question>"

DESCRIPTION:
    Retrieve the most relevant chunks and generate an answer grounded
    in them. Requires an OpenAI API key for the answer model.

OPTIONS:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: question is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	question := fs.Arg(0)

	retriever := openRetriever(cfg, dataDir, true)

	ctx := context.Background()
	results, err := retriever.Retrieve(ctx, question, retrieval.Options{
		TopK:          topK,
		Region:        region,
		Category:      category,
		VectorWeight:  float32(cfg.Search.VectorWeight),
		KeywordWeight: float32(cfg.Search.KeywordWeight),
	})
	if err != nil {
		log.Fatalf("Retrieval failed: %v", err)
	}
	if len(results) == 0 {
		fmt.Println("No relevant documents found for this question.")
		return
	}

	chunks := make([]document.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}

	gen, err := answer.NewOpenAIGenerator(cfg.Answer.ResolveAPIKey(), cfg.Answer.Model)
	if err != nil {
		log.Fatalf("Failed to create answer generator: %v", err)
	}

	text, err := gen.Generate(ctx, question, chunks)
	if err != nil {
		log.Fatalf("Answer generation failed: %v", err)
	}

	fmt.Println(text)

	if showSources {
		fmt.Println("\nSources:")
		for _, c := range chunks {
			fmt.Printf("  [%s] %s page %d (%s/%s)\n",
				c.ChunkID, c.SourceID, c.PageNumber, c.Region, c.Category)
		}
	}
}
