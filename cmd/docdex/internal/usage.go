package internal

import (
	"fmt"
	"os"
)

// Version is the CLI version string.
const Version = "0.3.0"

// PrintUsage prints the top-level command usage to stderr.
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `docdex - ingest insurance plan documents and answer questions about them

USAGE:
    docdex [global options] <subcommand> [options]

GLOBAL OPTIONS:
    -config <path>    Path to config file (default: ~/.docdex/config/docdex.yaml)
    -data <path>      Data directory for the vector store (default: ~/.docdex/data)
    -h, -help         Show this help
    -v, -version      Show version

SUBCOMMANDS:
    ingest      Build the vector store from extracted page files
    search      Retrieve the most relevant chunks for a query
    ask         Answer a question grounded in retrieved chunks
    stats       Show what has been ingested

EXAMPLES:
    # Ingest extracted pages from a directory
    docdex ingest ./extracted

    # Search the store
    docdex search "is metformin covered"

    # Restrict to one state's documents
    docdex search -region NC "specialist copay"

    # Ask a grounded question
    docdex ask "what is the annual deductible"

    # Show ingestion stats
    docdex stats

Run 'docdex <subcommand> -h' for subcommand options.
`)
}

// PrintConfigExample prints a starter configuration to stderr.
func PrintConfigExample() {
	homeDir, _ := os.UserHomeDir()
	fmt.Fprintf(os.Stderr, `Create a configuration file at %s/.docdex/config/docdex.yaml:

embedding:
  # "local" points at a sentence-transformers inference server
  provider: local
  endpoint: http://localhost:8080
  model: all-MiniLM-L6-v2
  dimensions: 384
  batch_size: 32

chunking:
  chunk_size: 500
  overlap: 50

Usage:
  1. Create the config file
  2. Run: docdex ingest ./extracted
  3. Search: docdex search "your question"
`, homeDir)
}
