package document

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// LoaderOptions controls which page files are picked up during
// discovery. Include and Exclude are doublestar glob patterns matched
// against the path relative to the scanned root.
type LoaderOptions struct {
	Include []string
	Exclude []string
}

// DefaultInclude matches the page-file formats written by the external
// PDF extractor.
var DefaultInclude = []string{"**/*.pages.json", "**/*.pages.jsonl"}

// DiscoverPageFiles walks root and returns the page files selected by
// the options, sorted for deterministic ingestion order.
func DiscoverPageFiles(root string, opts LoaderOptions) ([]string, error) {
	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		matched := false
		for _, pattern := range include {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}
		for _, pattern := range opts.Exclude {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// LoadPages reads one page file. Files ending in .jsonl are parsed as
// one page object per line; everything else is parsed as a JSON array
// of pages. Pages with empty text are dropped, matching the extractor
// behavior for image-only pages.
func LoadPages(path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page file: %w", err)
	}
	defer f.Close()

	var pages []Page
	if strings.HasSuffix(path, ".jsonl") {
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			raw := strings.TrimSpace(scanner.Text())
			if raw == "" {
				continue
			}
			var p Page
			if err := json.Unmarshal([]byte(raw), &p); err != nil {
				return nil, fmt.Errorf("parse %s line %d: %w", path, line, err)
			}
			pages = append(pages, p)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else {
		if err := json.NewDecoder(f).Decode(&pages); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	kept := pages[:0]
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		kept = append(kept, p)
	}
	return kept, nil
}

// LoadAllPages discovers and loads every page file under root in one
// pass, preserving file order then page order.
func LoadAllPages(root string, opts LoaderOptions) ([]Page, error) {
	files, err := DiscoverPageFiles(root, opts)
	if err != nil {
		return nil, err
	}
	var all []Page
	for _, file := range files {
		pages, err := LoadPages(file)
		if err != nil {
			return nil, err
		}
		all = append(all, pages...)
	}
	return all, nil
}
