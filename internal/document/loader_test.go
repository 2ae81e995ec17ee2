package document

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDiscoverPageFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plans/nc-formulary.pages.json", "[]")
	writeFile(t, dir, "plans/tx-summary.pages.jsonl", "")
	writeFile(t, dir, "plans/readme.txt", "not a page file")
	writeFile(t, dir, "drafts/old.pages.json", "[]")

	t.Run("default include", func(t *testing.T) {
		files, err := DiscoverPageFiles(dir, LoaderOptions{})
		if err != nil {
			t.Fatalf("DiscoverPageFiles() error = %v", err)
		}
		if len(files) != 3 {
			t.Fatalf("found %d files, want 3: %v", len(files), files)
		}
		// Sorted discovery keeps ingestion order stable.
		if filepath.Base(files[0]) != "old.pages.json" {
			t.Errorf("first file = %s, want old.pages.json", files[0])
		}
	})

	t.Run("exclude pattern", func(t *testing.T) {
		files, err := DiscoverPageFiles(dir, LoaderOptions{Exclude: []string{"drafts/**"}})
		if err != nil {
			t.Fatalf("DiscoverPageFiles() error = %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("found %d files, want 2: %v", len(files), files)
		}
	})

	t.Run("custom include", func(t *testing.T) {
		files, err := DiscoverPageFiles(dir, LoaderOptions{Include: []string{"**/*.jsonl"}})
		if err != nil {
			t.Fatalf("DiscoverPageFiles() error = %v", err)
		}
		if len(files) != 1 {
			t.Fatalf("found %d files, want 1: %v", len(files), files)
		}
	})
}

func TestLoadPagesJSONArray(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.pages.json", `[
		{"source": "nc-formulary.pdf", "page": 1, "text": "Metformin is covered."},
		{"source": "nc-formulary.pdf", "page": 2, "text": "  "},
		{"source": "nc-formulary.pdf", "page": 3, "text": "Insulin is covered."}
	]`)

	pages, err := LoadPages(path)
	if err != nil {
		t.Fatalf("LoadPages() error = %v", err)
	}
	// Page 2 is blank and must be dropped.
	if len(pages) != 2 {
		t.Fatalf("loaded %d pages, want 2", len(pages))
	}
	if pages[0].SourceID != "nc-formulary.pdf" || pages[0].PageNumber != 1 {
		t.Errorf("first page = %+v", pages[0])
	}
	if pages[1].PageNumber != 3 {
		t.Errorf("second page number = %d, want 3", pages[1].PageNumber)
	}
}

func TestLoadPagesJSONL(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "b.pages.jsonl",
		`{"source": "tx-summary.pdf", "page": 1, "text": "Deductible is $1,500."}

{"source": "tx-summary.pdf", "page": 2, "text": "Copays vary by tier."}
`)

	pages, err := LoadPages(path)
	if err != nil {
		t.Fatalf("LoadPages() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("loaded %d pages, want 2", len(pages))
	}
	if pages[1].Text != "Copays vary by tier." {
		t.Errorf("second page text = %q", pages[1].Text)
	}
}

func TestLoadPagesMalformed(t *testing.T) {
	dir := t.TempDir()

	t.Run("bad array", func(t *testing.T) {
		path := writeFile(t, dir, "bad.pages.json", `{"not": "an array"}`)
		if _, err := LoadPages(path); err == nil {
			t.Fatal("LoadPages() succeeded on malformed file")
		}
	})

	t.Run("bad line", func(t *testing.T) {
		path := writeFile(t, dir, "bad.pages.jsonl", "{broken\n")
		if _, err := LoadPages(path); err == nil {
			t.Fatal("LoadPages() succeeded on malformed line")
		}
	})
}

func TestLoadAllPages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pages.json", `[{"source": "a.pdf", "page": 1, "text": "First file."}]`)
	writeFile(t, dir, "b.pages.json", `[{"source": "b.pdf", "page": 1, "text": "Second file."}]`)

	pages, err := LoadAllPages(dir, LoaderOptions{})
	if err != nil {
		t.Fatalf("LoadAllPages() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("loaded %d pages, want 2", len(pages))
	}
	if pages[0].SourceID != "a.pdf" || pages[1].SourceID != "b.pdf" {
		t.Errorf("pages out of file order: %s, %s", pages[0].SourceID, pages[1].SourceID)
	}
}
