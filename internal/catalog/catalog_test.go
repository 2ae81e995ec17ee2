package catalog

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleRun() (RunRecord, []SourceRecord) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := RunRecord{
		StartedAt:    now.Add(-time.Minute),
		FinishedAt:   now,
		Sources:      2,
		Pages:        12,
		Chunks:       40,
		SkippedPages: 1,
		EmbedModel:   "all-MiniLM-L6-v2",
		Dimensions:   384,
	}
	sources := []SourceRecord{
		{SourceID: "nc-formulary.pdf", Pages: 8, Chunks: 30, SkippedPages: 1, Region: "NC", Category: "formulary", IngestedAt: now},
		{SourceID: "tx-summary.pdf", Pages: 4, Chunks: 10, Region: "TX", Category: "summary", IngestedAt: now},
	}
	return run, sources
}

func TestRecordRunAndStats(t *testing.T) {
	c := openTestCatalog(t)

	run, sources := sampleRun()
	if err := c.RecordRun(run, sources); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Sources != 2 {
		t.Errorf("Sources = %d, want 2", stats.Sources)
	}
	if stats.Pages != 12 {
		t.Errorf("Pages = %d, want 12", stats.Pages)
	}
	if stats.Chunks != 40 {
		t.Errorf("Chunks = %d, want 40", stats.Chunks)
	}
	if stats.SkippedPages != 1 {
		t.Errorf("SkippedPages = %d, want 1", stats.SkippedPages)
	}
	if stats.ByRegion["NC"] != 30 || stats.ByRegion["TX"] != 10 {
		t.Errorf("ByRegion = %v", stats.ByRegion)
	}
	if stats.ByCategory["formulary"] != 30 || stats.ByCategory["summary"] != 10 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
	if stats.LastRun == nil {
		t.Fatal("LastRun is nil")
	}
	if stats.LastRun.EmbedModel != "all-MiniLM-L6-v2" {
		t.Errorf("LastRun.EmbedModel = %q", stats.LastRun.EmbedModel)
	}
	if stats.LastRun.Dimensions != 384 {
		t.Errorf("LastRun.Dimensions = %d", stats.LastRun.Dimensions)
	}
}

func TestRecordRunReplacesSources(t *testing.T) {
	c := openTestCatalog(t)

	run, sources := sampleRun()
	if err := c.RecordRun(run, sources); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	replacement := []SourceRecord{
		{SourceID: "ca-network.pdf", Pages: 3, Chunks: 9, Region: "CA", Category: "network", IngestedAt: time.Now()},
	}
	run.Sources = 1
	if err := c.RecordRun(run, replacement); err != nil {
		t.Fatalf("RecordRun() second call error = %v", err)
	}

	got, err := c.Sources()
	if err != nil {
		t.Fatalf("Sources() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Sources() returned %d rows, want 1", len(got))
	}
	if got[0].SourceID != "ca-network.pdf" {
		t.Errorf("source = %q, want ca-network.pdf", got[0].SourceID)
	}
}

func TestSourcesOrdered(t *testing.T) {
	c := openTestCatalog(t)

	run, _ := sampleRun()
	sources := []SourceRecord{
		{SourceID: "z.pdf", Pages: 1, Chunks: 1, Region: "unknown", Category: "unknown", IngestedAt: time.Now()},
		{SourceID: "a.pdf", Pages: 1, Chunks: 1, Region: "unknown", Category: "unknown", IngestedAt: time.Now()},
	}
	if err := c.RecordRun(run, sources); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	got, err := c.Sources()
	if err != nil {
		t.Fatalf("Sources() error = %v", err)
	}
	if got[0].SourceID != "a.pdf" || got[1].SourceID != "z.pdf" {
		t.Errorf("sources not ordered: %v, %v", got[0].SourceID, got[1].SourceID)
	}
}

func TestStatsEmptyCatalog(t *testing.T) {
	c := openTestCatalog(t)

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Sources != 0 || stats.Chunks != 0 {
		t.Errorf("empty catalog stats = %+v", stats)
	}
	if stats.LastRun != nil {
		t.Errorf("LastRun = %+v, want nil", stats.LastRun)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.db")

	c1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	run, sources := sampleRun()
	if err := c1.RecordRun(run, sources); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	c1.Close()

	c2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer c2.Close()
	got, err := c2.Sources()
	if err != nil {
		t.Fatalf("Sources() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Sources() after reopen returned %d rows, want 2", len(got))
	}
}
