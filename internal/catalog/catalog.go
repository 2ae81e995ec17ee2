// Package catalog records what has been ingested: per-source page and
// chunk counts plus a history of ingest runs, kept in a small SQLite
// database next to the vector store artifacts.
package catalog

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

const currentSchemaVersion = 1

// Catalog manages the ingestion ledger database.
type Catalog struct {
	sqlDB *sql.DB
	path  string
}

// SourceRecord is the ledger row for one ingested document.
type SourceRecord struct {
	SourceID     string
	Pages        int
	Chunks       int
	SkippedPages int
	Region       string
	Category     string
	IngestedAt   time.Time
}

// RunRecord summarizes one completed ingest run.
type RunRecord struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	Sources      int
	Pages        int
	Chunks       int
	SkippedPages int
	EmbedModel   string
	Dimensions   int
}

// Stats aggregates the ledger for the stats command.
type Stats struct {
	Sources      int64
	Pages        int64
	Chunks       int64
	SkippedPages int64
	ByRegion     map[string]int64
	ByCategory   map[string]int64
	LastRun      *RunRecord
}

// Open opens or creates the catalog database at path and applies the
// schema.
func Open(path string) (*Catalog, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode=WAL&_pragma=synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping catalog database: %w", err)
	}

	c := &Catalog{sqlDB: sqlDB, path: path}
	if err := c.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate catalog database: %w", err)
	}
	return c, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.sqlDB.Close()
}

func (c *Catalog) migrate() error {
	version, err := c.schemaVersion()
	if err != nil {
		return err
	}
	if version >= currentSchemaVersion {
		return nil
	}

	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	tx, err := c.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(schema)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		currentSchemaVersion, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}

func (c *Catalog) schemaVersion() (int, error) {
	var exists int
	if err := c.sqlDB.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check schema_version table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err := c.sqlDB.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return version, nil
}

// RecordRun replaces the source ledger with the given records and
// appends the run summary, all in one transaction. Ingest rebuilds the
// whole store, so the ledger is replaced rather than merged.
func (c *Catalog) RecordRun(run RunRecord, sources []SourceRecord) error {
	tx, err := c.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sources"); err != nil {
		return fmt.Errorf("clear sources: %w", err)
	}
	for _, s := range sources {
		if _, err := tx.Exec(
			`INSERT INTO sources (source_id, pages, chunks, skipped_pages, region, category, ingested_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.SourceID, s.Pages, s.Chunks, s.SkippedPages, s.Region, s.Category,
			s.IngestedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("insert source %s: %w", s.SourceID, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO runs (started_at, finished_at, sources, pages, chunks, skipped_pages, embed_model, dimensions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Sources, run.Pages, run.Chunks, run.SkippedPages,
		run.EmbedModel, run.Dimensions,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return tx.Commit()
}

// Sources returns the ledger rows ordered by source ID.
func (c *Catalog) Sources() ([]SourceRecord, error) {
	rows, err := c.sqlDB.Query(
		`SELECT source_id, pages, chunks, skipped_pages, region, category, ingested_at
		 FROM sources ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var out []SourceRecord
	for rows.Next() {
		var s SourceRecord
		var ingestedAt string
		if err := rows.Scan(&s.SourceID, &s.Pages, &s.Chunks, &s.SkippedPages,
			&s.Region, &s.Category, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		s.IngestedAt, _ = time.Parse(time.RFC3339, ingestedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Stats aggregates the ledger.
func (c *Catalog) Stats() (*Stats, error) {
	stats := &Stats{
		ByRegion:   make(map[string]int64),
		ByCategory: make(map[string]int64),
	}

	err := c.sqlDB.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(pages), 0), COALESCE(SUM(chunks), 0), COALESCE(SUM(skipped_pages), 0)
		 FROM sources`,
	).Scan(&stats.Sources, &stats.Pages, &stats.Chunks, &stats.SkippedPages)
	if err != nil {
		return nil, fmt.Errorf("aggregate sources: %w", err)
	}

	if err := c.countBy("region", stats.ByRegion); err != nil {
		return nil, err
	}
	if err := c.countBy("category", stats.ByCategory); err != nil {
		return nil, err
	}

	run, err := c.lastRun()
	if err != nil {
		return nil, err
	}
	stats.LastRun = run
	return stats, nil
}

func (c *Catalog) countBy(column string, dest map[string]int64) error {
	rows, err := c.sqlDB.Query(fmt.Sprintf(
		"SELECT %s, SUM(chunks) FROM sources GROUP BY %s", column, column))
	if err != nil {
		return fmt.Errorf("group sources by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan %s group: %w", column, err)
		}
		dest[key] = count
	}
	return rows.Err()
}

func (c *Catalog) lastRun() (*RunRecord, error) {
	var run RunRecord
	var started, finished string
	err := c.sqlDB.QueryRow(
		`SELECT started_at, finished_at, sources, pages, chunks, skipped_pages, embed_model, dimensions
		 FROM runs ORDER BY id DESC LIMIT 1`,
	).Scan(&started, &finished, &run.Sources, &run.Pages, &run.Chunks,
		&run.SkippedPages, &run.EmbedModel, &run.Dimensions)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339, started)
	run.FinishedAt, _ = time.Parse(time.RFC3339, finished)
	return &run, nil
}
