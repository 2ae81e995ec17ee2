package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docdex.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromFileDefaults(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: local
  endpoint: http://localhost:8080
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Embedding.Model != "all-MiniLM-L6-v2" {
		t.Errorf("Model = %q, want all-MiniLM-L6-v2", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("Dimensions = %d, want 384", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.BatchSize != 32 {
		t.Errorf("BatchSize = %d, want 32", cfg.Embedding.BatchSize)
	}
	if cfg.Chunking.ChunkSize != 500 || cfg.Chunking.Overlap != 50 {
		t.Errorf("Chunking = %+v, want 500/50", cfg.Chunking)
	}
	if !cfg.Normalize.StripBoilerplateEnabled() {
		t.Error("StripBoilerplateEnabled() = false, want true by default")
	}
	if cfg.Search.DefaultTopK != 5 {
		t.Errorf("DefaultTopK = %d, want 5", cfg.Search.DefaultTopK)
	}
	if cfg.Ingest.MaxWorkers != 4 {
		t.Errorf("MaxWorkers = %d, want 4", cfg.Ingest.MaxWorkers)
	}
}

func TestLoadFromFileOpenAIDefaults(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: openai
  api_key: sk-test
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("Model = %q, want text-embedding-3-small", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("Dimensions = %d, want 1536", cfg.Embedding.Dimensions)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid local",
			yaml: "embedding:\n  provider: local\n",
		},
		{
			name:    "unknown provider",
			yaml:    "embedding:\n  provider: cohere\n",
			wantErr: true,
		},
		{
			name:    "openai without key",
			yaml:    "embedding:\n  provider: openai\n  api_key_env: DOCDEX_TEST_MISSING_KEY\n",
			wantErr: true,
		},
		{
			name:    "overlap equals chunk size",
			yaml:    "embedding:\n  provider: local\nchunking:\n  chunk_size: 100\n  overlap: 100\n",
			wantErr: true,
		},
		{
			name:    "negative overlap",
			yaml:    "embedding:\n  provider: local\nchunking:\n  chunk_size: 100\n  overlap: -1\n",
			wantErr: true,
		},
		{
			name:    "batch size too large",
			yaml:    "embedding:\n  provider: local\n  batch_size: 5000\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			_, err := LoadFromFile(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadFromFile() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !IsConfigNotFound(err) {
		t.Fatalf("LoadFromFile() error = %v, want ConfigNotFoundError", err)
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("DOCDEX_TEST_KEY", "from-env")

	direct := EmbeddingConfig{APIKey: "direct", APIKeyEnv: "DOCDEX_TEST_KEY"}
	if got := direct.ResolveAPIKey(); got != "direct" {
		t.Errorf("ResolveAPIKey() = %q, want direct", got)
	}

	env := EmbeddingConfig{APIKeyEnv: "DOCDEX_TEST_KEY"}
	if got := env.ResolveAPIKey(); got != "from-env" {
		t.Errorf("ResolveAPIKey() = %q, want from-env", got)
	}

	none := EmbeddingConfig{}
	if got := none.ResolveAPIKey(); got != "" {
		t.Errorf("ResolveAPIKey() = %q, want empty", got)
	}
}

func TestWriteDefaultTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "docdex.yaml")

	created, err := WriteDefaultTemplate(path)
	if err != nil {
		t.Fatalf("WriteDefaultTemplate() error = %v", err)
	}
	if !created {
		t.Fatal("WriteDefaultTemplate() did not create the file")
	}

	// Template must itself parse and validate.
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	if cfg.Embedding.Provider != "local" {
		t.Errorf("template provider = %q, want local", cfg.Embedding.Provider)
	}

	again, err := WriteDefaultTemplate(path)
	if err != nil {
		t.Fatalf("WriteDefaultTemplate() second call error = %v", err)
	}
	if again {
		t.Error("WriteDefaultTemplate() overwrote an existing file")
	}
}
