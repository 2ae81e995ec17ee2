package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking,omitempty"`
	Normalize NormalizeConfig `yaml:"normalize,omitempty"`
	Store     StoreConfig     `yaml:"store,omitempty"`
	Search    SearchConfig    `yaml:"search,omitempty"`
	Ingest    IngestConfig    `yaml:"ingest,omitempty"`
	Answer    AnswerConfig    `yaml:"answer,omitempty"`
}

// EmbeddingConfig holds embedding service configuration
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "openai" | "local"

	// OpenAI specific
	APIKey    string `yaml:"api_key,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	Model     string `yaml:"model"`

	// Local sentence-transformers server
	Endpoint string `yaml:"endpoint,omitempty"`

	// Dimensions is fixed for the lifetime of one vector store.
	// BatchSize only affects throughput, never the produced vectors.
	Dimensions int `yaml:"dimensions"`
	BatchSize  int `yaml:"batch_size"`
}

// ChunkingConfig holds segmentation parameters
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size,omitempty"` // Target chunk size in characters
	Overlap   int `yaml:"overlap,omitempty"`    // Characters carried between chunks
}

// NormalizeConfig holds text cleanup options
type NormalizeConfig struct {
	StripBoilerplate *bool    `yaml:"strip_boilerplate,omitempty"` // Remove page furniture (default true)
	HeaderPatterns   []string `yaml:"header_patterns,omitempty"`   // Extra header/footer regexes
}

// StoreConfig holds vector store persistence configuration
type StoreConfig struct {
	// Dir is where the vector index, metadata and catalog live.
	// If empty, uses ~/.docdex/data
	Dir string `yaml:"dir,omitempty"`
}

// SearchConfig holds retrieval configuration
type SearchConfig struct {
	DefaultTopK   int     `yaml:"default_top_k,omitempty"`  // Default number of results
	VectorWeight  float64 `yaml:"vector_weight,omitempty"`  // Vector score weight for hybrid mode
	KeywordWeight float64 `yaml:"keyword_weight,omitempty"` // Keyword score weight for hybrid mode
	EnableKeyword bool    `yaml:"enable_keyword,omitempty"` // Build/use the keyword index
}

// IngestConfig holds page-file discovery and pipeline configuration
type IngestConfig struct {
	Include    []string `yaml:"include,omitempty"`     // Page file glob patterns
	Exclude    []string `yaml:"exclude,omitempty"`     // Exclude patterns
	MaxWorkers int      `yaml:"max_workers,omitempty"` // Page-processing goroutines
}

// AnswerConfig holds answer-generation configuration (ask command)
type AnswerConfig struct {
	APIKey    string `yaml:"api_key,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	Model     string `yaml:"model,omitempty"`
	MaxChunks int    `yaml:"max_chunks,omitempty"` // Context chunks passed to the model
}

// Load loads configuration from the default config file
// Default location: ~/.docdex/config/docdex.yaml
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".docdex", "config", "docdex.yaml")
	return LoadFromFile(configPath)
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			homeDir, _ := os.UserHomeDir()
			defaultPath := filepath.Join(homeDir, ".docdex", "config", "docdex.yaml")
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   defaultPath,
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration, used when running
// against a local embedding server without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Create the config file at the default location\n"+
		"  2. Specify a custom path with -config flag\n"+
		"  3. Run 'docdex ingest' to create a default template",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	_, ok := err.(*ConfigNotFoundError)
	return ok
}

// expandPath expands ~ and $HOME to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "$HOME/") || path == "$HOME" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return path
			}
		}
		if path == "$HOME" {
			return homeDir
		}
		return filepath.Join(homeDir, path[6:])
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "local"
	}
	if c.Embedding.Model == "" {
		switch c.Embedding.Provider {
		case "openai":
			c.Embedding.Model = "text-embedding-3-small"
		default:
			c.Embedding.Model = "all-MiniLM-L6-v2"
		}
	}
	if c.Embedding.Endpoint == "" && c.Embedding.Provider == "local" {
		c.Embedding.Endpoint = "http://localhost:8080"
	}
	if c.Embedding.APIKeyEnv == "" && c.Embedding.Provider == "openai" {
		c.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Embedding.Dimensions == 0 {
		switch c.Embedding.Provider {
		case "openai":
			c.Embedding.Dimensions = 1536
		default:
			c.Embedding.Dimensions = 384
		}
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 32
	}

	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = 500
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = 50
	}

	if c.Normalize.StripBoilerplate == nil {
		on := true
		c.Normalize.StripBoilerplate = &on
	}

	if c.Store.Dir != "" {
		c.Store.Dir = expandPath(c.Store.Dir)
	}

	if c.Search.DefaultTopK == 0 {
		c.Search.DefaultTopK = 5
	}
	if c.Search.VectorWeight == 0 && c.Search.KeywordWeight == 0 {
		c.Search.VectorWeight = 0.7
		c.Search.KeywordWeight = 0.3
	}

	if c.Ingest.MaxWorkers == 0 {
		c.Ingest.MaxWorkers = 4
	}

	if c.Answer.Model == "" {
		c.Answer.Model = "gpt-4o-mini"
	}
	if c.Answer.APIKeyEnv == "" {
		c.Answer.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Answer.MaxChunks == 0 {
		c.Answer.MaxChunks = 5
	}
}

// Validate validates the configuration. Structural problems are
// rejected here, before any processing starts.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.ResolveAPIKey() == "" {
			return fmt.Errorf("openai provider requires api_key or %s", c.Embedding.APIKeyEnv)
		}
	case "local":
		if c.Embedding.Endpoint == "" {
			return fmt.Errorf("local provider requires endpoint")
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got: %d", c.Embedding.Dimensions)
	}
	if c.Embedding.BatchSize <= 0 || c.Embedding.BatchSize > 2048 {
		return fmt.Errorf("batch_size must be between 1 and 2048, got: %d", c.Embedding.BatchSize)
	}

	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got: %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("overlap must be in [0, chunk_size), got: %d", c.Chunking.Overlap)
	}

	return nil
}

// ResolveAPIKey returns the configured key, falling back to the
// configured environment variable.
func (c *EmbeddingConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// ResolveAPIKey returns the answer-generation key, falling back to the
// configured environment variable.
func (c *AnswerConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// StripBoilerplateEnabled reports whether header/footer removal is on.
func (c *NormalizeConfig) StripBoilerplateEnabled() bool {
	return c.StripBoilerplate == nil || *c.StripBoilerplate
}

const defaultConfigTemplate = `# docdex configuration
#
# Copy and edit this file for your environment.
# Default location: $HOME/.docdex/config/docdex.yaml

embedding:
  # Provider: "local" (sentence-transformers server) or "openai"
  provider: local
  endpoint: http://localhost:8080
  model: all-MiniLM-L6-v2
  dimensions: 384
  batch_size: 32

  # OpenAI configuration (alternative)
  # provider: openai
  # api_key_env: OPENAI_API_KEY
  # model: text-embedding-3-small
  # dimensions: 1536
  # batch_size: 100

chunking:
  chunk_size: 500
  overlap: 50

normalize:
  strip_boilerplate: true
  # header_patterns:
  #   - '(?i)^oscar health insurance'
  #   - '(?i)^confidential$'

search:
  default_top_k: 5
  # enable_keyword: true
  # vector_weight: 0.7
  # keyword_weight: 0.3
`

// WriteDefaultTemplate creates a default configuration file if it does not exist.
// It returns true if a file was created, false if it already existed.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}
