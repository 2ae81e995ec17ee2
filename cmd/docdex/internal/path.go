package internal

import (
	"os"
	"path/filepath"
)

// DataDir resolves the directory holding the vector store, keyword
// index and catalog. Precedence: explicit flag, config value, then
// ~/.docdex/data.
func DataDir(flagValue, configValue string) (string, error) {
	if flagValue != "" {
		return filepath.Abs(flagValue)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".docdex", "data"), nil
}

// CatalogPath returns the catalog database path inside the data dir.
func CatalogPath(dataDir string) string {
	return filepath.Join(dataDir, "catalog.db")
}

// KeywordDir returns the keyword index directory inside the data dir.
func KeywordDir(dataDir string) string {
	return filepath.Join(dataDir, "keyword")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".docdex", "config", "docdex.yaml")
}
