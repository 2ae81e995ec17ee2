package internal

import (
	"github.com/docdex/docdex/internal/config"
)

// LoadConfig reads the config file at configPath, or the default
// location when configPath is empty.
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}
