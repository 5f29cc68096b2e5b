package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Classification strategies for the terminal client.
const (
	StrategyClassifier = "classifier"
	StrategyKeywords   = "keywords"
)

// ClientConfig configures the vortex terminal client. It is read from
// ~/.vortex/config.yaml; every field is optional.
type ClientConfig struct {
	ServerURL         string        `yaml:"server_url"`
	Model             string        `yaml:"model"`
	SystemPrompt      string        `yaml:"system_prompt"`
	Strategy          string        `yaml:"strategy"`
	ClassificationTTL time.Duration `yaml:"classification_ttl"`
	DataDir           string        `yaml:"data_dir"`
	Token             string        `yaml:"token"`
}

// DefaultClientConfigPath returns ~/.vortex/config.yaml.
func DefaultClientConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".vortex", "config.yaml")
	}
	return filepath.Join(home, ".vortex", "config.yaml")
}

// DefaultClientConfig returns the values used when no config file exists.
func DefaultClientConfig() ClientConfig {
	dataDir := ".vortex"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".vortex")
	}
	return ClientConfig{
		ServerURL:         "http://localhost:3001",
		Strategy:          StrategyClassifier,
		ClassificationTTL: 5 * time.Minute,
		DataDir:           dataDir,
	}
}

// LoadClientConfig reads the YAML file at path over the defaults. A missing
// file is not an error.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading client config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing client config %s: %w", path, err)
	}

	switch cfg.Strategy {
	case "":
		cfg.Strategy = StrategyClassifier
	case StrategyClassifier, StrategyKeywords:
	default:
		return cfg, fmt.Errorf("unknown strategy %q (want %s or %s)", cfg.Strategy, StrategyClassifier, StrategyKeywords)
	}
	if cfg.ClassificationTTL <= 0 {
		cfg.ClassificationTTL = 5 * time.Minute
	}
	return cfg, nil
}
