package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Backend providers understood by LLM_PROVIDER.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Store drivers understood by STORE_DRIVER.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// MinRateLimitBurst is the number of requests one retrieval-augmented turn makes.
const MinRateLimitBurst = 3

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort    string
	CORSOrigins []string

	// Inference backend
	LLMProvider     string
	LLMModel        string // default model for hosted providers
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	ModelNamespace  string // /models only lists names with this prefix

	// Retrieval. An empty key only disables /search.
	SerpAPIKey string
	SerpAPIURL string

	// Persistence
	StoreDriver   string
	DataDir       string
	DatabaseURL   string
	SQLitePath    string
	EncryptionKey []byte // optional; seals shared chats at rest

	// Optional bearer-token guard
	JWTSecret string

	// Per-client rate limit. RateLimitRPS 0 disables it. A client turn that
	// uses retrieval makes MinRateLimitBurst requests back to back
	// (classification, search, generation), so smaller bursts are rejected.
	RateLimitRPS   float64
	RateLimitBurst int

	LogFile  string
	LogLevel slog.Level
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, using environment variables only", "error", err)
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "3001"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")),
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOllama)),
		LLMModel:        getEnv("LLM_MODEL", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://127.0.0.1:11434"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		ModelNamespace:  getEnv("MODEL_NAMESPACE", "0xroyce/"),
		SerpAPIKey:      getEnv("SERP_API_KEY", ""),
		SerpAPIURL:      getEnv("SERP_API_URL", "https://serpapi.com/search.json"),
		StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", StoreFile)),
		DataDir:         getEnv("DATA_DIR", "data"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SQLitePath:      getEnv("SQLITE_PATH", "data/vortextau.db"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		LogFile:         getEnv("LOG_FILE", "api-chat.log"),
		LogLevel:        ParseLogLevel(getEnv("LOG_LEVEL", "INFO")),
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "2"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	cfg.RateLimitRPS = rps

	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}
	cfg.RateLimitBurst = burst

	// Optional encryption key (64 hex characters for AES-256)
	if keyHex := getEnv("ENCRYPTION_KEY", ""); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ENCRYPTION_KEY from hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be 32 bytes (64 hex characters) long, got %d bytes", len(key))
		}
		cfg.EncryptionKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.SerpAPIKey == "" {
		slog.Warn("SERP_API_KEY not set; /search will report a configuration error")
	}

	slog.Info("loaded config",
		"port", cfg.HTTPPort,
		"provider", cfg.LLMProvider,
		"store", cfg.StoreDriver,
		"namespace", cfg.ModelNamespace,
		"auth", cfg.JWTSecret != "",
		"encryption", cfg.EncryptionKey != nil,
	)

	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOllama:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=%s", ProviderOpenAI)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=%s", ProviderAnthropic)
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %q", c.LLMProvider)
	}

	switch c.StoreDriver {
	case StoreFile, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %q", c.StoreDriver)
	}

	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < MinRateLimitBurst {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least %d when rate limiting is on, got %d", MinRateLimitBurst, c.RateLimitBurst)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseLogLevel maps DEBUG/INFO/WARN/ERROR to a slog level, defaulting to INFO.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
