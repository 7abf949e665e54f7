// Package config loads the service configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Backend selects where session history is stored.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSqlite   Backend = "sqlite"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
)

// Provider selects which client library talks to a model slot.
type Provider string

const (
	// ProviderOpenAI uses the go-openai client directly. Any service with
	// an OpenAI-compatible API (Mistral, Groq) works through it.
	ProviderOpenAI Provider = "openai"

	// ProviderLangChain goes through the langchaingo adapter, for
	// providers only reachable in that ecosystem.
	ProviderLangChain Provider = "langchain"
)

// Valid reports whether the provider is a known one. The zero value counts
// as ProviderOpenAI.
func (p Provider) Valid() bool {
	return p == "" || p == ProviderOpenAI || p == ProviderLangChain
}

// ModelConfig configures one model slot.
type ModelConfig struct {
	Provider Provider
	Name     string
	APIKey   string
	BaseURL  string
}

// Config holds everything the server needs to start.
type Config struct {
	Host string
	Port int

	// LogLevel is a golog level name (debug, info, warn, error, disable).
	LogLevel string

	// Reasoning answers analysis and summary questions; Visualization
	// writes chart specs. Either may be empty, the router falls back to
	// the other.
	Reasoning     ModelConfig
	Visualization ModelConfig

	// LLM behavior.
	Temperature float64
	MaxRetries  int

	// Upload limit in bytes.
	MaxUploadSize int64

	// History backend.
	HistoryBackend Backend
	SqlitePath     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisTTL       time.Duration
	PostgresURL    string
}

// Load reads configuration from the environment. If envFile is non-empty
// it is loaded first; a missing default ".env" is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if envFile != ".env" || !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{
		Host: getEnv("DATALYST_HOST", "0.0.0.0"),
		Port: getEnvInt("DATALYST_PORT", 8080),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		Reasoning: ModelConfig{
			Provider: Provider(getEnv("REASONING_PROVIDER", "openai")),
			Name:     getEnv("REASONING_MODEL", "mistral-small-latest"),
			APIKey:   getEnv("REASONING_API_KEY", os.Getenv("MISTRAL_API_KEY")),
			BaseURL:  getEnv("REASONING_BASE_URL", "https://api.mistral.ai/v1"),
		},
		Visualization: ModelConfig{
			Provider: Provider(getEnv("VISUALIZATION_PROVIDER", "openai")),
			Name:     getEnv("VISUALIZATION_MODEL", "llama3-70b-8192"),
			APIKey:   getEnv("VISUALIZATION_API_KEY", os.Getenv("GROQ_API_KEY")),
			BaseURL:  getEnv("VISUALIZATION_BASE_URL", "https://api.groq.com/openai/v1"),
		},

		Temperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
		MaxRetries:  getEnvInt("LLM_MAX_RETRIES", 2),

		MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_SIZE", 10<<20)),

		HistoryBackend: Backend(getEnv("HISTORY_BACKEND", "memory")),
		SqlitePath:     getEnv("SQLITE_PATH", "datalyst.db"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisTTL:       time.Duration(getEnvInt("REDIS_TTL_SECONDS", 0)) * time.Second,
		PostgresURL:    getEnv("POSTGRES_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Reasoning.APIKey == "" && c.Visualization.APIKey == "" {
		return fmt.Errorf("no model configured: set REASONING_API_KEY or VISUALIZATION_API_KEY")
	}
	if c.Reasoning.APIKey != "" && !c.Reasoning.Provider.Valid() {
		return fmt.Errorf("unknown reasoning provider: %s", c.Reasoning.Provider)
	}
	if c.Visualization.APIKey != "" && !c.Visualization.Provider.Valid() {
		return fmt.Errorf("unknown visualization provider: %s", c.Visualization.Provider)
	}
	switch c.HistoryBackend {
	case BackendMemory:
	case BackendSqlite:
		if c.SqlitePath == "" {
			return fmt.Errorf("sqlite backend selected but SQLITE_PATH is empty")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis backend selected but REDIS_ADDR is empty")
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("postgres backend selected but POSTGRES_URL is empty")
		}
	default:
		return fmt.Errorf("unknown history backend: %s", c.HistoryBackend)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("invalid upload size limit: %d", c.MaxUploadSize)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
