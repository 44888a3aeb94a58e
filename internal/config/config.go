package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ProviderConfig is the connection bundle handed to a provider factory.
// Which fields matter depends on the vendor tag.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string
	Endpoint   string
	APIVersion string
	Model      string
}

type EmbedderConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

type DatabaseConfig struct {
	DSN string
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	SecretID  string
	SecretKey string
	Prefix    string
	UseSSL    bool
}

type FileStoreConfig struct {
	Type string
	Dir  string
	S3   S3Config
}

type CacheConfig struct {
	LRUSize      int
	TTLMinutes   int
	MaxAgeDays   int
	CleanupSpec  string
	EnableDBWrap bool
}

type Config struct {
	DefaultProvider string
	DefaultModel    string
	MaxTokens       int
	Temperature     float64

	ChunkSize           int
	ChunkOverlap        int
	TopKResults         int
	SimilarityThreshold float64

	Providers map[string]ProviderConfig
	Embedder  EmbedderConfig
	VectorStore string

	Database  DatabaseConfig
	FileStore FileStoreConfig
	Cache     CacheConfig

	LogLevel string
	LogFile  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DefaultProvider: getEnv("DEFAULT_LLM_PROVIDER", ""),
		DefaultModel:    getEnv("DEFAULT_MODEL", ""),
		MaxTokens:       getEnvInt("MAX_TOKENS", 2000),
		Temperature:     getEnvFloat("TEMPERATURE", 0.7),

		ChunkSize:           getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:        getEnvInt("CHUNK_OVERLAP", 200),
		TopKResults:         getEnvInt("TOP_K_RESULTS", 5),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.7),

		VectorStore: getEnv("VECTOR_STORE", "memory"),

		Database: DatabaseConfig{
			DSN: getEnv("DATABASE_DSN", ""),
		},
		FileStore: FileStoreConfig{
			Type: getEnv("FILE_STORE_TYPE", "local"),
			Dir:  getEnv("FILE_STORE_DIR", "."),
			S3: S3Config{
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				Region:    getEnv("S3_REGION", "us-east-1"),
				Bucket:    getEnv("S3_BUCKET", ""),
				SecretID:  getEnv("S3_SECRET_ID", ""),
				SecretKey: getEnv("S3_SECRET_KEY", ""),
				Prefix:    getEnv("S3_PREFIX", ""),
				UseSSL:    getEnvBool("S3_USE_SSL", true),
			},
		},
		Cache: CacheConfig{
			LRUSize:      getEnvInt("EMBED_CACHE_SIZE", 10000),
			TTLMinutes:   getEnvInt("EMBED_CACHE_TTL_MINUTES", 120),
			MaxAgeDays:   getEnvInt("EMBED_CACHE_MAX_AGE_DAYS", 30),
			CleanupSpec:  getEnv("EMBED_CACHE_CLEANUP_SPEC", "0 3 * * *"),
			EnableDBWrap: getEnvBool("EMBED_CACHE_DB", false),
		},
		Embedder: EmbedderConfig{
			Provider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			Model:    getEnv("EMBEDDING_MODEL", ""),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	cfg.Providers = map[string]ProviderConfig{
		"ollama": {
			BaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Model:   getEnv("OLLAMA_MODEL", cfg.DefaultModel),
		},
		"openai": {
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		"azure": {
			APIKey:     getEnv("AZURE_OPENAI_API_KEY", ""),
			Endpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			APIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
			Model:      getEnv("AZURE_OPENAI_DEPLOYMENT", "gpt-35-turbo"),
		},
		"anthropic": {
			APIKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:  getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		},
		"gemini": {
			APIKey: getEnv("GOOGLE_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
	}

	switch cfg.Embedder.Provider {
	case "openai":
		cfg.Embedder.APIKey = cfg.Providers["openai"].APIKey
		cfg.Embedder.BaseURL = cfg.Providers["openai"].BaseURL
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = "text-embedding-3-small"
		}
	case "gemini":
		cfg.Embedder.APIKey = cfg.Providers["gemini"].APIKey
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = "text-embedding-004"
		}
	case "ollama":
		cfg.Embedder.BaseURL = cfg.Providers["ollama"].BaseURL
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = "nomic-embed-text"
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within [0,1], got %v", c.SimilarityThreshold)
	}
	switch c.VectorStore {
	case "memory", "postgres":
	default:
		return fmt.Errorf("VECTOR_STORE must be memory or postgres, got %q", c.VectorStore)
	}
	if c.VectorStore == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is required when VECTOR_STORE=postgres")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
