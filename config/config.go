package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"docrag/internal/domain"
)

const (
	DataDirName = ".docrag"
	FileName    = "docrag.yaml"
)

// Config holds all configuration for docrag.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Search    SearchConfig    `yaml:"search"`
	Context   ContextConfig   `yaml:"context"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ChunkingConfig selects the splitting strategy and its window. Sizes are
// characters, except for the token strategy where they count BPE tokens.
type ChunkingConfig struct {
	Strategy    string   `yaml:"strategy"` // "fixed", "sentence", "recursive", "token"
	ChunkSize   int      `yaml:"chunk_size"`
	OverlapSize int      `yaml:"overlap_size"`
	Encoding    string   `yaml:"encoding"`
	Separators  []string `yaml:"separators,omitempty"`
}

type IngestConfig struct {
	Includes    []string `yaml:"includes"`
	Excludes    []string `yaml:"excludes"`
	MaxFileSize int64    `yaml:"max_file_size"`
	Workers     int      `yaml:"workers"`
}

type SearchConfig struct {
	DefaultType         string        `yaml:"default_type"`
	Limit               int           `yaml:"limit"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	K1                  float64       `yaml:"k1"`
	B                   float64       `yaml:"b"`
	MMREnabled          bool          `yaml:"mmr_enabled"`
	MMRLambda           float64       `yaml:"mmr_lambda"`
	DedupJaccard        float64       `yaml:"dedup_jaccard"`
	RRFK                int           `yaml:"rrf_k"`
	BM25Weight          float64       `yaml:"bm25_weight"`
	CacheSize           int           `yaml:"cache_size"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
}

type ContextConfig struct {
	TokenBudget int    `yaml:"token_budget"`
	Output      string `yaml:"output"` // "json" or "text"
}

type EmbeddingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Provider  string `yaml:"provider"` // "openai", "ollama", "mock"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// StorageConfig picks where vectors live. Documents and the keyword index
// are always kept in the bolt file under the data directory.
type StorageConfig struct {
	VectorBackend  string `yaml:"vector_backend"` // "bolt" or "pgvector"
	PostgresDSNEnv string `yaml:"postgres_dsn_env"`
	PostgresTable  string `yaml:"postgres_table"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Strategy:    "sentence",
			ChunkSize:   domain.DefaultChunkSize,
			OverlapSize: domain.DefaultOverlapSize,
			Encoding:    "cl100k_base",
		},
		Ingest: IngestConfig{
			Includes:    []string{"**/*.txt", "**/*.md", "**/*.markdown", "**/*.pdf", "**/*.csv", "**/*.json", "**/*.yaml", "**/*.yml", "**/*.html", "**/*.xml"},
			Excludes:    []string{"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/.docrag/**", "**/dist/**", "**/build/**"},
			MaxFileSize: 20 << 20,
			Workers:     4,
		},
		Search: SearchConfig{
			DefaultType:  string(domain.SearchKeyword),
			Limit:        10,
			K1:           1.2,
			B:            0.75,
			MMREnabled:   true,
			MMRLambda:    0.7,
			DedupJaccard: 0.8,
			RRFK:         60,
			BM25Weight:   0.5,
			CacheSize:    256,
			CacheTTL:     5 * time.Minute,
		},
		Context: ContextConfig{
			TokenBudget: 4000,
			Output:      "json",
		},
		Embedding: EmbeddingConfig{
			Enabled:   false,
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
		},
		Storage: StorageConfig{
			VectorBackend:  "bolt",
			PostgresDSNEnv: "DOCRAG_POSTGRES_DSN",
			PostgresTable:  "chunk_embeddings",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir looks for docrag.yaml, then .docrag/config.yaml.
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, DataDirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// LoadEnv loads dir/.env into the process environment if present. Variables
// already set are not overridden.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if err := domain.ValidateChunkingParameters(c.Chunking.ChunkSize, c.Chunking.OverlapSize); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if c.Ingest.Workers <= 0 {
		return errors.New("ingest: workers must be positive")
	}
	switch domain.SearchType(c.Search.DefaultType) {
	case domain.SearchKeyword, domain.SearchVector, domain.SearchHybrid:
	default:
		return fmt.Errorf("search: unknown default_type %q", c.Search.DefaultType)
	}
	if c.Search.Limit < 1 || c.Search.Limit > domain.MaxSearchLimit {
		return fmt.Errorf("search: limit must be between 1 and %d", domain.MaxSearchLimit)
	}
	switch c.Storage.VectorBackend {
	case "bolt", "pgvector":
	default:
		return fmt.Errorf("storage: unknown vector_backend %q", c.Storage.VectorBackend)
	}
	if c.Embedding.Enabled && c.Embedding.Dimension <= 0 {
		return errors.New("embedding: dimension must be positive")
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the bolt database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, DataDirName, "index.db")
}

// EnsureDataDir ensures the .docrag directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, DataDirName), 0755)
}
