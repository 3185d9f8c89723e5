// Package config loads the pdfrag configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/perbu/pdfrag/pkg/embedder"
	"github.com/perbu/pdfrag/pkg/loader"
	"github.com/perbu/pdfrag/pkg/logging"
	"github.com/perbu/pdfrag/pkg/rag"
)

// DefaultPath is looked up in the working directory when no path is given.
const DefaultPath = "pdfrag.yaml"

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr                string   `yaml:"addr"`
	ReadTimeoutSecs     int      `yaml:"read_timeout_secs"`
	WriteTimeoutSecs    int      `yaml:"write_timeout_secs"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs"`
	CORSOrigins         []string `yaml:"cors_origins"`
	MaxBodyBytes        int64    `yaml:"max_body_bytes"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider    string `yaml:"provider"` // gemini, openai or hash
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	BaseURL     string `yaml:"base_url,omitempty"`
	Dimensions  int    `yaml:"dimensions"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
	// CacheSize is the number of cached query vectors. Zero uses the
	// default size and a negative value disables the cache.
	CacheSize int `yaml:"cache_size"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// IndexerConfig configures document ingestion.
type IndexerConfig struct {
	Workers   int    `yaml:"workers"`
	Extension string `yaml:"extension"`
}

// SearchConfig configures ranking.
type SearchConfig struct {
	DefaultTopK int     `yaml:"default_top_k"`
	MinScore    float64 `yaml:"min_score"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:                ":8000",
			ReadTimeoutSecs:     30,
			WriteTimeoutSecs:    600,
			ShutdownTimeoutSecs: 15,
			CORSOrigins:         []string{"*"},
			MaxBodyBytes:        1 << 20,
		},
		Embedder: EmbedderConfig{
			Provider:    embedder.ProviderGemini,
			Model:       "gemini-embedding-001",
			APIKeyEnv:   "GEMINI_API_KEY",
			BatchSize:   embedder.DefaultBatchSize,
			Concurrency: embedder.DefaultConcurrency,
			TimeoutSecs: 60,
			MaxRetries:  2,
			CacheSize:   embedder.DefaultCacheSize,
		},
		Chunker: ChunkerConfig{
			Size:    loader.DefaultChunkSize,
			Overlap: loader.DefaultChunkOverlap,
		},
		Indexer: IndexerConfig{
			Workers:   rag.DefaultWorkers,
			Extension: ".pdf",
		},
		Search: SearchConfig{
			DefaultTopK: rag.DefaultTopK,
			MinScore:    rag.NoThreshold,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config at path on top of the defaults and applies
// environment overrides. An empty path tries DefaultPath and falls back to
// the defaults when it does not exist.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Fields missing from the file keep their defaults
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if cfg.Embedder.Provider == embedder.ProviderOpenAI {
		if cfg.Embedder.APIKeyEnv == "GEMINI_API_KEY" {
			cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.Model == "gemini-embedding-001" {
			cfg.Embedder.Model = "text-embedding-3-small"
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies PDFRAG_* environment variables.
func (c *AppConfig) applyEnvOverrides() error {
	strs := map[string]*string{
		"PDFRAG_ADDR":              &c.Server.Addr,
		"PDFRAG_EMBEDDER_PROVIDER": &c.Embedder.Provider,
		"PDFRAG_EMBEDDER_MODEL":    &c.Embedder.Model,
		"PDFRAG_EMBEDDER_BASE_URL": &c.Embedder.BaseURL,
		"PDFRAG_API_KEY_ENV":       &c.Embedder.APIKeyEnv,
		"PDFRAG_LOG_LEVEL":         &c.Log.Level,
		"PDFRAG_LOG_FORMAT":        &c.Log.Format,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PDFRAG_BATCH_SIZE":  &c.Embedder.BatchSize,
		"PDFRAG_CONCURRENCY": &c.Embedder.Concurrency,
		"PDFRAG_WORKERS":     &c.Indexer.Workers,
		"PDFRAG_MAX_RETRIES": &c.Embedder.MaxRetries,
	}
	for name, dst := range ints {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", name, v, err)
		}
		*dst = n
	}
	return nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error

	switch strings.ToLower(c.Embedder.Provider) {
	case embedder.ProviderGemini, embedder.ProviderOpenAI, embedder.ProviderHash:
	default:
		errs = append(errs, fmt.Errorf("embedder.provider: unknown provider %q", c.Embedder.Provider))
	}
	if c.Embedder.BatchSize < 1 {
		errs = append(errs, errors.New("embedder.batch_size must be at least 1"))
	}
	if c.Embedder.Concurrency < 1 {
		errs = append(errs, errors.New("embedder.concurrency must be at least 1"))
	}
	if c.Embedder.MaxRetries < 0 {
		errs = append(errs, errors.New("embedder.max_retries must not be negative"))
	}
	if c.Chunker.Size < 1 {
		errs = append(errs, errors.New("chunker.size must be at least 1"))
	}
	if c.Chunker.Overlap < 0 {
		errs = append(errs, errors.New("chunker.overlap must not be negative"))
	}
	if c.Indexer.Workers < 1 {
		errs = append(errs, errors.New("indexer.workers must be at least 1"))
	}
	if !strings.HasPrefix(c.Indexer.Extension, ".") {
		errs = append(errs, fmt.Errorf("indexer.extension %q must start with a dot", c.Indexer.Extension))
	}
	if c.Search.DefaultTopK < 1 {
		errs = append(errs, errors.New("search.default_top_k must be at least 1"))
	}
	if c.Search.MinScore < -1 || c.Search.MinScore > 1 {
		errs = append(errs, errors.New("search.min_score must be within [-1, 1]"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// EmbedderOptions converts the embedder section for embedder.New.
func (c *AppConfig) EmbedderOptions() embedder.Config {
	retry := embedder.DefaultRetryConfig()
	retry.MaxRetries = c.Embedder.MaxRetries

	return embedder.Config{
		Provider:   c.Embedder.Provider,
		Model:      c.Embedder.Model,
		APIKey:     os.Getenv(c.Embedder.APIKeyEnv),
		BaseURL:    c.Embedder.BaseURL,
		Dimensions: c.Embedder.Dimensions,
		Timeout:    time.Duration(c.Embedder.TimeoutSecs) * time.Second,
		Retry:      retry,
	}
}

// EngineOptions converts the ingestion and search sections for rag.NewEngine.
func (c *AppConfig) EngineOptions() rag.Options {
	return rag.Options{
		Workers:        c.Indexer.Workers,
		Extension:      c.Indexer.Extension,
		ChunkSize:      c.Chunker.Size,
		ChunkOverlap:   c.Chunker.Overlap,
		BatchSize:      c.Embedder.BatchSize,
		Concurrency:    c.Embedder.Concurrency,
		QueryCacheSize: c.Embedder.CacheSize,
		MinScore:       c.Search.MinScore,
	}
}

// LoggingConfig converts the log section for logging.Setup.
func (c *AppConfig) LoggingConfig() logging.Config {
	return logging.Config{
		Level:    c.Log.Level,
		Format:   c.Log.Format,
		FilePath: c.Log.File,
	}
}
