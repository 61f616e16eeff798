// Package config loads and validates notecove configuration.
// The engine itself never reads configuration files; the CLI loads a
// Config here and passes the values down as startup parameters.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default tuning values.
const (
	// DefaultMaxChunkChars is the maximum chunk length in characters.
	DefaultMaxChunkChars = 2000

	// DefaultEmbedTimeout bounds a single embedding-model call.
	DefaultEmbedTimeout = 60 * time.Second

	// DefaultQueryCacheSize is the number of query embeddings kept in memory.
	DefaultQueryCacheSize = 1000

	// DefaultMaxResults caps search results when the caller does not.
	DefaultMaxResults = 10

	// DefaultWatchDebounce coalesces filesystem events in watch mode.
	DefaultWatchDebounce = 500 * time.Millisecond
)

// MetricCosine is the only supported similarity metric. The choice is
// fixed: switching metrics silently would change ranking across runs.
const MetricCosine = "cosine"

// Config is the complete notecove configuration.
type Config struct {
	// DataDir holds the SQLite store, logs, and the process lock.
	DataDir string `yaml:"data_dir"`

	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Search     SearchConfig     `yaml:"search"`
	Watch      WatchConfig      `yaml:"watch"`
	Log        LogConfig        `yaml:"log"`
}

// ChunkingConfig configures note splitting.
type ChunkingConfig struct {
	// MaxChunkChars is the maximum chunk length in characters.
	MaxChunkChars int `yaml:"max_chunk_chars"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "static" (offline, default).
	Provider string `yaml:"provider"`
	// Model is the provider-specific model name.
	Model string `yaml:"model"`
	// Timeout bounds a single embedding-model call.
	Timeout time.Duration `yaml:"timeout"`
	// QueryCacheSize is the LRU size for query embeddings.
	QueryCacheSize int `yaml:"query_cache_size"`
}

// SearchConfig configures similarity search.
type SearchConfig struct {
	// Metric is the similarity metric. Only "cosine" is supported.
	Metric string `yaml:"metric"`
	// MaxResults is the default topK when the caller passes none.
	MaxResults int `yaml:"max_results"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is the window for coalescing filesystem events.
	Debounce time.Duration `yaml:"debounce"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DataDir: filepath.Join(home, ".notecove"),
		Chunking: ChunkingConfig{
			MaxChunkChars: DefaultMaxChunkChars,
		},
		Embeddings: EmbeddingsConfig{
			Provider:       "static",
			Timeout:        DefaultEmbedTimeout,
			QueryCacheSize: DefaultQueryCacheSize,
		},
		Search: SearchConfig{
			Metric:     MetricCosine,
			MaxResults: DefaultMaxResults,
		},
		Watch: WatchConfig{
			Debounce: DefaultWatchDebounce,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, filling gaps with defaults and
// applying environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies the small set of supported env overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NOTECOVE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("NOTECOVE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	def := Default()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.Chunking.MaxChunkChars == 0 {
		c.Chunking.MaxChunkChars = def.Chunking.MaxChunkChars
	}
	if c.Embeddings.Provider == "" {
		c.Embeddings.Provider = def.Embeddings.Provider
	}
	if c.Embeddings.Timeout == 0 {
		c.Embeddings.Timeout = def.Embeddings.Timeout
	}
	if c.Embeddings.QueryCacheSize == 0 {
		c.Embeddings.QueryCacheSize = def.Embeddings.QueryCacheSize
	}
	if c.Search.Metric == "" {
		c.Search.Metric = def.Search.Metric
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = def.Search.MaxResults
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = def.Watch.Debounce
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate rejects configurations the engine cannot honor.
func (c *Config) Validate() error {
	if c.Chunking.MaxChunkChars < 64 {
		return fmt.Errorf("chunking.max_chunk_chars must be at least 64, got %d", c.Chunking.MaxChunkChars)
	}
	if c.Search.Metric != MetricCosine {
		return fmt.Errorf("search.metric must be %q, got %q", MetricCosine, c.Search.Metric)
	}
	if c.Embeddings.Timeout <= 0 {
		return fmt.Errorf("embeddings.timeout must be positive, got %s", c.Embeddings.Timeout)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	return nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "notecove.yaml"
	}
	return filepath.Join(home, ".config", "notecove", "config.yaml")
}
