package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the cinemuse service configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Expansion   ExpansionConfig   `yaml:"expansion"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Search      SearchConfig      `yaml:"search"`
	Sync        SyncConfig        `yaml:"sync"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the corpus store (sqlite) settings.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	LogLevel     string `yaml:"log_level"` // silent, error, warn, info (default: warn)
}

// VectorIndexConfig holds the Redis/Valkey vector index settings.
type VectorIndexConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	IndexName        string   `yaml:"index_name"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
	UpsertBatchSize  int      `yaml:"upsert_batch_size"`
	BreakerFailures  uint32   `yaml:"breaker_failures"`
	BreakerCooldown  int      `yaml:"breaker_cooldown_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider      string      `yaml:"provider"` // openai, local (default: local)
	APIKey        string      `yaml:"api_key"`
	BaseURL       string      `yaml:"base_url"`
	Model         string      `yaml:"model"`
	Dimensions    int         `yaml:"dimensions"`
	MaxBatchSize  int         `yaml:"max_batch_size"`
	Cache         bool        `yaml:"cache"`           // requires vector_index (shares the Redis connection)
	CacheTTLHours int         `yaml:"cache_ttl_hours"` // 0 = never expire
	Local         LocalConfig `yaml:"local"`
}

// LocalConfig holds the in-process hashed embedding model settings.
type LocalConfig struct {
	VocabularyPath string `yaml:"vocabulary_path"`
}

// ExpansionConfig holds the LLM query expander settings.
type ExpansionConfig struct {
	Enabled     bool    `yaml:"enabled"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTerms    int     `yaml:"max_terms"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// CatalogConfig holds the external catalog (TMDb) settings.
type CatalogConfig struct {
	Enabled           bool    `yaml:"enabled"`
	APIKey            string  `yaml:"api_key"`
	AccessToken       string  `yaml:"access_token"`
	BaseURL           string  `yaml:"base_url"`
	ImageBaseURL      string  `yaml:"image_base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// SearchConfig holds orchestrator tuning.
type SearchConfig struct {
	TermConcurrency int `yaml:"term_concurrency"`
	SimilarMargin   int `yaml:"similar_margin"`
}

// SyncConfig holds embedding backfill settings.
type SyncConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "file:cinemuse.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 1
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}
	if c.VectorIndex.Driver == "" {
		c.VectorIndex.Driver = "redis"
	}
	if c.VectorIndex.KeyPrefix == "" {
		c.VectorIndex.KeyPrefix = "cinemuse:media:"
	}
	if c.VectorIndex.IndexName == "" {
		c.VectorIndex.IndexName = "cinemuse:media:idx"
	}
	if c.VectorIndex.ReadinessTimeout <= 0 {
		c.VectorIndex.ReadinessTimeout = 10
	}
	if c.VectorIndex.HNSWM <= 0 {
		c.VectorIndex.HNSWM = 16
	}
	if c.VectorIndex.HNSWEFConstruct <= 0 {
		c.VectorIndex.HNSWEFConstruct = 200
	}
	if c.VectorIndex.UpsertBatchSize <= 0 {
		c.VectorIndex.UpsertBatchSize = 100
	}
	if c.VectorIndex.BreakerFailures == 0 {
		c.VectorIndex.BreakerFailures = 5
	}
	if c.VectorIndex.BreakerCooldown <= 0 {
		c.VectorIndex.BreakerCooldown = 30
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "local"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultModel(c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = defaultDimensions(c.Embedding.Provider)
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 128
	}
	if c.Expansion.BaseURL == "" {
		c.Expansion.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.Expansion.Model == "" {
		c.Expansion.Model = "llama3-8b-8192"
	}
	if c.Expansion.Temperature <= 0 {
		c.Expansion.Temperature = 0.1
	}
	if c.Expansion.MaxTerms <= 0 {
		c.Expansion.MaxTerms = 8
	}
	if c.Expansion.TimeoutSec <= 0 {
		c.Expansion.TimeoutSec = 5
	}
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = "https://api.themoviedb.org/3"
	}
	if c.Catalog.ImageBaseURL == "" {
		c.Catalog.ImageBaseURL = "https://image.tmdb.org/t/p"
	}
	if c.Catalog.RequestsPerSecond <= 0 {
		c.Catalog.RequestsPerSecond = 20
	}
	if c.Catalog.TimeoutSec <= 0 {
		c.Catalog.TimeoutSec = 5
	}
	if c.Search.TermConcurrency <= 0 {
		c.Search.TermConcurrency = 4
	}
	if c.Search.SimilarMargin <= 0 {
		c.Search.SimilarMargin = 1
	}
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.VectorIndex.Enabled {
		if len(c.VectorIndex.Addrs) == 0 {
			return fmt.Errorf("vector_index.addrs is required when vector_index.enabled")
		}
		switch c.VectorIndex.Driver {
		case "redis", "valkey":
		default:
			return fmt.Errorf("vector_index.driver must be \"redis\" or \"valkey\", got %q", c.VectorIndex.Driver)
		}
	}
	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.BaseURL == "" {
			return fmt.Errorf("embedding.base_url is required for the openai provider")
		}
	case "local":
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"local\", got %q", c.Embedding.Provider)
	}
	if c.Embedding.MaxBatchSize > 128 {
		return fmt.Errorf("embedding.max_batch_size must be at most 128, got %d", c.Embedding.MaxBatchSize)
	}
	if c.Embedding.CacheTTLHours < 0 {
		return fmt.Errorf("embedding.cache_ttl_hours must be non-negative, got %d", c.Embedding.CacheTTLHours)
	}
	if c.Embedding.Cache && !c.VectorIndex.Enabled {
		return fmt.Errorf("embedding.cache requires vector_index.enabled")
	}
	if c.Sync.BatchSize > c.Embedding.MaxBatchSize {
		return fmt.Errorf("sync.batch_size %d exceeds embedding.max_batch_size %d",
			c.Sync.BatchSize, c.Embedding.MaxBatchSize)
	}
	if c.Catalog.Enabled && c.Catalog.APIKey == "" && c.Catalog.AccessToken == "" {
		return fmt.Errorf("catalog.api_key or catalog.access_token is required when catalog.enabled")
	}
	return nil
}

// ModelVersion identifies the vector space produced by the configured embedding provider.
func (c *EmbeddingConfig) ModelVersion() string {
	return fmt.Sprintf("%s/%s@%d", c.Provider, c.Model, c.Dimensions)
}

func defaultModel(provider string) string {
	if provider == "openai" {
		return "voyage-2"
	}
	return "hash-v1"
}

func defaultDimensions(provider string) int {
	if provider == "openai" {
		return 1024
	}
	return 256
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
