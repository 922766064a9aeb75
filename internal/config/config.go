// Package config loads the cospa YAML configuration for the current environment.
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

// Config holds the cospa API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Index      IndexConfig      `yaml:"index"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Search     SearchConfig     `yaml:"search"`
	Quota      QuotaConfig      `yaml:"quota"`
	Events     EventsConfig     `yaml:"events"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys        []string `yaml:"api_keys"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds per-IP rate limits for /api.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"` // 0 = disabled
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	ReplyTimeoutSec int `yaml:"reply_timeout_sec"`
}

// DatabaseConfig selects the conversation store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres, memory (default: postgres)
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

// CacheConfig holds the Redis connection used for the embedding cache and the FT index.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	EmbeddingTTLHour int      `yaml:"embedding_ttl_hours"`
}

// IndexConfig selects the venue vector index.
type IndexConfig struct {
	Driver           string `yaml:"driver"` // redis, qdrant (default: redis)
	Name             string `yaml:"name"`
	Algorithm        string `yaml:"algorithm"`
	HNSWM            int    `yaml:"hnsw_m"`
	HNSWEFConstruct  int    `yaml:"hnsw_ef_construction"`
	QdrantURL        string `yaml:"qdrant_url"`
	QdrantAPIKey     string `yaml:"qdrant_api_key"`
	QdrantCollection string `yaml:"qdrant_collection"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"`
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	BatchSize           int    `yaml:"batch_size"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
	Cache               bool   `yaml:"cache"`
}

// GenerationConfig holds the chat model settings.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // openai, anthropic (default: openai)
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// SearchConfig tunes retrieval and geo clustering.
type SearchConfig struct {
	OverfetchWithLocation    int     `yaml:"overfetch_with_location"`
	OverfetchWithoutLocation int     `yaml:"overfetch_without_location"`
	MaxUserDistanceKm        float64 `yaml:"max_user_distance_km"`
	ClusterRadiusKm          float64 `yaml:"cluster_radius_km"`
	ResultCount              int     `yaml:"result_count"`
}

// QuotaConfig holds the conversation caps.
type QuotaConfig struct {
	MaxActiveConversations     int `yaml:"max_active_conversations"`
	MaxMessagesPerConversation int `yaml:"max_messages_per_conversation"`
}

// EventsConfig holds the NATS turn-event settings. Empty URL disables publishing.
type EventsConfig struct {
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject_prefix"`
}

// TracingConfig holds the OTLP exporter settings. Empty endpoint disables export.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.ReplyTimeoutSec <= 0 {
		c.HTTP.ReplyTimeoutSec = 45
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Cache.EmbeddingTTLHour <= 0 {
		c.Cache.EmbeddingTTLHour = 24 * 30
	}
	if c.Index.Driver == "" {
		c.Index.Driver = "redis"
	}
	if c.Index.Name == "" {
		c.Index.Name = "cospa_sites"
	}
	if c.Index.Algorithm == "" {
		c.Index.Algorithm = "HNSW"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.QdrantCollection == "" {
		c.Index.QdrantCollection = c.Index.Name
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = "openai"
	}
	if c.Generation.Temperature <= 0 {
		c.Generation.Temperature = 0.7
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 800
	}
	if c.Search.ResultCount <= 0 {
		c.Search.ResultCount = 5
	}
	if c.Quota.MaxActiveConversations <= 0 {
		c.Quota.MaxActiveConversations = 3
	}
	if c.Quota.MaxMessagesPerConversation <= 0 {
		c.Quota.MaxMessagesPerConversation = 10
	}
	if c.Events.Stream == "" {
		c.Events.Stream = "COSPA_TURNS"
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "cospa.turns"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be \"postgres\" or \"memory\", got %q", c.Database.Driver)
	}

	switch c.Index.Driver {
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis index")
		}
	case "qdrant":
		if c.Index.QdrantURL == "" {
			return fmt.Errorf("index.qdrant_url is required for the qdrant index")
		}
	default:
		return fmt.Errorf("index.driver must be \"redis\" or \"qdrant\", got %q", c.Index.Driver)
	}
	if c.Embedding.Cache && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when embedding.cache is on")
	}

	switch c.Generation.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("generation.provider must be \"openai\" or \"anthropic\", got %q", c.Generation.Provider)
	}
	if c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be at most 2, got %g", c.Generation.Temperature)
	}

	if c.Search.MaxUserDistanceKm < 0 || c.Search.ClusterRadiusKm < 0 {
		return fmt.Errorf("search distances must not be negative")
	}
	if c.Search.ResultCount > 20 {
		return fmt.Errorf("search.result_count must be at most 20, got %d", c.Search.ResultCount)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be in [0,1], got %g", c.Tracing.SampleRatio)
	}
	return nil
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
