package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the recommender API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Cache     CacheConfig     `yaml:"cache"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Empty keys disable auth.
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

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Driver      string        `yaml:"driver"` // redis, memory, none (default: redis)
	Addrs       []string      `yaml:"addrs"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	KeyPrefix   string        `yaml:"key_prefix"`
	TTLSec      int           `yaml:"ttl_sec"`
	OpTimeoutMs int           `yaml:"op_timeout_ms"`
	MemorySize  int           `yaml:"memory_size"` // max entries for the memory driver
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the cache backend.
type BreakerConfig struct {
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
	OpenSec             int    `yaml:"open_sec"`
}

// VectorConfig holds vector search backend settings.
type VectorConfig struct {
	Driver           string   `yaml:"driver"` // redis, qdrant (default: redis)
	Addrs            []string `yaml:"addrs"`  // redis driver
	Password         string   `yaml:"password"`
	Host             string   `yaml:"host"`      // qdrant driver
	GRPCPort         int      `yaml:"grpc_port"` // qdrant driver (default: 6334)
	UseTLS           bool     `yaml:"use_tls"`
	APIKey           string   `yaml:"api_key"`
	Collection       string   `yaml:"collection"`
	TimeoutSec       int      `yaml:"timeout_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // openai, onnx (default: openai)
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // 0 disables the embedding cache
	ModelPath   string `yaml:"model_path"`    // onnx provider
	MaxTokens   int    `yaml:"max_tokens"`    // onnx provider
	VocabPath   string `yaml:"vocab_path"`    // onnx provider, WordPiece vocab.txt

	// QueryInstruction is prepended to query text before embedding (e5/gte style models).
	QueryInstruction string `yaml:"query_instruction"`
}

// SearchConfig holds request validation bounds.
type SearchConfig struct {
	DefaultTopK   int `yaml:"default_top_k"`
	MaxTopK       int `yaml:"max_top_k"`
	MinTextLength int `yaml:"min_text_length"`
}

// CacheTTL returns the response cache TTL.
func (c CacheConfig) CacheTTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

// OpTimeout returns the per-operation cache timeout.
func (c CacheConfig) OpTimeout() time.Duration { return time.Duration(c.OpTimeoutMs) * time.Millisecond }

// Load reads configuration from a YAML file by environment name (local, dev, docker, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "redis"
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "search"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.OpTimeoutMs <= 0 {
		c.Cache.OpTimeoutMs = 250
	}
	if c.Cache.MemorySize <= 0 {
		c.Cache.MemorySize = 10000
	}
	if c.Cache.Breaker.ConsecutiveFailures == 0 {
		c.Cache.Breaker.ConsecutiveFailures = 5
	}
	if c.Cache.Breaker.OpenSec <= 0 {
		c.Cache.Breaker.OpenSec = 30
	}

	if c.Vector.Driver == "" {
		c.Vector.Driver = "redis"
	}
	if c.Vector.GRPCPort <= 0 {
		c.Vector.GRPCPort = 6334
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = "hm_items"
	}
	if c.Vector.TimeoutSec <= 0 {
		c.Vector.TimeoutSec = 5
	}
	if c.Vector.ReadinessTimeout <= 0 {
		c.Vector.ReadinessTimeout = 10
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "all-MiniLM-L6-v2"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}
	if c.Embedding.MaxTokens <= 0 {
		c.Embedding.MaxTokens = 128
	}

	if c.Search.DefaultTopK <= 0 {
		c.Search.DefaultTopK = 5
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 20
	}
	if c.Search.MinTextLength <= 0 {
		c.Search.MinTextLength = 2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Cache.Driver {
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis driver")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("cache.driver must be \"redis\", \"memory\" or \"none\", got %q", c.Cache.Driver)
	}

	switch c.Vector.Driver {
	case "redis":
		if len(c.Vector.Addrs) == 0 {
			return fmt.Errorf("vector.addrs is required for the redis driver")
		}
	case "qdrant":
		if c.Vector.Host == "" {
			return fmt.Errorf("vector.host is required for the qdrant driver")
		}
	default:
		return fmt.Errorf("vector.driver must be \"redis\" or \"qdrant\", got %q", c.Vector.Driver)
	}

	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.BaseURL == "" {
			return fmt.Errorf("embedding.base_url is required for the openai provider")
		}
	case "onnx":
		if c.Embedding.ModelPath == "" {
			return fmt.Errorf("embedding.model_path is required for the onnx provider")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"onnx\", got %q", c.Embedding.Provider)
	}

	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k (%d) exceeds search.max_top_k (%d)",
			c.Search.DefaultTopK, c.Search.MaxTopK)
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
