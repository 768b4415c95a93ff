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

// Config holds the candex API configuration.
type Config struct {
	HTTP           HTTPConfig        `yaml:"http"`
	Logging        LoggingConfig     `yaml:"logging"`
	Auth           AuthConfig        `yaml:"auth"`
	Cache          CacheConfig       `yaml:"cache"`
	VectorIndex    VectorIndexConfig `yaml:"vector_index"`
	CandidateStore StoreConfig       `yaml:"candidate_store"`
	Interpreter    LLMConfig         `yaml:"interpreter"`
	Embedding      EmbeddingConfig   `yaml:"embedding"`
	Pipeline       PipelineConfig    `yaml:"pipeline"`
	Audit          AuditConfig       `yaml:"audit"`
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

// CacheConfig holds the response cache connection settings.
type CacheConfig struct {
	Addrs               []string `yaml:"addrs"`
	Password            string   `yaml:"password"`
	TTLSec              int      `yaml:"ttl_sec"`
	ReadinessTimeoutSec int      `yaml:"readiness_timeout_sec"`
}

// VectorIndexConfig holds the vector index connection settings.
type VectorIndexConfig struct {
	Addrs               []string      `yaml:"addrs"`
	Password            string        `yaml:"password"`
	IndexName           string        `yaml:"index_name"`
	ReadinessTimeoutSec int           `yaml:"readiness_timeout_sec"`
	Breaker             BreakerConfig `yaml:"breaker"`
}

// StoreConfig holds the relational candidate store settings.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite (default)
	DSN    string `yaml:"dsn"`
}

// LLMConfig holds the query interpretation service settings.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// EmbeddingConfig holds the embedding service settings.
type EmbeddingConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	Breaker    BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds per-service circuit breaker tuning.
type BreakerConfig struct {
	CallTimeoutSec int     `yaml:"call_timeout_sec"`
	FailureRatio   float64 `yaml:"failure_ratio"`
	MinRequests    int     `yaml:"min_requests"`
	WindowSec      int     `yaml:"window_sec"`
	CooldownSec    int     `yaml:"cooldown_sec"`
}

// PipelineConfig holds pipeline-wide settings.
type PipelineConfig struct {
	DeadlineSec int `yaml:"deadline_sec"`
	TopK        int `yaml:"top_k"`
}

// AuditConfig holds audit sink settings.
type AuditConfig struct {
	Workers int `yaml:"workers"`
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

// Per-service call timeouts. Interpretation calls are the slowest, vector
// queries sit in the middle, embeddings are the cheapest.
const (
	defaultInterpreterTimeoutSec = 15
	defaultEmbeddingTimeoutSec   = 5
	defaultVectorTimeoutSec      = 10
)

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
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.ReadinessTimeoutSec <= 0 {
		c.Cache.ReadinessTimeoutSec = 10
	}
	if c.VectorIndex.IndexName == "" {
		c.VectorIndex.IndexName = "candidates"
	}
	if c.VectorIndex.ReadinessTimeoutSec <= 0 {
		c.VectorIndex.ReadinessTimeoutSec = 10
	}
	if c.VectorIndex.Breaker.CallTimeoutSec <= 0 {
		c.VectorIndex.Breaker.CallTimeoutSec = defaultVectorTimeoutSec
	}
	if c.CandidateStore.Driver == "" {
		c.CandidateStore.Driver = "sqlite"
	}
	if c.Interpreter.Model == "" {
		c.Interpreter.Model = "gpt-4o-mini"
	}
	if c.Interpreter.Breaker.CallTimeoutSec <= 0 {
		c.Interpreter.Breaker.CallTimeoutSec = defaultInterpreterTimeoutSec
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Breaker.CallTimeoutSec <= 0 {
		c.Embedding.Breaker.CallTimeoutSec = defaultEmbeddingTimeoutSec
	}
	if c.Pipeline.DeadlineSec <= 0 {
		c.Pipeline.DeadlineSec = 20
	}
	if c.Pipeline.TopK <= 0 {
		c.Pipeline.TopK = 20
	}
	if c.Audit.Workers <= 0 {
		c.Audit.Workers = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required")
	}
	if len(c.VectorIndex.Addrs) == 0 {
		return fmt.Errorf("vector_index.addrs is required")
	}
	if c.CandidateStore.DSN == "" {
		return fmt.Errorf("candidate_store.dsn is required")
	}
	if c.CandidateStore.Driver != "sqlite" {
		return fmt.Errorf("candidate_store.driver must be \"sqlite\", got %q", c.CandidateStore.Driver)
	}
	for name, b := range map[string]BreakerConfig{
		"interpreter":  c.Interpreter.Breaker,
		"embedding":    c.Embedding.Breaker,
		"vector_index": c.VectorIndex.Breaker,
	} {
		if b.FailureRatio < 0 || b.FailureRatio > 1 {
			return fmt.Errorf("%s.breaker.failure_ratio must be between 0 and 1, got %v", name, b.FailureRatio)
		}
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
