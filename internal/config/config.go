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

// Config holds the shopsearch configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Session    SessionConfig    `yaml:"session"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxUploadBytes  int64 `yaml:"max_upload_bytes"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ClientName       string   `yaml:"client_name"`
	DialTimeoutMs    int      `yaml:"dial_timeout_ms"`
	WriteTimeoutMs   int      `yaml:"write_timeout_ms"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout and vector index settings.
type StorageConfig struct {
	KeyPrefix       string `yaml:"key_prefix"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig holds provider credentials and the text/image vectorizers.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"` // keys: "text", "image"
	Dimensions  int                         `yaml:"dimensions"`
	TimeoutMs   int                         `yaml:"timeout_ms"`
	CacheTTLSec int                         `yaml:"cache_ttl_sec"`
}

// ProviderConfig holds an OpenAI-compatible endpoint.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig binds a modality to a provider model.
type VectorizerConfig struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	QueryInstruction string `yaml:"query_instruction"`
}

// SummarizerConfig holds the optional chat-completion reply writer.
type SummarizerConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	TimeoutMs   int     `yaml:"timeout_ms"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// RetrievalConfig holds the tunable thresholds of the retrieval tiers.
type RetrievalConfig struct {
	CategoryThreshold    float64 `yaml:"category_threshold"`
	BroadStrictThreshold float64 `yaml:"broad_strict_threshold"`
	BroadLooseThreshold  float64 `yaml:"broad_loose_threshold"`
	GapCutoff            float64 `yaml:"gap_cutoff"`
	MinKeepScore         float64 `yaml:"min_keep_score"`
	FallbackKeep         int     `yaml:"fallback_keep"`
	IndexTimeoutMs       int     `yaml:"index_timeout_ms"`
	DefaultLimit         int     `yaml:"default_limit"`
	MaxLimit             int     `yaml:"max_limit"`
}

// SessionConfig holds conversation history settings.
type SessionConfig struct {
	HistoryTurns int `yaml:"history_turns"`
	TTLHours     int `yaml:"ttl_hours"`
}

// IngestConfig holds bulk upload settings.
type IngestConfig struct {
	Workers      int `yaml:"workers"`
	MaxBatchSize int `yaml:"max_batch_size"`
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

// Parse decodes YAML, expanding ${VAR} references, then applies defaults and validates.
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
//
//nolint:gocyclo // flat list of defaults
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 15
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		c.HTTP.MaxUploadBytes = 12 << 20
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "shopsearch:"
	}
	if c.Storage.HNSWM <= 0 {
		c.Storage.HNSWM = 16
	}
	if c.Storage.HNSWEFConstruct <= 0 {
		c.Storage.HNSWEFConstruct = 200
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 512
	}
	if c.Embedding.TimeoutMs <= 0 {
		c.Embedding.TimeoutMs = 5000
	}
	if c.Embedding.CacheTTLSec <= 0 {
		c.Embedding.CacheTTLSec = 86400
	}
	if c.Summarizer.TimeoutMs <= 0 {
		c.Summarizer.TimeoutMs = 8000
	}
	if c.Summarizer.MaxTokens <= 0 {
		c.Summarizer.MaxTokens = 300
	}
	c.Retrieval.applyDefaults()
	if c.Session.HistoryTurns <= 0 {
		c.Session.HistoryTurns = 10
	}
	if c.Session.TTLHours <= 0 {
		c.Session.TTLHours = 24 * 7
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 4
	}
	if c.Ingest.MaxBatchSize <= 0 {
		c.Ingest.MaxBatchSize = 500
	}
}

func (r *RetrievalConfig) applyDefaults() {
	if r.CategoryThreshold <= 0 {
		r.CategoryThreshold = 0.5
	}
	if r.BroadStrictThreshold <= 0 {
		r.BroadStrictThreshold = 0.4
	}
	if r.BroadLooseThreshold <= 0 {
		r.BroadLooseThreshold = 0.25
	}
	if r.GapCutoff <= 0 {
		r.GapCutoff = 10
	}
	if r.MinKeepScore <= 0 {
		r.MinKeepScore = 70
	}
	if r.FallbackKeep <= 0 {
		r.FallbackKeep = 3
	}
	if r.IndexTimeoutMs <= 0 {
		r.IndexTimeoutMs = 2000
	}
	if r.DefaultLimit <= 0 {
		r.DefaultLimit = 10
	}
	if r.MaxLimit <= 0 {
		r.MaxLimit = 50
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	for name, v := range c.Embedding.Vectorizers {
		if name != "text" && name != "image" {
			return fmt.Errorf("embedding.vectorizers.%s: only \"text\" and \"image\" are supported", name)
		}
		if _, ok := c.Embedding.Providers[v.Provider]; !ok {
			return fmt.Errorf("embedding.vectorizers.%s: unknown provider %q", name, v.Provider)
		}
	}
	if c.Summarizer.Enabled {
		if _, ok := c.Embedding.Providers[c.Summarizer.Provider]; !ok {
			return fmt.Errorf("summarizer: unknown provider %q", c.Summarizer.Provider)
		}
	}
	r := c.Retrieval
	if r.BroadLooseThreshold > r.BroadStrictThreshold {
		return fmt.Errorf("retrieval.broad_loose_threshold (%g) must not exceed broad_strict_threshold (%g)",
			r.BroadLooseThreshold, r.BroadStrictThreshold)
	}
	for name, v := range map[string]float64{
		"category_threshold":     r.CategoryThreshold,
		"broad_strict_threshold": r.BroadStrictThreshold,
		"broad_loose_threshold":  r.BroadLooseThreshold,
	} {
		if v > 1 {
			return fmt.Errorf("retrieval.%s must be within (0,1], got %g", name, v)
		}
	}
	if r.MinKeepScore > 100 {
		return fmt.Errorf("retrieval.min_keep_score must be within (0,100], got %g", r.MinKeepScore)
	}
	if r.DefaultLimit > r.MaxLimit {
		return fmt.Errorf("retrieval.default_limit (%d) exceeds max_limit (%d)", r.DefaultLimit, r.MaxLimit)
	}
	return nil
}

// EmbeddingTimeout is the per-call provider timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutMs) * time.Millisecond
}

// IndexTimeout is the per-call vector index timeout.
func (c *Config) IndexTimeout() time.Duration {
	return time.Duration(c.Retrieval.IndexTimeoutMs) * time.Millisecond
}

// SummarizerTimeout bounds one reply-writing call.
func (c *Config) SummarizerTimeout() time.Duration {
	return time.Duration(c.Summarizer.TimeoutMs) * time.Millisecond
}

// SessionTTL is how long an idle session keeps its history.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLHours) * time.Hour
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
