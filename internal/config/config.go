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

// Config holds the quizgen pipeline configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Cache     CacheConfig     `yaml:"cache"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Retry     RetryConfig     `yaml:"retry"`
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// PathsConfig holds artifact and input file locations.
type PathsConfig struct {
	ArtifactsDir string `yaml:"artifacts_dir"`
	AreasFile    string `yaml:"areas_file"`
}

// CacheConfig holds page and embedding cache settings.
type CacheConfig struct {
	Driver   string   `yaml:"driver"` // file, redis (default: file)
	Dir      string   `yaml:"dir"`    // for the file driver
	Addrs    []string `yaml:"addrs"`  // for the redis driver
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
}

// LLMConfig holds chat completion settings.
type LLMConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Temperature    float32 `yaml:"temperature"`
	MaxConcurrency int     `yaml:"max_concurrency"`
	TimeoutSec     int     `yaml:"timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// IndexConfig holds chunking and retrieval settings.
type IndexConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

// RetryConfig holds backoff settings for remote calls.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMS int `yaml:"base_delay_ms"`
	MaxDelaySec int `yaml:"max_delay_sec"`
}

// WikipediaConfig holds article fetch settings.
type WikipediaConfig struct {
	BaseURL    string `yaml:"base_url"`
	UserAgent  string `yaml:"user_agent"`
	DelayMS    int    `yaml:"delay_ms"` // minimum spacing between fetches
	TimeoutSec int    `yaml:"timeout_sec"`
}

// PipelineConfig holds stage execution settings.
type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// MetricsConfig holds the prometheus scrape endpoint settings.
type MetricsConfig struct {
	Port int `yaml:"port"` // 0 disables the endpoint
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
	if c.Paths.ArtifactsDir == "" {
		c.Paths.ArtifactsDir = "artifacts"
	}
	if c.Paths.AreasFile == "" {
		c.Paths.AreasFile = "areas.txt"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "file"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = filepath.Join(c.Paths.ArtifactsDir, "cache")
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxConcurrency <= 0 {
		c.LLM.MaxConcurrency = 4
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 120
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = c.LLM.BaseURL
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = c.LLM.APIKey
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Index.ChunkSize <= 0 {
		c.Index.ChunkSize = 128
	}
	if c.Index.ChunkOverlap <= 0 {
		c.Index.ChunkOverlap = 50
	}
	if c.Index.TopK <= 0 {
		c.Index.TopK = 5
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelayMS <= 0 {
		c.Retry.BaseDelayMS = 1000
	}
	if c.Retry.MaxDelaySec <= 0 {
		c.Retry.MaxDelaySec = 60
	}
	if c.Wikipedia.BaseURL == "" {
		c.Wikipedia.BaseURL = "https://en.wikipedia.org/w/api.php"
	}
	if c.Wikipedia.UserAgent == "" {
		c.Wikipedia.UserAgent = "quizgen/1.0"
	}
	if c.Wikipedia.DelayMS <= 0 {
		c.Wikipedia.DelayMS = 100
	}
	if c.Wikipedia.TimeoutSec <= 0 {
		c.Wikipedia.TimeoutSec = 30
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	switch c.Cache.Driver {
	case "file", "redis":
	default:
		return fmt.Errorf("cache.driver must be \"file\" or \"redis\", got %q", c.Cache.Driver)
	}
	if c.Cache.Driver == "redis" && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required for the redis driver")
	}
	if c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf(
			"index.chunk_overlap must be smaller than index.chunk_size, got %d >= %d",
			c.Index.ChunkOverlap, c.Index.ChunkSize,
		)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 0 and 65535, got %d", c.Metrics.Port)
	}
	return nil
}

// RetryBaseDelay returns the configured base backoff delay.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMS) * time.Millisecond
}

// RetryMaxDelay returns the configured backoff ceiling.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Retry.MaxDelaySec) * time.Second
}

// WikipediaDelay returns the minimum spacing between article fetches.
func (c *Config) WikipediaDelay() time.Duration {
	return time.Duration(c.Wikipedia.DelayMS) * time.Millisecond
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
