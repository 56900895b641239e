package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Backend names accepted by the registry and cache selectors
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Config holds all configuration for the eduvid service
type Config struct {
	// Server configuration
	HTTPPort int    `env:"EDUVID_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"EDUVID_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Backends for the task registry and the knowledge cache
	RegistryBackend string `env:"REGISTRY_BACKEND" envDefault:"redis"`
	CacheBackend    string `env:"CACHE_BACKEND" envDefault:"redis"`

	Redis    RedisConfig
	Neo4j    Neo4jConfig
	Postgres PostgresConfig
	LLM      LLMConfig
	Storage  StorageConfig
	Renderer RendererConfig
	Workers  WorkerConfig
	Pipeline PipelineConfig
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// Status stream trimming; 0 disables the stream mirror
	StreamMaxLen int64 `env:"REDIS_STREAM_MAX_LEN" envDefault:"10000"`

	// Task record retention; 0 keeps records until removed externally
	TaskRetention time.Duration `env:"REDIS_TASK_RETENTION" envDefault:"0s"`
}

// Neo4jConfig holds knowledge graph connection configuration
type Neo4jConfig struct {
	URI      string `env:"NEO4J_URI" envDefault:"bolt://localhost:7687"`
	Username string `env:"NEO4J_USERNAME" envDefault:"neo4j"`
	Password string `env:"NEO4J_PASSWORD" envDefault:"password"`
	Database string `env:"NEO4J_DATABASE" envDefault:"neo4j"`
}

// PostgresConfig holds relational catalogue configuration
type PostgresConfig struct {
	DSN             string        `env:"POSTGRES_DSN" envDefault:"host=localhost user=postgres password=password dbname=education_platform port=5432 sslmode=disable"`
	MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"POSTGRES_AUTO_MIGRATE" envDefault:"true"`
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey   string `env:"LLM_API_KEY"`
	BaseURL  string `env:"LLM_BASE_URL"`

	RequestTimeout time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"120s"`

	// Default model settings
	Model       string  `env:"LLM_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	Temperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	MaxTokens   int     `env:"LLM_MAX_TOKENS" envDefault:"4096"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Bucket        string `env:"S3_BUCKET_NAME" envDefault:"education-videos"`
	Region        string `env:"S3_REGION" envDefault:"us-west-2"`
	Endpoint      string `env:"S3_ENDPOINT"`
	UsePathStyle  bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}

// RendererConfig holds the manim/ffmpeg rendering configuration
type RendererConfig struct {
	ManimBinary  string `env:"MANIM_BINARY" envDefault:"manim"`
	FFmpegBinary string `env:"FFMPEG_BINARY" envDefault:"ffmpeg"`
	OutputDir    string `env:"MANIM_OUTPUT_DIR" envDefault:"/tmp/manim_outputs"`
	Quality      string `env:"MANIM_QUALITY" envDefault:"high_quality"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"5"`
	QueueSize           int           `env:"WORKER_QUEUE_SIZE" envDefault:"100"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// PipelineConfig holds stage behaviour settings
type PipelineConfig struct {
	CacheTTL       time.Duration `env:"PIPELINE_CACHE_TTL" envDefault:"1h"`
	KnowledgeDepth int           `env:"PIPELINE_KNOWLEDGE_DEPTH" envDefault:"2"`
	StageTimeout   time.Duration `env:"PIPELINE_STAGE_TIMEOUT" envDefault:"300s"` // 5 minutes
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	switch c.RegistryBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("invalid registry backend: %s (must be memory or redis)", c.RegistryBackend)
	}
	switch c.CacheBackend {
	case BackendMemory, BackendRedis, BackendNone:
	default:
		return fmt.Errorf("invalid cache backend: %s (must be memory, redis, or none)", c.CacheBackend)
	}

	if c.UsesRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j URI is required")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres DSN is required")
	}

	// Validate LLM config
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required")
	}
	if c.LLM.Provider != "anthropic" {
		return fmt.Errorf("unsupported LLM provider: %s (only 'anthropic' is supported)", c.LLM.Provider)
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("LLM max tokens must be at least 1")
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}

	// Validate worker config
	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}
	if c.Workers.QueueSize < 1 {
		return fmt.Errorf("worker queue size must be at least 1")
	}

	if c.Pipeline.KnowledgeDepth < 1 {
		return fmt.Errorf("knowledge depth must be at least 1")
	}
	if c.Pipeline.StageTimeout <= 0 {
		return fmt.Errorf("stage timeout must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// UsesRedis reports whether any configured component needs a Redis client
func (c *Config) UsesRedis() bool {
	return c.RegistryBackend == BackendRedis || c.CacheBackend == BackendRedis || c.Redis.StreamMaxLen > 0
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
