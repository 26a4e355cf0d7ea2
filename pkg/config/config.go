// Package config loads and validates the corpus loader configuration from a
// YAML file, an optional .env file and environment-variable overrides. It
// provides typed structs for every subsystem (Input, Store, Pipeline, Kafka,
// Redis, Logging, Metrics, Retry).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Store    StoreConfig    `yaml:"store"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Retry    RetryConfig    `yaml:"retry"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InputConfig points at the newline-delimited source text.
type InputConfig struct {
	Path         string `yaml:"path"`
	MaxLineBytes int    `yaml:"maxLineBytes"`
}

// OutputConfig points at the audit file receiving one sentence per line.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig holds the persistent-store connection string and pool settings.
// The URI scheme selects the backend (postgres, sqlite or memory).
type StoreConfig struct {
	URI             string        `yaml:"uri"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	Timeout         time.Duration `yaml:"timeout"`
}

// PipelineConfig controls batching and dispatch.
type PipelineConfig struct {
	BatchSize  int `yaml:"batchSize"`
	QueueDepth int `yaml:"queueDepth"`
}

// RetryConfig controls bounded retry around store calls. MaxAttempts of 1
// disables retrying.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
	Multiplier   float64       `yaml:"multiplier"`
}

// KafkaConfig holds the brokers and topic for sentence events. Publishing is
// off when no brokers are configured.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Enabled reports whether sentence events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

// RedisConfig holds Redis connection and caching parameters for the search
// cache. Caching is off when Addr is empty.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), loads envFile into the
// process environment without overriding variables that are already set, and
// applies environment-variable overrides. A missing envFile is not an error.
func Load(path, envFile string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrConfig, "reading config file "+path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.New(apperrors.ErrConfig, "parsing config file "+path, err)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.New(apperrors.ErrConfig, "loading env file "+envFile, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or out-of-range setting in a single
// ErrConfig error.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Input.Path) == "" {
		missing = append(missing, "INPUT_FILE_PATH")
	}
	if strings.TrimSpace(c.Store.URI) == "" {
		missing = append(missing, "STORE_URI")
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		missing = append(missing, "OUTPUT_FILE_PATH")
	}
	if len(missing) > 0 {
		return apperrors.New(apperrors.ErrConfig, "validating config",
			fmt.Errorf("missing required settings: %s", strings.Join(missing, ", ")))
	}
	if c.Pipeline.BatchSize <= 0 {
		return apperrors.New(apperrors.ErrConfig, "validating config",
			fmt.Errorf("pipeline.batchSize must be positive, got %d", c.Pipeline.BatchSize))
	}
	if c.Pipeline.QueueDepth < 0 {
		return apperrors.New(apperrors.ErrConfig, "validating config",
			fmt.Errorf("pipeline.queueDepth must not be negative, got %d", c.Pipeline.QueueDepth))
	}
	return nil
}

// defaultConfig returns a Config with defaults matching a single local run.
func defaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			MaxLineBytes: 1 << 20,
		},
		Store: StoreConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Pipeline: PipelineConfig{
			BatchSize: 1000,
		},
		Retry: RetryConfig{
			MaxAttempts:  1,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
		Kafka: KafkaConfig{
			Topic: "sentences.ingested",
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads the required settings and SC_* environment
// variables and overrides the corresponding config fields.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("INPUT_FILE_PATH"); v != "" {
		cfg.Input.Path = v
	}
	if v := os.Getenv("STORE_URI"); v != "" {
		cfg.Store.URI = v
	}
	if v := os.Getenv("OUTPUT_FILE_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if err := envInt("SC_BATCH_SIZE", &cfg.Pipeline.BatchSize); err != nil {
		return err
	}
	if err := envInt("SC_QUEUE_DEPTH", &cfg.Pipeline.QueueDepth); err != nil {
		return err
	}
	if err := envInt("SC_MAX_LINE_BYTES", &cfg.Input.MaxLineBytes); err != nil {
		return err
	}
	if v := os.Getenv("SC_STORE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return apperrors.New(apperrors.ErrConfig, "parsing SC_STORE_TIMEOUT", err)
		}
		cfg.Store.Timeout = d
	}
	if err := envInt("SC_RETRY_MAX_ATTEMPTS", &cfg.Retry.MaxAttempts); err != nil {
		return err
	}
	if v := os.Getenv("SC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SC_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("SC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SC_METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return apperrors.New(apperrors.ErrConfig, "parsing SC_METRICS_ENABLED", err)
		}
		cfg.Metrics.Enabled = enabled
	}
	if err := envInt("SC_METRICS_PORT", &cfg.Metrics.Port); err != nil {
		return err
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return apperrors.New(apperrors.ErrConfig, "parsing "+key, err)
	}
	*dst = n
	return nil
}
