package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"INPUT_FILE_PATH", "STORE_URI", "OUTPUT_FILE_PATH",
		"SC_BATCH_SIZE", "SC_QUEUE_DEPTH", "SC_STORE_TIMEOUT", "SC_METRICS_ENABLED",
		"SC_KAFKA_BROKERS", "SC_LOGGING_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.BatchSize != 1000 {
		t.Errorf("BatchSize = %d, want 1000", cfg.Pipeline.BatchSize)
	}
	if cfg.Retry.MaxAttempts != 1 {
		t.Errorf("Retry.MaxAttempts = %d, want 1", cfg.Retry.MaxAttempts)
	}
	if cfg.Kafka.Enabled() {
		t.Error("Kafka should be disabled without brokers")
	}
	if cfg.Logging.Level != "info" || cfg.Metrics.Port != 9090 {
		t.Errorf("unexpected defaults: %+v %+v", cfg.Logging, cfg.Metrics)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
input:
  path: from-yaml.txt
store:
  uri: sqlite://corpus.db
  timeout: 2s
pipeline:
  batchSize: 50
kafka:
  brokers: ["localhost:9092"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INPUT_FILE_PATH", "from-env.txt")
	t.Setenv("SC_BATCH_SIZE", "7")

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Input.Path != "from-env.txt" {
		t.Errorf("Input.Path = %q, env should win", cfg.Input.Path)
	}
	if cfg.Store.URI != "sqlite://corpus.db" || cfg.Store.Timeout != 2*time.Second {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Pipeline.BatchSize != 7 {
		t.Errorf("BatchSize = %d, want 7", cfg.Pipeline.BatchSize)
	}
	if !cfg.Kafka.Enabled() || cfg.Kafka.Topic != "sentences.ingested" {
		t.Errorf("Kafka = %+v", cfg.Kafka)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "INPUT_FILE_PATH=dotenv.txt\nSTORE_URI=memory://\nOUTPUT_FILE_PATH=out.txt\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OUTPUT_FILE_PATH", "real-env.txt")

	cfg, err := Load("", envFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Input.Path != "dotenv.txt" || cfg.Store.URI != "memory://" {
		t.Errorf("dotenv values not applied: %+v %+v", cfg.Input, cfg.Store)
	}
	if cfg.Output.Path != "real-env.txt" {
		t.Errorf("Output.Path = %q, real environment should win over .env", cfg.Output.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	if _, err := Load("", filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("pipeline: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		path  string
		key   string
		value string
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.yaml")},
		{name: "bad yaml", path: bad},
		{name: "bad int", key: "SC_BATCH_SIZE", value: "lots"},
		{name: "bad duration", key: "SC_STORE_TIMEOUT", value: "soon"},
		{name: "bad bool", key: "SC_METRICS_ENABLED", value: "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key != "" {
				t.Setenv(tt.key, tt.value)
			}
			_, err := Load(tt.path, "")
			if !errors.Is(err, apperrors.ErrConfig) {
				t.Errorf("expected config error, got %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Input.Path = "in.txt"
		cfg.Store.URI = "memory://"
		cfg.Output.Path = "out.txt"
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	missing := defaultConfig()
	err := missing.Validate()
	if !errors.Is(err, apperrors.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	for _, key := range []string{"INPUT_FILE_PATH", "STORE_URI", "OUTPUT_FILE_PATH"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not name %s", err, key)
		}
	}
	if apperrors.ExitCode(err) != 2 {
		t.Errorf("ExitCode = %d, want 2", apperrors.ExitCode(err))
	}

	zeroBatch := valid()
	zeroBatch.Pipeline.BatchSize = 0
	if err := zeroBatch.Validate(); !errors.Is(err, apperrors.ErrConfig) {
		t.Errorf("batch size 0 accepted: %v", err)
	}

	negativeQueue := valid()
	negativeQueue.Pipeline.QueueDepth = -1
	if err := negativeQueue.Validate(); !errors.Is(err, apperrors.ErrConfig) {
		t.Errorf("negative queue depth accepted: %v", err)
	}
}
