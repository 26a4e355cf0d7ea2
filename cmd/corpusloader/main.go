package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus/pipeline"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus/search"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus/sink"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	dryRun := flag.Bool("dry-run", false, "segment into an in-memory store; no Kafka, no cache invalidation")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
	if *dryRun {
		cfg.Store.URI = sink.SchemeMemory
		cfg.Kafka.Brokers = nil
		cfg.Redis.Addr = ""
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	res, err := run(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("corpus load failed",
			"error", err,
			"kind", apperrors.KindName(err),
			"line", apperrors.LineOf(err),
			"persisted", res.Persisted,
		)
		os.Exit(apperrors.ExitCode(err))
	}
	fmt.Printf("Total processed sentences: %d\n", res.Persisted)
}

func run(ctx context.Context, cfg *config.Config) (pipeline.Result, error) {
	slog.Info("starting corpus loader",
		"input", cfg.Input.Path,
		"output", cfg.Output.Path,
		"batch_size", cfg.Pipeline.BatchSize,
		"queue_depth", cfg.Pipeline.QueueDepth,
	)

	input, err := os.Open(cfg.Input.Path)
	if err != nil {
		return pipeline.Result{}, apperrors.New(apperrors.ErrInput, "opening input file", err)
	}
	defer input.Close()

	store, err := sink.Open(ctx, cfg.Store)
	if err != nil {
		if errors.Is(err, apperrors.ErrConfig) {
			return pipeline.Result{}, err
		}
		return pipeline.Result{}, apperrors.New(apperrors.ErrPersistence, "opening store", err)
	}
	defer store.Close()

	audit, err := sink.CreateTextFile(cfg.Output.Path)
	if err != nil {
		return pipeline.Result{}, err
	}
	defer audit.Close()

	var target sink.Sink = sink.WithRetry(store, resilience.RetryConfig{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		Multiplier:   cfg.Retry.Multiplier,
	})
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		target = sink.WithEvents(target, producer)
		slog.Info("publishing sentence events", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		checker := health.NewChecker()
		checker.Register("store", health.PingCheck(store))
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg, checker)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	p, err := pipeline.New(pipeline.Config{
		FileName:     cfg.Input.Path,
		BatchSize:    cfg.Pipeline.BatchSize,
		MaxLineBytes: cfg.Input.MaxLineBytes,
		StoreTimeout: cfg.Store.Timeout,
		QueueDepth:   cfg.Pipeline.QueueDepth,
	}, target,
		pipeline.WithAuditSink(audit),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logger.WithComponent("pipeline")),
	)
	if err != nil {
		return pipeline.Result{}, err
	}
	slog.Info("run started", "run_id", p.RunID())

	res, err := p.Run(ctx, input)
	if err != nil {
		return res, err
	}
	if err := audit.Close(); err != nil {
		return res, err
	}

	if cfg.Redis.Addr != "" {
		invalidateSearchCache(ctx, cfg.Redis)
	}
	return res, nil
}

// invalidateSearchCache drops cached search results so the new sentences are
// visible to the next query. Failure only logs.
func invalidateSearchCache(ctx context.Context, cfg config.RedisConfig) {
	client, err := pkgredis.NewClient(ctx, cfg)
	if err != nil {
		slog.Warn("search cache unavailable, skipping invalidation", "addr", cfg.Addr, "error", err)
		return
	}
	defer client.Close()
	if err := search.NewQueryCache(client, cfg.CacheTTL).Invalidate(ctx); err != nil {
		slog.Warn("search cache invalidation failed", "error", err)
	}
}
