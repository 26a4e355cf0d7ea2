package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus/search"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus/sink"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	query := flag.String("q", "", "full-text query")
	limit := flag.Int("limit", search.DefaultLimit, "maximum number of hits")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
	if strings.TrimSpace(cfg.Store.URI) == "" {
		fmt.Fprintln(os.Stderr, "invalid config: missing required settings: STORE_URI")
		os.Exit(2)
	}
	if strings.TrimSpace(*query) == "" {
		fmt.Fprintln(os.Stderr, "usage: corpussearch -q \"terms\" [-limit n]")
		os.Exit(2)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *query, *limit); err != nil {
		slog.Error("search failed", "error", err, "kind", apperrors.KindName(err))
		stop()
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config, query string, limit int) error {
	store, err := sink.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	var cache *search.QueryCache
	if cfg.Redis.Addr != "" {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("search cache unavailable, querying store directly", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer client.Close()
			cache = search.NewQueryCache(client, cfg.Redis.CacheTTL)
		}
	}

	result, cached, err := search.New(store, cache).Search(ctx, query, limit)
	if err != nil {
		return err
	}
	fmt.Printf("%d hits for %q (cached=%v, %dms)\n", result.TotalHits, result.Query, cached, result.TookMs)
	for _, hit := range result.Hits {
		fmt.Printf("%.4f\t%s:%d\t%s\n", hit.Score, hit.Record.FileName, hit.Record.LineNumber, hit.Record.Text)
	}
	return nil
}
