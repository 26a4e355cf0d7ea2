// Package sink persists sentence batches. It defines the Sink and Store
// contracts, the Postgres, SQLite and in-memory stores that keep a full-text
// index over sentence text, the audit text file, and decorators adding
// bounded retry and Kafka event publication.
package sink

import (
	"context"
	"errors"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/errors"
)

// ErrNoTextIndex is returned by Search before EnsureTextIndex has run.
var ErrNoTextIndex = errors.New("text index not created")

// Sink is what the ingest pipeline writes to.
type Sink interface {
	// EnsureTextIndex creates the full-text index over record text. It is
	// idempotent.
	EnsureTextIndex(ctx context.Context) error
	// InsertBatch persists records in order, all or nothing.
	InsertBatch(ctx context.Context, records []corpus.SentenceRecord) error
}

// Store is a Sink that can also be queried and probed.
type Store interface {
	Sink
	Search(ctx context.Context, query string, limit int) ([]corpus.SearchHit, error)
	Ping(ctx context.Context) error
	Close() error
}

// LineSink receives one line of text per emitted sentence.
type LineSink interface {
	AppendLine(text string) error
	Flush() error
}

// Scheme names accepted by Open.
const (
	SchemePostgres   = "postgres://"
	SchemePostgreSQL = "postgresql://"
	SchemeSQLite     = "sqlite://"
	SchemeMemory     = "memory://"
)

// Open selects a Store backend from the URI scheme in cfg. A lib/pq
// key=value DSN without a scheme is treated as Postgres.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	uri := strings.TrimSpace(cfg.URI)
	switch {
	case strings.HasPrefix(uri, SchemePostgres), strings.HasPrefix(uri, SchemePostgreSQL):
		return OpenPostgres(ctx, cfg)
	case strings.HasPrefix(uri, SchemeSQLite):
		return OpenSQLite(ctx, strings.TrimPrefix(uri, SchemeSQLite))
	case strings.HasPrefix(uri, SchemeMemory):
		return NewMemoryStore(), nil
	case uri != "" && !strings.Contains(uri, "://") && strings.Contains(uri, "="):
		return OpenPostgres(ctx, cfg)
	default:
		return nil, apperrors.Newf(apperrors.ErrConfig, "opening store", "unsupported store URI %q", redact(uri))
	}
}

// redact hides credentials in a URI for error messages.
func redact(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return "<dsn>"
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***" + rest[at:]
	}
	return scheme + "://" + rest
}
