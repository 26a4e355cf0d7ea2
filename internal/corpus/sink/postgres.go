package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/postgres"
)

// PostgresStore keeps sentences in the coca_like_db.corpus table with a GIN
// index over to_tsvector('english', text).
//
//	CREATE TABLE coca_like_db.corpus (
//	    id          BIGSERIAL PRIMARY KEY,
//	    text        TEXT NOT NULL,
//	    file_name   TEXT NOT NULL,
//	    line_number INTEGER NOT NULL,
//	    run_id      TEXT NOT NULL DEFAULT '',
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresStore struct {
	client *postgres.Client
	table  string
	logger *slog.Logger
}

// OpenPostgres connects to cfg.URI and returns a PostgresStore.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	client, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewPostgresStore(client), nil
}

// NewPostgresStore wraps an existing client.
func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{
		client: client,
		table:  pq.QuoteIdentifier(corpus.DatabaseName) + "." + pq.QuoteIdentifier(corpus.CollectionName),
		logger: slog.Default().With("component", "postgres-store"),
	}
}

func (s *PostgresStore) EnsureTextIndex(ctx context.Context) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + pq.QuoteIdentifier(corpus.DatabaseName),
		`CREATE TABLE IF NOT EXISTS ` + s.table + ` (
			id          BIGSERIAL PRIMARY KEY,
			text        TEXT NOT NULL,
			file_name   TEXT NOT NULL,
			line_number INTEGER NOT NULL,
			run_id      TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS corpus_text_fts ON ` + s.table + ` USING GIN (to_tsvector('english', text))`,
	}
	for _, stmt := range statements {
		if _, err := s.client.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating text index: %w", err)
		}
	}
	s.logger.Info("text index ensured", "table", s.table)
	return nil
}

// InsertBatch streams records through COPY inside one transaction.
func (s *PostgresStore) InsertBatch(ctx context.Context, records []corpus.SentenceRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(corpus.DatabaseName, corpus.CollectionName,
			"text", "file_name", "line_number", "run_id"))
		if err != nil {
			return fmt.Errorf("preparing copy: %w", err)
		}
		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.Text, r.FileName, r.LineNumber, r.RunID); err != nil {
				stmt.Close()
				return fmt.Errorf("copying record from line %d: %w", r.LineNumber, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("finishing copy: %w", err)
		}
		return stmt.Close()
	})
	if err != nil {
		return fmt.Errorf("inserting batch of %d: %w", len(records), err)
	}
	s.logger.Debug("batch inserted", "count", len(records))
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, query string, limit int) ([]corpus.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT text, file_name, line_number, run_id,
		        ts_rank(to_tsvector('english', text), q) AS score
		   FROM `+s.table+`, plainto_tsquery('english', $1) q
		  WHERE to_tsvector('english', text) @@ q
		  ORDER BY score DESC, id
		  LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching corpus: %w", err)
	}
	defer rows.Close()

	var hits []corpus.SearchHit
	for rows.Next() {
		var hit corpus.SearchHit
		if err := rows.Scan(&hit.Record.Text, &hit.Record.FileName, &hit.Record.LineNumber,
			&hit.Record.RunID, &hit.Score); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	return s.client.Close()
}
