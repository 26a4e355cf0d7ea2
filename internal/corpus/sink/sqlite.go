package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus"
)

// SQLiteStore keeps sentences in a local SQLite file with an FTS5
// external-content index kept in sync by an insert trigger.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (or creates) the database at path. ":memory:" gives a
// private in-process database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("opening sqlite: empty path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "sqlite-store", "path", path),
	}, nil
}

// initSchema creates the base table if it doesn't exist.
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS corpus (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	file_name TEXT NOT NULL,
	line_number INTEGER NOT NULL,
	run_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating corpus table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) EnsureTextIndex(ctx context.Context) error {
	var existing int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'corpus_fts'`).Scan(&existing); err != nil {
		return fmt.Errorf("checking text index: %w", err)
	}
	statements := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS corpus_fts USING fts5(text, content='corpus', content_rowid='id')`,
		`CREATE TRIGGER IF NOT EXISTS corpus_fts_ai AFTER INSERT ON corpus BEGIN
			INSERT INTO corpus_fts(rowid, text) VALUES (new.id, new.text);
		END`,
	}
	if existing == 0 {
		// Rows written before the index existed must be indexed too.
		statements = append(statements, `INSERT INTO corpus_fts(corpus_fts) VALUES ('rebuild')`)
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating text index: %w", err)
		}
	}
	s.logger.Info("text index ensured", "created", existing == 0)
	return nil
}

func (s *SQLiteStore) InsertBatch(ctx context.Context, records []corpus.SentenceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO corpus (text, file_name, line_number, run_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Text, r.FileName, r.LineNumber, r.RunID); err != nil {
			return fmt.Errorf("inserting record from line %d: %w", r.LineNumber, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch of %d: %w", len(records), err)
	}
	s.logger.Debug("batch inserted", "count", len(records))
	return nil
}

// Search runs an implicit-AND FTS5 query; every whitespace-separated term is
// quoted so user input never reaches the FTS5 query grammar.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]corpus.SearchHit, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT c.text, c.file_name, c.line_number, c.run_id, bm25(corpus_fts) AS score
  FROM corpus_fts
  JOIN corpus c ON c.id = corpus_fts.rowid
 WHERE corpus_fts MATCH ?
 ORDER BY score, c.id
 LIMIT ?`, match, limit)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, ErrNoTextIndex
		}
		return nil, fmt.Errorf("searching corpus: %w", err)
	}
	defer rows.Close()

	var hits []corpus.SearchHit
	for rows.Next() {
		var hit corpus.SearchHit
		var bm25 float64
		if err := rows.Scan(&hit.Record.Text, &hit.Record.FileName, &hit.Record.LineNumber,
			&hit.Record.RunID, &bm25); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		// bm25() is lower-is-better; flip it so every store ranks high-first.
		hit.Score = -bm25
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Count returns the number of stored sentences.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpus`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting corpus: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func ftsQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}
