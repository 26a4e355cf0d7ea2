// Package search answers full-text queries over the persisted corpus, with
// an optional Redis result cache in front of the store.
package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/errors"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Querier is satisfied by every sink.Store.
type Querier interface {
	Search(ctx context.Context, query string, limit int) ([]corpus.SearchHit, error)
}

// Result is what a search returns and what the cache stores.
type Result struct {
	Query     string             `json:"query"`
	TotalHits int                `json:"total_hits"`
	Hits      []corpus.SearchHit `json:"hits"`
	TookMs    int64              `json:"took_ms"`
}

type Searcher struct {
	store  Querier
	cache  *QueryCache
	logger *slog.Logger
}

// New creates a Searcher. cache may be nil.
func New(store Querier, cache *QueryCache) *Searcher {
	return &Searcher{
		store:  store,
		cache:  cache,
		logger: slog.Default().With("component", "searcher"),
	}
}

// Search runs query with limit clamped to [1, MaxLimit]. The bool reports
// whether the result came from the cache.
func (s *Searcher) Search(ctx context.Context, query string, limit int) (*Result, bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false, apperrors.Newf(apperrors.ErrInvalidInput, "searching corpus", "query is empty")
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	compute := func() (*Result, error) {
		start := time.Now()
		hits, err := s.store.Search(ctx, query, limit)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrPersistence, "searching corpus", err)
		}
		if hits == nil {
			hits = []corpus.SearchHit{}
		}
		return &Result{
			Query:     query,
			TotalHits: len(hits),
			Hits:      hits,
			TookMs:    time.Since(start).Milliseconds(),
		}, nil
	}

	if s.cache == nil {
		result, err := compute()
		return result, false, err
	}
	result, cached, err := s.cache.GetOrCompute(ctx, query, limit, compute)
	if err != nil {
		return nil, false, err
	}
	s.logger.Debug("search served", "query", query, "hits", result.TotalHits, "cached", cached)
	return result, cached, nil
}
