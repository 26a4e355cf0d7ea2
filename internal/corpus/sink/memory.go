package sink

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus"
)

// MemoryStore is an in-process Store for dry runs and tests. Search matches
// records containing every query term, case-insensitively.
type MemoryStore struct {
	mu      sync.RWMutex
	records []corpus.SentenceRecord
	terms   map[string][]int
	indexed bool
	batches int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{terms: make(map[string][]int)}
}

func (s *MemoryStore) EnsureTextIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexed {
		return nil
	}
	for i, r := range s.records {
		s.indexRecord(i, r)
	}
	s.indexed = true
	return nil
}

func (s *MemoryStore) InsertBatch(ctx context.Context, records []corpus.SentenceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records = append(s.records, r)
		if s.indexed {
			s.indexRecord(len(s.records)-1, r)
		}
	}
	s.batches++
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, query string, limit int) ([]corpus.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.indexed {
		return nil, ErrNoTextIndex
	}
	terms := termsOf(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	counts := make(map[int]int)
	for _, term := range terms {
		seen := make(map[int]struct{})
		for _, idx := range s.terms[term] {
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			counts[idx]++
		}
	}
	matched := make([]int, 0, len(counts))
	for idx, n := range counts {
		if n == len(terms) {
			matched = append(matched, idx)
		}
	}
	sort.Ints(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}

	hits := make([]corpus.SearchHit, 0, len(matched))
	for _, idx := range matched {
		hits = append(hits, corpus.SearchHit{Record: s.records[idx], Score: float64(len(terms))})
	}
	return hits, nil
}

// Records returns a copy of everything inserted so far, in insertion order.
func (s *MemoryStore) Records() []corpus.SentenceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]corpus.SentenceRecord(nil), s.records...)
}

// Batches returns the number of InsertBatch calls.
func (s *MemoryStore) Batches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batches
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) indexRecord(idx int, r corpus.SentenceRecord) {
	for _, term := range termsOf(r.Text) {
		s.terms[term] = append(s.terms[term], idx)
	}
}

func termsOf(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".!?")
		if f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}
