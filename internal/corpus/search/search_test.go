package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus/sink"
	apperrors "github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/errors"
)

type mapKV struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMapKV() *mapKV {
	return &mapKV{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *mapKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, redis.Nil
	}
	return v, nil
}

func (m *mapKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mapKV) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

type countingQuerier struct {
	mu    sync.Mutex
	calls int
	hits  []corpus.SearchHit
	err   error
}

func (q *countingQuerier) Search(ctx context.Context, query string, limit int) ([]corpus.SearchHit, error) {
	q.mu.Lock()
	q.calls++
	q.mu.Unlock()
	return q.hits, q.err
}

func seededStore(t *testing.T) *sink.MemoryStore {
	t.Helper()
	ctx := context.Background()
	st := sink.NewMemoryStore()
	if err := st.EnsureTextIndex(ctx); err != nil {
		t.Fatalf("EnsureTextIndex: %v", err)
	}
	err := st.InsertBatch(ctx, []corpus.SentenceRecord{
		{Text: "The cat sat on the mat.", FileName: "a.txt", LineNumber: 1},
		{Text: "A dog chased the cat.", FileName: "a.txt", LineNumber: 2},
		{Text: "Birds sing in the morning.", FileName: "b.txt", LineNumber: 1},
	})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	return st
}

func TestSearchWithoutCache(t *testing.T) {
	s := New(seededStore(t), nil)
	result, cached, err := s.Search(context.Background(), "cat", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if cached {
		t.Error("result reported cached without a cache")
	}
	if result.TotalHits != 2 || len(result.Hits) != 2 {
		t.Errorf("expected 2 hits, got %+v", result)
	}

	result, _, err = s.Search(context.Background(), "unicorn", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Hits == nil || result.TotalHits != 0 {
		t.Errorf("empty result should carry an empty slice, got %+v", result)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	s := New(seededStore(t), nil)
	if _, _, err := s.Search(context.Background(), "   ", 10); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestSearchStoreError(t *testing.T) {
	s := New(sink.NewMemoryStore(), nil)
	_, _, err := s.Search(context.Background(), "cat", 10)
	if !errors.Is(err, apperrors.ErrPersistence) || !errors.Is(err, sink.ErrNoTextIndex) {
		t.Errorf("expected persistence error wrapping ErrNoTextIndex, got %v", err)
	}
}

func TestSearchUsesCache(t *testing.T) {
	q := &countingQuerier{hits: []corpus.SearchHit{{Record: corpus.SentenceRecord{Text: "The cat sat on the mat."}, Score: 1}}}
	kv := newMapKV()
	cache := NewQueryCache(kv, time.Minute)
	s := New(q, cache)
	ctx := context.Background()

	_, cached, err := s.Search(ctx, "Cat  mat", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if cached {
		t.Error("first search should miss")
	}
	result, cached, err := s.Search(ctx, "mat cat", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !cached {
		t.Error("reordered query should hit the cache")
	}
	if result.TotalHits != 1 || result.Hits[0].Record.Text != "The cat sat on the mat." {
		t.Errorf("cached result = %+v", result)
	}
	if q.calls != 1 {
		t.Errorf("store queried %d times, want 1", q.calls)
	}
	for _, ttl := range kv.ttls {
		if ttl != time.Minute {
			t.Errorf("ttl = %v, want 1m", ttl)
		}
	}

	if _, cached, _ := s.Search(ctx, "mat cat", 20); cached {
		t.Error("different limit should miss")
	}
	hits, misses := cache.Stats()
	if hits != 1 || misses < 2 {
		t.Errorf("stats hits=%d misses=%d", hits, misses)
	}
}

func TestSearchDoesNotCacheErrors(t *testing.T) {
	q := &countingQuerier{err: errors.New("boom")}
	kv := newMapKV()
	s := New(q, NewQueryCache(kv, time.Minute))
	if _, _, err := s.Search(context.Background(), "cat", 10); err == nil {
		t.Fatal("expected error")
	}
	if len(kv.data) != 0 {
		t.Errorf("error result was cached")
	}
}

func TestCacheInvalidate(t *testing.T) {
	kv := newMapKV()
	kv.data["unrelated"] = []byte("x")
	cache := NewQueryCache(kv, time.Minute)
	ctx := context.Background()
	cache.Set(ctx, "cat", 10, &Result{Query: "cat"})
	cache.Set(ctx, "dog", 10, &Result{Query: "dog"})

	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if len(kv.data) != 1 {
		t.Errorf("expected only the unrelated key to remain, got %d keys", len(kv.data))
	}
	if _, ok := cache.Get(ctx, "cat", 10); ok {
		t.Error("invalidated entry still served")
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"cat mat", "MAT cat", true},
		{"cat cat mat", "cat mat", true},
		{"cat", "cats", false},
	}
	for _, tt := range tests {
		if got := normalizeQuery(tt.a) == normalizeQuery(tt.b); got != tt.same {
			t.Errorf("normalizeQuery(%q) == normalizeQuery(%q) is %v, want %v", tt.a, tt.b, got, tt.same)
		}
	}
	if !strings.HasPrefix(buildKey("cat", 10), keyPrefix) {
		t.Errorf("key %q missing prefix", buildKey("cat", 10))
	}
}
