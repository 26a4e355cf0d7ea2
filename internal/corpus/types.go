// Package corpus defines the sentence record, search hit and Kafka event
// types shared by the ingest pipeline, the stores and the search path.
package corpus

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logical names of the persisted sentence collection.
const (
	DatabaseName   = "coca_like_db"
	CollectionName = "corpus"
)

// SentenceRecord is one validated sentence with its provenance.
type SentenceRecord struct {
	Text       string `json:"text"`
	FileName   string `json:"fileName"`
	LineNumber int32  `json:"lineNumber"`
	RunID      string `json:"runId,omitempty"`
}

// SearchHit is a record matched by a full-text query.
type SearchHit struct {
	Record SentenceRecord `json:"record"`
	Score  float64        `json:"score"`
}

// SentenceEvent is the Kafka payload published after a record is persisted.
type SentenceEvent struct {
	Text       string    `json:"text"`
	FileName   string    `json:"file_name"`
	LineNumber int32     `json:"line_number"`
	RunID      string    `json:"run_id"`
	IngestedAt time.Time `json:"ingested_at"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a new lexicographically sortable run identifier.
func NewRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}
