// Package batch accumulates sentence records into bounded, insertion-ordered
// batches and hands each full batch to a flush function before accepting the
// next record.
package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus/segmenter"
	apperrors "github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/errors"
)

// DefaultSize is the batch capacity used when none is configured.
const DefaultSize = 1000

// ErrAccumulatorFailed is returned by Add and Close after a flush has failed.
var ErrAccumulatorFailed = errors.New("batch accumulator stopped after failed flush")

// FlushFunc persists one batch. The slice is owned by the callee once called.
type FlushFunc func(ctx context.Context, records []corpus.SentenceRecord) error

// Accumulator collects records and flushes them synchronously every size
// records. It is not safe for concurrent use; the pipeline owns it.
type Accumulator struct {
	size    int
	buffer  []corpus.SentenceRecord
	flush   FlushFunc
	flushes int
	flushed int64
	failed  error
}

// New creates an Accumulator. A non-positive size falls back to DefaultSize.
func New(size int, flush FlushFunc) *Accumulator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Accumulator{
		size:   size,
		buffer: make([]corpus.SentenceRecord, 0, size),
		flush:  flush,
	}
}

// Add appends rec. When the batch reaches capacity it is flushed and cleared
// before Add returns. A record that is not a valid sentence, or has no line
// number, is rejected with ErrInvalidInput and leaves the batch untouched.
func (a *Accumulator) Add(ctx context.Context, rec corpus.SentenceRecord) error {
	if a.failed != nil {
		return fmt.Errorf("%w: %w", ErrAccumulatorFailed, a.failed)
	}
	if rec.LineNumber < 1 || !segmenter.IsValidSentence(rec.Text) {
		return apperrors.AtLine(apperrors.ErrInvalidInput, "adding record", int(rec.LineNumber),
			fmt.Errorf("not a valid sentence: %q", rec.Text))
	}
	a.buffer = append(a.buffer, rec)
	if len(a.buffer) >= a.size {
		return a.flushBuffer(ctx)
	}
	return nil
}

// Close flushes any remainder. An empty remainder issues no flush.
func (a *Accumulator) Close(ctx context.Context) error {
	if a.failed != nil {
		return fmt.Errorf("%w: %w", ErrAccumulatorFailed, a.failed)
	}
	if len(a.buffer) == 0 {
		return nil
	}
	return a.flushBuffer(ctx)
}

// Len returns the number of records waiting for the next flush.
func (a *Accumulator) Len() int {
	return len(a.buffer)
}

// Flushes returns the number of successful flushes.
func (a *Accumulator) Flushes() int {
	return a.flushes
}

// Flushed returns the number of records carried by successful flushes.
func (a *Accumulator) Flushed() int64 {
	return a.flushed
}

// flushBuffer hands the current batch to the flush function. The batch is
// released either way: a failed batch is neither retried nor kept.
func (a *Accumulator) flushBuffer(ctx context.Context) error {
	batch := a.buffer
	a.buffer = make([]corpus.SentenceRecord, 0, a.size)
	if err := a.flush(ctx, batch); err != nil {
		a.failed = err
		if errors.Is(err, apperrors.ErrPersistence) || errors.Is(err, apperrors.ErrOutput) {
			return err
		}
		return apperrors.New(apperrors.ErrPersistence, "flushing batch", err)
	}
	a.flushes++
	a.flushed += int64(len(batch))
	return nil
}
