// Package pipeline drives one ingest run: it reads newline-delimited text,
// normalizes and segments each line, mirrors every sentence to the audit sink
// and persists sentences in fixed-size batches.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus/batch"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus/normalizer"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus/segmenter"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus/sink"
	apperrors "github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/tracing"
)

// DefaultMaxLineBytes bounds a single input line.
const DefaultMaxLineBytes = 1 << 20

// Config describes one run.
type Config struct {
	// FileName is recorded on every sentence as its source.
	FileName string
	// RunID tags every record; a new ULID is generated when empty.
	RunID        string
	BatchSize    int
	MaxLineBytes int
	// StoreTimeout bounds each store call. Zero means no limit.
	StoreTimeout time.Duration
	// QueueDepth > 0 hands full batches to a dispatcher goroutine through a
	// queue of that capacity. Zero flushes inline.
	QueueDepth int
}

// Result summarizes a run. On failure it holds the counts reached so far.
type Result struct {
	Lines     int
	Sentences int64
	Persisted int64
	Batches   int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAuditSink mirrors every emitted sentence to s.
func WithAuditSink(s sink.LineSink) Option {
	return func(p *Pipeline) { p.audit = s }
}

// WithMetrics records run progress on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger replaces the default component logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline owns the store and audit sink for the runs it executes. A
// Pipeline runs one input at a time.
type Pipeline struct {
	cfg     Config
	store   sink.Sink
	audit   sink.LineSink
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New validates cfg and applies defaults.
func New(cfg Config, s sink.Sink, opts ...Option) (*Pipeline, error) {
	if s == nil {
		return nil, apperrors.Newf(apperrors.ErrConfig, "creating pipeline", "sink is required")
	}
	if cfg.FileName == "" {
		return nil, apperrors.Newf(apperrors.ErrConfig, "creating pipeline", "file name is required")
	}
	if cfg.QueueDepth < 0 {
		return nil, apperrors.Newf(apperrors.ErrConfig, "creating pipeline", "queue depth must not be negative, got %d", cfg.QueueDepth)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = batch.DefaultSize
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = DefaultMaxLineBytes
	}
	if cfg.RunID == "" {
		cfg.RunID = corpus.NewRunID()
	}
	p := &Pipeline{
		cfg:    cfg,
		store:  s,
		logger: slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// RunID returns the identifier stamped on this pipeline's records.
func (p *Pipeline) RunID() string {
	return p.cfg.RunID
}

// Run ingests r. It stops at the first error; rows already flushed stay in
// the store and the unflushed remainder is discarded.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (Result, error) {
	ctx = logger.WithRunID(ctx, p.cfg.RunID)
	ctx, span := tracing.StartSpan(ctx, "ingest", p.cfg.RunID)
	span.SetAttr("file", p.cfg.FileName)

	st := &run{
		p:   p,
		log: p.logger.With("run_id", p.cfg.RunID, "file", p.cfg.FileName),
	}
	start := time.Now()
	err := p.run(ctx, st, r)
	res := st.result()

	span.SetAttr("lines", res.Lines)
	span.SetAttr("persisted", res.Persisted)
	if err != nil {
		span.SetAttr("error", err.Error())
	}
	span.End()
	span.Log(ctx, st.log)

	if err != nil {
		st.log.Error("ingest failed",
			"error", err,
			"kind", apperrors.KindName(err),
			"line", apperrors.LineOf(err),
			"lines", res.Lines,
			"persisted", res.Persisted,
		)
		return res, err
	}
	st.log.Info("ingest complete",
		"lines", res.Lines,
		"sentences", res.Sentences,
		"persisted", res.Persisted,
		"batches", res.Batches,
		"duration", time.Since(start),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, st *run, r io.Reader) error {
	err := resilience.WithTimeout(ctx, p.cfg.StoreTimeout, "ensure-text-index", p.store.EnsureTextIndex)
	if err != nil {
		return persistenceErr("ensuring text index", err)
	}
	if p.cfg.QueueDepth > 0 {
		err = st.queued(ctx, r)
	} else {
		err = st.inline(ctx, r)
	}
	if err != nil {
		return err
	}
	return st.flushAudit()
}

// run carries the counters of a single Run call. sentences and lines belong
// to the reading goroutine; persisted and batches to whichever goroutine
// flushes.
type run struct {
	p   *Pipeline
	log *slog.Logger

	auditMu sync.Mutex

	lines     int
	sentences int64
	persisted int64
	batches   int
}

func (st *run) result() Result {
	return Result{
		Lines:     st.lines,
		Sentences: st.sentences,
		Persisted: st.persisted,
		Batches:   st.batches,
	}
}

// inline flushes each full batch on the reading goroutine, so at most one
// store call is ever outstanding.
func (st *run) inline(ctx context.Context, r io.Reader) error {
	acc := batch.New(st.p.cfg.BatchSize, st.flush)
	if err := st.read(ctx, r, acc.Add); err != nil {
		return err
	}
	return acc.Close(ctx)
}

// queued reads on one goroutine and flushes on another. Batches stay FIFO
// and the dispatcher issues one store call at a time.
func (st *run) queued(ctx context.Context, r io.Reader) error {
	g, gctx := errgroup.WithContext(ctx)
	pending := make(chan []corpus.SentenceRecord, st.p.cfg.QueueDepth)

	g.Go(func() error {
		for records := range pending {
			if err := st.flush(gctx, records); err != nil {
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		defer close(pending)
		acc := batch.New(st.p.cfg.BatchSize, func(ctx context.Context, records []corpus.SentenceRecord) error {
			select {
			case pending <- records:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err := st.read(gctx, r, acc.Add); err != nil {
			return err
		}
		return acc.Close(gctx)
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// read walks r line by line. Lines are 1-indexed.
func (st *run) read(ctx context.Context, r io.Reader, add func(context.Context, corpus.SentenceRecord) error) error {
	maxLine := st.p.cfg.MaxLineBytes
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo := st.lines + 1
		if lineNo > math.MaxInt32 {
			return apperrors.AtLine(apperrors.ErrInput, "reading input", lineNo,
				fmt.Errorf("line number exceeds %d", math.MaxInt32))
		}
		line := sc.Text()
		if !utf8.ValidString(line) {
			return apperrors.AtLine(apperrors.ErrInput, "decoding input", lineNo, errors.New("invalid UTF-8"))
		}
		st.lines = lineNo

		sentences := segmenter.Split(normalizer.Normalize(line))
		for _, text := range sentences {
			if err := st.appendAudit(text); err != nil {
				return atLine(apperrors.ErrOutput, "writing audit line", lineNo, err)
			}
			rec := corpus.SentenceRecord{
				Text:       text,
				FileName:   st.p.cfg.FileName,
				LineNumber: int32(lineNo),
				RunID:      st.p.cfg.RunID,
			}
			if err := add(ctx, rec); err != nil {
				return atLine(apperrors.ErrPersistence, "adding sentence", lineNo, err)
			}
			st.sentences++
		}

		if m := st.p.metrics; m != nil {
			m.LinesProcessedTotal.Inc()
			m.SentencesEmittedTotal.Add(float64(len(sentences)))
		}
		st.log.Debug("line processed", "line", lineNo, "sentences", len(sentences))
	}
	if err := sc.Err(); err != nil {
		return apperrors.AtLine(apperrors.ErrInput, "reading input", st.lines+1, err)
	}
	return nil
}

// flush persists one batch and then makes the audit file catch up.
func (st *run) flush(ctx context.Context, records []corpus.SentenceRecord) error {
	ctx, span := tracing.StartChildSpan(ctx, "flush-batch")
	defer span.End()
	span.SetAttr("batch_size", len(records))

	start := time.Now()
	err := resilience.WithTimeout(ctx, st.p.cfg.StoreTimeout, "insert-batch", func(ctx context.Context) error {
		return st.p.store.InsertBatch(ctx, records)
	})
	elapsed := time.Since(start)

	m := st.p.metrics
	if err != nil {
		span.SetAttr("error", err.Error())
		if m != nil {
			m.BatchFlushesTotal.WithLabelValues("error").Inc()
		}
		return persistenceErr(fmt.Sprintf("inserting batch %d", st.batches+1), err)
	}

	st.batches++
	st.persisted += int64(len(records))
	if m != nil {
		m.BatchFlushesTotal.WithLabelValues("success").Inc()
		m.BatchFlushDuration.Observe(elapsed.Seconds())
		m.BatchSize.Observe(float64(len(records)))
		m.SentencesPersistedTotal.Add(float64(len(records)))
	}
	if err := st.flushAudit(); err != nil {
		return err
	}
	st.log.Info("batch uploaded",
		"batch", st.batches,
		"size", len(records),
		"uploaded", st.persisted,
		"duration", elapsed,
	)
	return nil
}

func (st *run) appendAudit(text string) error {
	if st.p.audit == nil {
		return nil
	}
	st.auditMu.Lock()
	defer st.auditMu.Unlock()
	return st.p.audit.AppendLine(text)
}

func (st *run) flushAudit() error {
	if st.p.audit == nil {
		return nil
	}
	st.auditMu.Lock()
	defer st.auditMu.Unlock()
	if err := st.p.audit.Flush(); err != nil {
		if errors.Is(err, apperrors.ErrOutput) {
			return err
		}
		return apperrors.New(apperrors.ErrOutput, "flushing audit sink", err)
	}
	return nil
}

func persistenceErr(op string, err error) error {
	if errors.Is(err, apperrors.ErrPersistence) {
		return err
	}
	return apperrors.New(apperrors.ErrPersistence, op, err)
}

// atLine stamps line onto err. An *apperrors.Error without a line keeps its
// kind; anything else is wrapped as kind.
func atLine(kind error, op string, line int, err error) error {
	if appErr, ok := err.(*apperrors.Error); ok {
		if appErr.Line > 0 {
			return err
		}
		stamped := *appErr
		stamped.Line = line
		return &stamped
	}
	return apperrors.AtLine(kind, op, line, err)
}
