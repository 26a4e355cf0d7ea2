package sink

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/resilience"
)

// WithRetry retries EnsureTextIndex and InsertBatch with exponential backoff.
// With cfg.MaxAttempts <= 1 it returns inner unchanged.
func WithRetry(inner Sink, cfg resilience.RetryConfig) Sink {
	if !cfg.Enabled() {
		return inner
	}
	return &retrySink{inner: inner, cfg: cfg}
}

type retrySink struct {
	inner Sink
	cfg   resilience.RetryConfig
}

func (r *retrySink) EnsureTextIndex(ctx context.Context) error {
	return resilience.Retry(ctx, "ensure-text-index", r.cfg, func() error {
		return permanentOnCancel(ctx, r.inner.EnsureTextIndex(ctx))
	})
}

func (r *retrySink) InsertBatch(ctx context.Context, records []corpus.SentenceRecord) error {
	return resilience.Retry(ctx, "insert-batch", r.cfg, func() error {
		return permanentOnCancel(ctx, r.inner.InsertBatch(ctx, records))
	})
}

func permanentOnCancel(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return resilience.Permanent(err)
	}
	return err
}

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// WithEvents publishes one SentenceEvent per record, keyed by file name,
// after inner has persisted the batch. A publish failure fails the insert,
// though the rows already committed by inner stay.
func WithEvents(inner Sink, pub EventPublisher) Sink {
	return &eventSink{inner: inner, pub: pub, now: time.Now}
}

type eventSink struct {
	inner Sink
	pub   EventPublisher
	now   func() time.Time
}

func (e *eventSink) EnsureTextIndex(ctx context.Context) error {
	return e.inner.EnsureTextIndex(ctx)
}

func (e *eventSink) InsertBatch(ctx context.Context, records []corpus.SentenceRecord) error {
	if err := e.inner.InsertBatch(ctx, records); err != nil {
		return err
	}
	ingestedAt := e.now().UTC()
	events := make([]kafka.Event, 0, len(records))
	for _, r := range records {
		events = append(events, kafka.Event{
			Key: r.FileName,
			Value: corpus.SentenceEvent{
				Text:       r.Text,
				FileName:   r.FileName,
				LineNumber: r.LineNumber,
				RunID:      r.RunID,
				IngestedAt: ingestedAt,
			},
		})
	}
	return e.pub.PublishBatch(ctx, events)
}
