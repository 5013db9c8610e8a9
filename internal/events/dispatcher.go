// Package events delivers workout outbox events to Kafka.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/fitlog/internal/metrics"
	"github.com/claude/fitlog/internal/storage"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// HeaderEventType carries the outbox event type on each Kafka message.
const HeaderEventType = "event_type"

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

type outboxStore interface {
	ClaimOutbox(ctx context.Context, limit int) ([]storage.OutboxEvent, error)
	MarkOutboxPublished(ctx context.Context, ids []uuid.UUID) error
	ReleaseOutbox(ctx context.Context, ids []uuid.UUID) error
}

// Dispatcher drains the outbox table into a Kafka topic.
type Dispatcher struct {
	store            outboxStore
	producer         messageWriter
	topic            string
	pollInterval     time.Duration
	batchSize        int
	metrics          *metrics.Manager
	log              *slog.Logger
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(store outboxStore, producer messageWriter, topic string, pollInterval time.Duration, batchSize int, m *metrics.Manager, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:            store,
		producer:         producer,
		topic:            topic,
		pollInterval:     pollInterval,
		batchSize:        batchSize,
		metrics:          m,
		log:              log,
		shutdownComplete: make(chan struct{}),
	}
}

// Start runs the polling loop until ctx is cancelled. Call it in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	for {
		if _, err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Error("outbox dispatch failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until Start has returned.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

// processBatch claims one batch, writes it and marks it published. On a
// write failure the batch is released for the next poll.
func (d *Dispatcher) processBatch(ctx context.Context) (int, error) {
	start := time.Now()

	batch, err := d.store.ClaimOutbox(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claiming outbox: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	defer func() { d.metrics.HistDispatchDuration.Observe(time.Since(start).Seconds()) }()

	ids := make([]uuid.UUID, len(batch))
	msgs := make([]kafka.Message, len(batch))
	for i, ev := range batch {
		ids[i] = ev.ID
		msgs[i] = toMessage(ev)
	}

	if err := d.producer.WriteMessages(ctx, d.topic, msgs...); err != nil {
		d.metrics.CounterEventsFailed.Add(float64(len(batch)))
		if relErr := d.store.ReleaseOutbox(context.WithoutCancel(ctx), ids); relErr != nil {
			d.log.Error("releasing outbox batch", "error", relErr)
		}
		return 0, fmt.Errorf("writing %d events: %w", len(batch), err)
	}

	if err := d.store.MarkOutboxPublished(ctx, ids); err != nil {
		return 0, fmt.Errorf("marking published: %w", err)
	}
	d.metrics.CounterEventsDelivered.Add(float64(len(batch)))
	d.log.Debug("outbox batch delivered", "events", len(batch))
	return len(batch), nil
}

func toMessage(ev storage.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(ev.AggregateID.String()),
		Value: ev.Payload,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(ev.EventType)},
			{Key: "event_id", Value: []byte(ev.ID.String())},
		},
	}
}
