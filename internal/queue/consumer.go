package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/MagnunAVF/affiliate-tracker/internal"
	"github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/metrics"
)

type ClickSink interface {
	InsertClicks(ctx context.Context, events []internal.ClickEvent) error
}

// Consumer drains the click queue in batches, flushing when a batch is full
// or the flush interval elapses.
type Consumer struct {
	sink       ClickSink
	batchSize  int
	flushEvery time.Duration
}

func NewConsumer(sink ClickSink, batchSize int, flushEvery time.Duration) *Consumer {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushEvery <= 0 {
		flushEvery = 2 * time.Second
	}
	return &Consumer{sink: sink, batchSize: batchSize, flushEvery: flushEvery}
}

// Run consumes until ctx is done or msgs is closed, flushing what is pending
// before returning.
func (c *Consumer) Run(ctx context.Context, msgs <-chan amqp091.Delivery) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(c.flushEvery)
	defer ticker.Stop()

	var events []internal.ClickEvent
	var deliveries []amqp091.Delivery
	flush := func(flushCtx context.Context) {
		c.processBatch(flushCtx, events, deliveries)
		events, deliveries = nil, nil
	}

	for {
		select {
		case <-ctx.Done():
			flush(context.WithoutCancel(ctx))
			return

		case d, ok := <-msgs:
			if !ok {
				log.Warn("click queue channel closed")
				flush(ctx)
				return
			}
			var ev internal.ClickEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil || ev.ID == 0 {
				log.Error("undecodable click message, rejecting", "err", err)
				d.Reject(false)
				continue
			}
			events = append(events, ev)
			deliveries = append(deliveries, d)

			if len(events) >= c.batchSize {
				flush(ctx)
				ticker.Reset(c.flushEvery)
			}

		case <-ticker.C:
			if len(events) > 0 {
				log.Debug("timer flush", "count", len(events))
				flush(ctx)
			}
		}
	}
}

// processBatch writes the batch in one transaction. A failed batch is
// dropped rather than requeued.
func (c *Consumer) processBatch(ctx context.Context, events []internal.ClickEvent, deliveries []amqp091.Delivery) {
	if len(events) == 0 {
		return
	}
	log := logger.FromContext(ctx)

	if err := c.sink.InsertClicks(ctx, events); err != nil {
		log.Error("failed to persist click batch, dropping", "count", len(events), "err", err)
		metrics.ClicksTotal.WithLabelValues("dropped").Add(float64(len(events)))
		for _, d := range deliveries {
			d.Nack(false, false)
		}
		return
	}

	for _, d := range deliveries {
		d.Ack(false)
	}
	metrics.ClicksTotal.WithLabelValues("logged").Add(float64(len(events)))
	log.Info("persisted click batch", "count", len(events))
}
