package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/MagnunAVF/affiliate-tracker/internal"
	"github.com/MagnunAVF/affiliate-tracker/internal/store/storetest"
)

type ackRecorder struct {
	mu       sync.Mutex
	acked    []uint64
	nacked   []uint64
	rejected []uint64
	requeued bool
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeued = a.requeued || requeue
	return nil
}

func (a *ackRecorder) Reject(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejected = append(a.rejected, tag)
	return nil
}

func delivery(t *testing.T, ack amqp091.Acknowledger, tag uint64, ev internal.ClickEvent) amqp091.Delivery {
	t.Helper()
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return amqp091.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body}
}

func TestConsumerBatchesAndAcks(t *testing.T) {
	s := storetest.New(t)
	ack := &ackRecorder{}
	c := NewConsumer(s, 2, time.Hour)

	msgs := make(chan amqp091.Delivery, 4)
	msgs <- delivery(t, ack, 1, internal.ClickEvent{ID: 11, ReferralSlugID: 1, OfferID: 1, IPHash: "a"})
	msgs <- delivery(t, ack, 2, internal.ClickEvent{ID: 12, ReferralSlugID: 1, OfferID: 1, IPHash: "b"})
	msgs <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("{not json")}
	// redelivery of an already stored click
	msgs <- delivery(t, ack, 4, internal.ClickEvent{ID: 11, ReferralSlugID: 1, OfferID: 1, IPHash: "a"})
	close(msgs)

	c.Run(context.Background(), msgs)

	if len(ack.acked) != 3 || len(ack.rejected) != 1 || len(ack.nacked) != 0 {
		t.Fatalf("unexpected acks: acked=%v rejected=%v nacked=%v", ack.acked, ack.rejected, ack.nacked)
	}
	n, err := s.CountClicksBySlug(context.Background(), 1)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 stored clicks, got %d", n)
	}
}

type brokenSink struct{}

func (brokenSink) InsertClicks(context.Context, []internal.ClickEvent) error {
	return errors.New("db down")
}

func TestConsumerDropsFailedBatch(t *testing.T) {
	ack := &ackRecorder{}
	c := NewConsumer(brokenSink{}, 10, time.Hour)

	msgs := make(chan amqp091.Delivery, 1)
	msgs <- delivery(t, ack, 1, internal.ClickEvent{ID: 1})
	close(msgs)

	c.Run(context.Background(), msgs)

	if len(ack.nacked) != 1 || ack.requeued {
		t.Fatalf("expected one nack without requeue, got nacked=%v requeued=%v", ack.nacked, ack.requeued)
	}
}

func TestConsumerFlushesOnShutdown(t *testing.T) {
	s := storetest.New(t)
	ack := &ackRecorder{}
	c := NewConsumer(s, 100, time.Hour)

	msgs := make(chan amqp091.Delivery, 1)
	msgs <- delivery(t, ack, 1, internal.ClickEvent{ID: 5, ReferralSlugID: 2, OfferID: 1, IPHash: "x"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, msgs)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		n, _ := s.CountClicksBySlug(context.Background(), 2)
		if n > 0 {
			t.Fatalf("batch flushed before it was full or timed out")
		}
		if len(msgs) == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("message never consumed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done

	n, _ := s.CountClicksBySlug(context.Background(), 2)
	if n != 1 {
		t.Fatalf("expected pending click flushed on shutdown, got %d", n)
	}
}
