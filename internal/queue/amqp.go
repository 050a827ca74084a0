package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/MagnunAVF/affiliate-tracker/internal"
)

// Dial opens a connection and a channel and declares the durable click queue.
func Dial(url, queueName string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue %q: %w", queueName, err)
	}
	return conn, ch, nil
}

// Publisher sends click events to the click queue. A channel is not safe for
// concurrent publishes, hence the mutex.
type Publisher struct {
	mu    sync.Mutex
	ch    *amqp091.Channel
	queue string
}

func NewPublisher(ch *amqp091.Channel, queueName string) *Publisher {
	return &Publisher{ch: ch, queue: queueName}
}

func (p *Publisher) PublishClick(ctx context.Context, ev internal.ClickEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode click %d: %w", ev.ID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx,
		"", p.queue, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    fmt.Sprint(ev.ID),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}
