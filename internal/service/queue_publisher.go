// Package service holds outbound integrations used by the booking
// lifecycle.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/calendar-booking/internal/queue"
)

// QueuePublisher publishes booking lifecycle events to RabbitMQ. Each
// publish dials its own connection; event volume is one message per booking
// change.
type QueuePublisher struct {
	URL   string
	Queue string
}

// NewQueuePublisher returns nil when url is empty so the lifecycle manager
// runs without events.
func NewQueuePublisher(url string) *QueuePublisher {
	if url == "" {
		return nil
	}
	return &QueuePublisher{URL: url, Queue: queue.BookingQueue}
}

// PublishBookingEvent sends ev as a persistent JSON message.
func (p *QueuePublisher) PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(3 * time.Second)})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		MessageId:    ev.BookingID + ":" + ev.Type,
		Body:         body,
	})
}
