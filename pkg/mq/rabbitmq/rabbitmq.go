// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package rabbitmq implements the queue broker on RabbitMQ. Delayed
// publishes go through a per-queue wait queue whose dead letter exchange
// routes expired messages back onto the work queue.
package rabbitmq

import (
	"context"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
)

var _ mq.Broker = (*broker)(nil)

type broker struct {
	conn *amqp.Connection

	mu       sync.Mutex
	ch       *amqp.Channel
	declared map[string]bool
}

// New dials RabbitMQ and opens a channel with prefetch 1.
func New(url string) (mq.Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &broker{
		conn:     conn,
		ch:       ch,
		declared: make(map[string]bool),
	}, nil
}

func (b *broker) Ensure(_ context.Context, queue string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.declared[queue] {
		return nil
	}

	if _, err := b.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}

	// Companion wait queue for delayed redelivery.
	_, err := b.ch.QueueDeclare(queue+".wait", true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue,
	})
	if err != nil {
		return err
	}

	b.declared[queue] = true

	return nil
}

func (b *broker) Publish(ctx context.Context, queue string, body []byte, delay time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	target := queue
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}

	if delay = mq.ClampDelay(delay); delay > 0 {
		target = queue + ".wait"
		pub.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	}

	return b.ch.PublishWithContext(ctx, "", target, false, false, pub)
}

func (b *broker) Receive(_ context.Context, queue string, max int) ([]mq.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs := make([]mq.Message, 0, max)
	for len(msgs) < max {
		d, ok, err := b.ch.Get(queue, false)
		if err != nil {
			return msgs, err
		}
		if !ok {
			break
		}

		msgs = append(msgs, mq.Message{
			ID:     d.MessageId,
			Handle: strconv.FormatUint(d.DeliveryTag, 10),
			Body:   d.Body,
		})
	}

	return msgs, nil
}

func (b *broker) Ack(_ context.Context, _ string, msg mq.Message) error {
	tag, err := strconv.ParseUint(msg.Handle, 10, 64)
	if err != nil {
		return errors.Wrap(errors.ErrMalformedEntity, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.ch.Ack(tag, false)
}

func (b *broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ch.Close(); err != nil {
		return err
	}
	return b.conn.Close()
}
