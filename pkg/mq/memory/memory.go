// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package memory implements the queue broker in process. It backs tests
// and exposes enough introspection to assert on publish behavior.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
)

var _ mq.Broker = (*Broker)(nil)

type item struct {
	msg     mq.Message
	readyAt time.Time
}

// Broker is an in-process queue broker.
type Broker struct {
	mu       sync.Mutex
	next     int
	queues   map[string][]item
	inflight map[string]mq.Message
	delays   map[string][]time.Duration
	closed   bool
}

// New returns an empty broker.
func New() *Broker {
	return &Broker{
		queues:   make(map[string][]item),
		inflight: make(map[string]mq.Message),
		delays:   make(map[string][]time.Duration),
	}
}

// Ensure creates the queue.
func (b *Broker) Ensure(_ context.Context, queue string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.queues[queue]; !ok {
		b.queues[queue] = nil
	}
	return nil
}

// Publish enqueues a payload; delayed payloads become visible once the
// delay elapses.
func (b *Broker) Publish(_ context.Context, queue string, body []byte, delay time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.ErrConnectionLost
	}

	delay = mq.ClampDelay(delay)

	b.next++
	id := strconv.Itoa(b.next)
	b.queues[queue] = append(b.queues[queue], item{
		msg:     mq.Message{ID: id, Handle: id, Body: append([]byte(nil), body...)},
		readyAt: time.Now().Add(delay),
	})
	b.delays[queue] = append(b.delays[queue], delay)

	return nil
}

// Receive pops up to max visible messages.
func (b *Broker) Receive(_ context.Context, queue string, max int) ([]mq.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.queues[queue]; !ok {
		return nil, errors.ErrQueueNotFound
	}

	now := time.Now()
	var out []mq.Message
	var keep []item

	for _, it := range b.queues[queue] {
		if len(out) < max && !it.readyAt.After(now) {
			b.inflight[it.msg.Handle] = it.msg
			out = append(out, it.msg)
			continue
		}
		keep = append(keep, it)
	}
	b.queues[queue] = keep

	return out, nil
}

// Ack drops a received message.
func (b *Broker) Ack(_ context.Context, _ string, msg mq.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.inflight[msg.Handle]; !ok {
		return errors.ErrNotFound
	}
	delete(b.inflight, msg.Handle)

	return nil
}

// Close stops accepting publishes.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	return nil
}

// Len reports how many messages sit on a queue, visible or not.
func (b *Broker) Len(queue string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[queue])
}

// Delays lists the delay of every publish to a queue, in order.
func (b *Broker) Delays(queue string) []time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]time.Duration(nil), b.delays[queue]...)
}

// Queues lists the queues that have been ensured or published to.
func (b *Broker) Queues() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.queues))
	for q := range b.queues {
		names = append(names, q)
	}
	return names
}
