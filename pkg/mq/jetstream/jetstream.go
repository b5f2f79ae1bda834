// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package jetstream implements the queue broker on NATS JetStream. Each
// queue maps to one stream and one durable pull consumer. JetStream has no
// native delayed delivery, so delayed publishes carry a not-before header
// and the receive path NAKs messages back with the remaining delay.
package jetstream

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/nats-io/nats.go"

	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
)

const notBeforeHdr = "Gateway-Not-Before"

var _ mq.Broker = (*broker)(nil)

type broker struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *slog.Logger

	mu       sync.Mutex
	subs     map[string]*nats.Subscription
	inflight map[string]*nats.Msg
}

// New connects to NATS and opens a JetStream context.
func New(url string, logger *slog.Logger) (mq.Broker, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &broker{
		conn:     conn,
		js:       js,
		logger:   logger,
		subs:     make(map[string]*nats.Subscription),
		inflight: make(map[string]*nats.Msg),
	}, nil
}

// streamName maps queue names onto the stream name alphabet; dots are not
// allowed in stream names.
func streamName(queue string) string {
	return strings.ReplaceAll(queue, ".", "_")
}

func (b *broker) Ensure(_ context.Context, queue string) error {
	_, err := b.js.AddStream(&nats.StreamConfig{
		Name:      streamName(queue),
		Subjects:  []string{queue},
		Retention: nats.WorkQueuePolicy,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return err
	}

	b.logger.Info("ensured queue", slog.String("queue", queue))

	return nil
}

func (b *broker) Publish(_ context.Context, queue string, body []byte, delay time.Duration) error {
	msg := nats.NewMsg(queue)
	msg.Data = body

	if delay = mq.ClampDelay(delay); delay > 0 {
		due := time.Now().Add(delay)
		msg.Header.Set(notBeforeHdr, strconv.FormatInt(due.UnixMilli(), 10))
	}

	_, err := b.js.PublishMsg(msg)
	return err
}

func (b *broker) subscription(queue string) (*nats.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[queue]; ok {
		return sub, nil
	}

	sub, err := b.js.PullSubscribe(queue, "gateway-"+streamName(queue), nats.BindStream(streamName(queue)))
	if err != nil {
		return nil, err
	}
	b.subs[queue] = sub

	return sub, nil
}

func (b *broker) Receive(ctx context.Context, queue string, max int) ([]mq.Message, error) {
	sub, err := b.subscription(queue)
	if err != nil {
		return nil, err
	}

	batch, err := sub.Fetch(max, nats.Context(ctx))
	if err != nil {
		if err == nats.ErrTimeout || err == context.DeadlineExceeded {
			return nil, nil
		}
		return nil, err
	}

	msgs := make([]mq.Message, 0, len(batch))
	for _, m := range batch {
		if due, ok := notBefore(m); ok {
			if wait := time.Until(due); wait > 0 {
				if err := m.NakWithDelay(wait); err != nil {
					b.logger.Warn("failed to delay message", slog.Any("error", err))
				}
				continue
			}
		}

		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		handle := id.String()

		b.mu.Lock()
		b.inflight[handle] = m
		b.mu.Unlock()

		msgs = append(msgs, mq.Message{ID: handle, Handle: handle, Body: m.Data})
	}

	return msgs, nil
}

func notBefore(m *nats.Msg) (time.Time, bool) {
	v := m.Header.Get(notBeforeHdr)
	if v == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (b *broker) Ack(_ context.Context, _ string, msg mq.Message) error {
	b.mu.Lock()
	m, ok := b.inflight[msg.Handle]
	delete(b.inflight, msg.Handle)
	b.mu.Unlock()

	if !ok {
		return errors.ErrNotFound
	}
	return m.Ack()
}

func (b *broker) Close() error {
	b.conn.Close()
	return nil
}
