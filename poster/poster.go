// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package poster drains the DLR and MO queues and delivers each event to
// its HTTP callback. Failed deliveries are requeued with exponential delay
// and dropped after the retry budget runs out.
package poster

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
)

const (
	// batchSize is how many events one receive drains.
	batchSize = 10

	// maxRetries bounds redeliveries before an event is dropped.
	maxRetries = 10

	// callbackTimeout bounds one callback attempt. Slow receivers get
	// retried, not waited on.
	callbackTimeout = 2 * time.Second

	receiveIdle = 50 * time.Millisecond
)

// retryDelay doubles per attempt: 2s, 4s, 8s... capped at the broker's
// delay ceiling.
func retryDelay(retries int) time.Duration {
	if retries > 30 {
		retries = 30
	}
	return mq.ClampDelay(time.Duration(1<<uint(retries)) * time.Second)
}

func newClient() *http.Client {
	return &http.Client{Timeout: callbackTimeout}
}

// delivered treats any 2xx or 3xx as accepted by the receiver.
func delivered(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// worker runs a queue drain loop around a per-message handler.
type worker struct {
	broker mq.Broker
	queue  string
	logger *slog.Logger
	handle func(ctx context.Context, m mq.Message)
}

func (w *worker) run(ctx context.Context) error {
	if err := w.broker.Ensure(ctx, w.queue); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := w.broker.Receive(ctx, w.queue, batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("receive failed", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if len(msgs) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(receiveIdle):
			}
			continue
		}

		for _, m := range msgs {
			w.handle(ctx, m)
		}
	}
}

func (w *worker) ack(ctx context.Context, m mq.Message) {
	if err := w.broker.Ack(ctx, w.queue, m); err != nil {
		w.logger.Warn("ack failed", slog.Any("error", err))
	}
}

// requeue schedules a failed event for redelivery and acks the original.
// body must already carry the bumped retry count.
func (w *worker) requeue(ctx context.Context, m mq.Message, body []byte, retries int) {
	delay := retryDelay(retries)
	if err := w.broker.Publish(ctx, w.queue, body, delay); err != nil {
		// The original stays unacked and redelivers on its own.
		w.logger.Error("requeue failed", slog.Any("error", err))
		return
	}
	w.logger.Warn("callback failed, requeued",
		slog.Int("retries", retries), slog.String("delay", delay.String()))
	w.ack(ctx, m)
}
