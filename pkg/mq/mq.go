// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package mq defines the work queue contract shared by the HTTP API, the
// SMPP manager and the posters, plus the gateway queue naming scheme.
// Backends live in subpackages; the brokers facade selects one at build
// time.
package mq

import (
	"context"
	"strings"
	"time"
)

// MaxDelay is the longest republish delay a backend must honor. Larger
// requests are clamped.
const MaxDelay = 900 * time.Second

// Message is one received queue message. Handle is the backend's receipt
// token and is only meaningful with the queue it was received from.
type Message struct {
	ID     string
	Handle string
	Body   []byte
}

// Broker is a point-to-point work queue.
type Broker interface {
	// Ensure creates the queue if it does not exist. Idempotent.
	Ensure(ctx context.Context, queue string) error

	// Publish enqueues a payload, optionally delayed.
	Publish(ctx context.Context, queue string, body []byte, delay time.Duration) error

	// Receive fetches up to max messages, long polling where the backend
	// supports it.
	Receive(ctx context.Context, queue string, max int) ([]Message, error)

	// Ack removes a received message from the queue.
	Ack(ctx context.Context, queue string, msg Message) error

	Close() error
}

// ClampDelay bounds a requested delay to what queues support.
func ClampDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxDelay {
		return MaxDelay
	}
	return d
}

// Names derives gateway queue names from a configured prefix and suffix. A
// ".fifo" suffix switches SQS to FIFO queues.
type Names struct {
	Prefix string
	Suffix string
}

// Connector returns the per-connector work queue name.
func (n Names) Connector(connector string) string {
	return n.Prefix + "smppconn_" + Sanitize(connector) + n.Suffix
}

// DLR returns the delivery receipt queue name.
func (n Names) DLR() string {
	return n.Prefix + "dlr" + n.Suffix
}

// MO returns the inbound message queue name.
func (n Names) MO() string {
	return n.Prefix + "mo" + n.Suffix
}

// FIFO reports whether the naming scheme selects FIFO queues.
func (n Names) FIFO() bool {
	return strings.HasSuffix(n.Suffix, ".fifo")
}

// Sanitize maps a connector name onto the queue name alphabet: spaces are
// deleted, anything outside [A-Za-z0-9_-] becomes '-'.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case r == ' ':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
