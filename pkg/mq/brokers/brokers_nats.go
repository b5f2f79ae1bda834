// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

//go:build nats
// +build nats

package brokers

import (
	"context"
	"log"
	"log/slog"

	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq/jetstream"
)

func init() {
	log.Println("The binary was built using NATS JetStream as the queue broker")
}

// New builds the queue broker selected at compile time.
func New(_ context.Context, cfg Config, logger *slog.Logger) (mq.Broker, error) {
	return jetstream.New(cfg.NATSURL, logger)
}
