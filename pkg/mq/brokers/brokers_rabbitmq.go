// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

//go:build rabbitmq
// +build rabbitmq

package brokers

import (
	"context"
	"log"
	"log/slog"

	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq/rabbitmq"
)

func init() {
	log.Println("The binary was built using RabbitMQ as the queue broker")
}

// New builds the queue broker selected at compile time.
func New(_ context.Context, cfg Config, _ *slog.Logger) (mq.Broker, error) {
	return rabbitmq.New(cfg.RabbitMQURL)
}
