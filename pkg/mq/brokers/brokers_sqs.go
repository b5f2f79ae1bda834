// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

//go:build !nats && !rabbitmq
// +build !nats,!rabbitmq

package brokers

import (
	"context"
	"log"
	"log/slog"

	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq/sqs"
)

func init() {
	log.Println("The binary was built using SQS as the queue broker")
}

// New builds the queue broker selected at compile time.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (mq.Broker, error) {
	return sqs.New(ctx, sqs.Config{Region: cfg.SQSRegion, Endpoint: cfg.SQSEndpoint}, logger)
}
