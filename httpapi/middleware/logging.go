// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/onlineprabhakar/aiosmpp/httpapi"
)

var _ httpapi.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger  *slog.Logger
	service httpapi.Service
}

// LoggingMiddleware adds logging facilities to the send pipeline.
func LoggingMiddleware(service httpapi.Service, logger *slog.Logger) httpapi.Service {
	return &loggingMiddleware{
		logger:  logger,
		service: service,
	}
}

func (lm *loggingMiddleware) Send(ctx context.Context, req httpapi.SendRequest) (id string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("message",
				slog.String("to", req.To),
				slog.String("from", req.From),
				slog.Int("coding", req.Coding),
				slog.Bool("dlr", req.DLR != nil),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Send message failed", args...)
			return
		}
		args = append(args, slog.String("req_id", id))
		lm.logger.Info("Send message completed successfully", args...)
	}(time.Now())

	return lm.service.Send(ctx, req)
}

func (lm *loggingMiddleware) EnsureQueues(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Ensure queues failed", args...)
			return
		}
		lm.logger.Info("Ensure queues completed successfully", args...)
	}(time.Now())

	return lm.service.EnsureQueues(ctx)
}
