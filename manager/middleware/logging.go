// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/onlineprabhakar/aiosmpp/manager"
)

var _ manager.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger  *slog.Logger
	service manager.Service
}

// LoggingMiddleware adds logging facilities to the manager API surface.
func LoggingMiddleware(service manager.Service, logger *slog.Logger) manager.Service {
	return &loggingMiddleware{
		logger:  logger,
		service: service,
	}
}

func (lm *loggingMiddleware) Connectors(ctx context.Context) (statuses map[string]string) {
	defer func(begin time.Time) {
		lm.logger.Info("List connectors completed successfully",
			slog.String("duration", time.Since(begin).String()),
			slog.Int("connectors", len(statuses)),
		)
	}(time.Now())

	return lm.service.Connectors(ctx)
}
