// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/onlineprabhakar/aiosmpp/httpapi"
)

var _ httpapi.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	service httpapi.Service
}

// MetricsMiddleware instruments the send pipeline by tracking request count
// and latency.
func MetricsMiddleware(service httpapi.Service, counter metrics.Counter, latency metrics.Histogram) httpapi.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		service: service,
	}
}

func (mm *metricsMiddleware) Send(ctx context.Context, req httpapi.SendRequest) (string, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "send").Add(1)
		mm.latency.With("method", "send").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.Send(ctx, req)
}

func (mm *metricsMiddleware) EnsureQueues(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "ensure_queues").Add(1)
		mm.latency.With("method", "ensure_queues").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.EnsureQueues(ctx)
}
