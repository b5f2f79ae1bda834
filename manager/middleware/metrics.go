// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/onlineprabhakar/aiosmpp/manager"
)

var _ manager.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	service manager.Service
}

// MetricsMiddleware instruments the manager API surface by tracking request
// count and latency.
func MetricsMiddleware(service manager.Service, counter metrics.Counter, latency metrics.Histogram) manager.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		service: service,
	}
}

func (mm *metricsMiddleware) Connectors(ctx context.Context) map[string]string {
	defer func(begin time.Time) {
		mm.counter.With("method", "connectors").Add(1)
		mm.latency.With("method", "connectors").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.service.Connectors(ctx)
}
