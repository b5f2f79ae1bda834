// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/onlineprabhakar/aiosmpp/routing"
)

const (
	defaultPollInterval = 120 * time.Second
	pollTimeout         = 5 * time.Second
)

// StatusPoller keeps the route table's view of connector liveness fresh by
// polling the manager's connector listing. Poll failures keep the previous
// view, a stale table beats an empty one.
type StatusPoller struct {
	url      string
	interval time.Duration
	client   *http.Client
	table    *routing.Table
	logger   *slog.Logger
}

// NewStatusPoller polls managerURL/api/v1/smpp/connectors every interval.
// A zero interval selects the default.
func NewStatusPoller(managerURL string, interval time.Duration, table *routing.Table, logger *slog.Logger) *StatusPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &StatusPoller{
		url:      managerURL + "/api/v1/smpp/connectors",
		interval: interval,
		client:   &http.Client{Timeout: pollTimeout},
		table:    table,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. The first poll happens immediately so
// the gateway does not serve 412s for a whole interval after boot.
func (p *StatusPoller) Run(ctx context.Context) error {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *StatusPoller) poll(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.logger.Warn("connector status poll failed", slog.Any("error", err))
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("connector status poll failed", slog.Any("error", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("connector status poll failed", slog.String("status", fmt.Sprintf("%d", resp.StatusCode)))
		return
	}

	var page struct {
		Connectors map[string]string `json:"connectors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		p.logger.Warn("connector status poll returned bad payload", slog.Any("error", err))
		return
	}

	p.table.UpdateConnectorStatus(page.Connectors)
}
