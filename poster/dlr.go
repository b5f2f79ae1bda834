// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
	"github.com/onlineprabhakar/aiosmpp/sms"
)

var errCallbackRejected = errors.New("callback rejected delivery")

// DLRPoster delivers receipt events to the URL each sender registered,
// POST as JSON or GET with query parameters per the requested method.
type DLRPoster struct {
	w      *worker
	client *http.Client
	logger *slog.Logger
}

// NewDLR builds a poster draining the DLR queue.
func NewDLR(broker mq.Broker, names mq.Names, logger *slog.Logger) *DLRPoster {
	p := &DLRPoster{
		client: newClient(),
		logger: logger,
	}
	p.w = &worker{
		broker: broker,
		queue:  names.DLR(),
		logger: logger,
		handle: p.handle,
	}
	return p
}

// Run drains the queue until ctx is cancelled.
func (p *DLRPoster) Run(ctx context.Context) error {
	return p.w.run(ctx)
}

func (p *DLRPoster) handle(ctx context.Context, m mq.Message) {
	var ev sms.DLREvent
	if err := json.Unmarshal(m.Body, &ev); err != nil {
		p.logger.Error("dropping undecodable DLR event", slog.Any("error", err))
		p.w.ack(ctx, m)
		return
	}

	err := p.post(ctx, ev)
	if err == nil {
		p.w.ack(ctx, m)
		return
	}

	ev.Retries++
	if ev.Retries > maxRetries {
		p.logger.Error("dropping DLR event, retry budget exhausted",
			slog.String("id", ev.ID), slog.String("url", ev.URL), slog.Any("error", err))
		p.w.ack(ctx, m)
		return
	}

	body, merr := json.Marshal(ev)
	if merr != nil {
		p.logger.Error("dropping unencodable DLR event", slog.Any("error", merr))
		p.w.ack(ctx, m)
		return
	}
	p.w.requeue(ctx, m, body, ev.Retries)
}

func (p *DLRPoster) post(ctx context.Context, ev sms.DLREvent) error {
	var req *http.Request
	var err error

	switch ev.Method {
	case http.MethodGet:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, ev.URL, nil)
		if err == nil {
			req.URL.RawQuery = dlrQuery(ev).Encode()
		}
	default:
		var body []byte
		body, err = json.Marshal(ev)
		if err == nil {
			req, err = http.NewRequestWithContext(ctx, http.MethodPost, ev.URL, bytes.NewReader(body))
			if req != nil {
				req.Header.Set("Content-Type", "application/json")
			}
		}
	}
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !delivered(resp) {
		return errors.Wrap(errCallbackRejected, errors.New(resp.Status))
	}
	return nil
}

func dlrQuery(ev sms.DLREvent) url.Values {
	q := url.Values{}
	q.Set("id", ev.ID)
	q.Set("id_smsc", ev.IDSMSC)
	q.Set("connector", ev.Connector)
	q.Set("level", strconv.Itoa(ev.Level))
	q.Set("message_status", ev.MessageStatus)
	q.Set("subdate", ev.SubDate)
	q.Set("donedate", ev.DoneDate)
	q.Set("sub", ev.Sub)
	q.Set("dlvrd", ev.Dlvrd)
	q.Set("err", ev.Err)
	q.Set("text", ev.Text)
	return q
}
