// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package poster

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
	"github.com/onlineprabhakar/aiosmpp/sms"
)

// MOPoster delivers inbound messages to the configured application
// callback as a form POST. The message body stays base64 encoded.
type MOPoster struct {
	w        *worker
	client   *http.Client
	callback string
	logger   *slog.Logger
}

// NewMO builds a poster draining the MO queue into callbackURL.
func NewMO(broker mq.Broker, names mq.Names, callbackURL string, logger *slog.Logger) *MOPoster {
	p := &MOPoster{
		client:   newClient(),
		callback: callbackURL,
		logger:   logger,
	}
	p.w = &worker{
		broker: broker,
		queue:  names.MO(),
		logger: logger,
		handle: p.handle,
	}
	return p
}

// Run drains the queue until ctx is cancelled.
func (p *MOPoster) Run(ctx context.Context) error {
	return p.w.run(ctx)
}

func (p *MOPoster) handle(ctx context.Context, m mq.Message) {
	var ev sms.MOEvent
	if err := json.Unmarshal(m.Body, &ev); err != nil {
		p.logger.Error("dropping undecodable MO event", slog.Any("error", err))
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
		p.logger.Error("dropping MO event, retry budget exhausted",
			slog.String("id", ev.ID), slog.Any("error", err))
		p.w.ack(ctx, m)
		return
	}

	body, merr := json.Marshal(ev)
	if merr != nil {
		p.logger.Error("dropping unencodable MO event", slog.Any("error", merr))
		p.w.ack(ctx, m)
		return
	}
	p.w.requeue(ctx, m, body, ev.Retries)
}

func (p *MOPoster) post(ctx context.Context, ev sms.MOEvent) error {
	form := url.Values{}
	form.Set("id", ev.ID)
	form.Set("to", ev.To)
	form.Set("from", ev.From)
	form.Set("coding", strconv.Itoa(ev.Coding))
	form.Set("origin-connector", ev.OriginConnector)
	form.Set("msg", ev.Msg)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.callback, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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
