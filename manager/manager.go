// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package manager runs the SMPP side of the gateway: one long lived
// transceiver session per configured connector, consuming submit_sm work
// from the connector queue and turning inbound deliver_sm traffic into DLR
// and MO queue events.
package manager

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/onlineprabhakar/aiosmpp"
	"github.com/onlineprabhakar/aiosmpp/config"
	"github.com/onlineprabhakar/aiosmpp/pdu"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
	"github.com/onlineprabhakar/aiosmpp/smpp"
)

// Connector session statuses as reported to the routing side. Routability
// checks match on the BOUND prefix.
const (
	StatusUnbound = "UNBOUND"
	StatusBound   = "BOUND_TRX"
)

// Session is the slice of an SMPP session the manager drives. smpp.Session
// satisfies it; tests substitute fakes.
type Session interface {
	BindTRX(ctx context.Context) error
	Submit(ctx context.Context, sm *pdu.SubmitSM) (*pdu.SubmitSMResp, pdu.Status, error)
	Delivered() <-chan *pdu.DeliverSM
	Closed() <-chan struct{}
	Close() error
}

// Dialer opens a transport connection for a connector.
type Dialer func(ctx context.Context, cfg smpp.Config) (Session, error)

// SMPPDialer dials real SMSCs.
func SMPPDialer(logger *slog.Logger) Dialer {
	return func(ctx context.Context, cfg smpp.Config) (Session, error) {
		return smpp.Connect(ctx, cfg, logger)
	}
}

// Service is the manager surface the HTTP API exposes.
type Service interface {
	// Connectors reports each connector's session status.
	Connectors(ctx context.Context) map[string]string
}

// Manager supervises every enabled connector.
type Manager struct {
	conns  []*connector
	broker mq.Broker
	names  mq.Names
	logger *slog.Logger
}

var _ Service = (*Manager)(nil)

// New builds a runner per enabled connector.
func New(gateway config.Gateway, broker mq.Broker, names mq.Names, store Store, idp aiosmpp.IDProvider, dial Dialer, logger *slog.Logger) *Manager {
	m := &Manager{broker: broker, names: names, logger: logger}
	for _, cfg := range gateway.Connectors {
		if cfg.Disabled {
			continue
		}
		m.conns = append(m.conns, newConnector(cfg, broker, names, store, idp, dial, logger))
	}
	return m
}

// Run ensures every queue exists and drives every connector until ctx is
// cancelled.
func (m *Manager) Run(ctx context.Context) error {
	queues := []string{m.names.DLR(), m.names.MO()}
	for _, c := range m.conns {
		queues = append(queues, c.queue)
	}
	for _, q := range queues {
		if err := m.broker.Ensure(ctx, q); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range m.conns {
		c := c
		g.Go(func() error {
			return c.run(ctx)
		})
	}
	return g.Wait()
}

func (m *Manager) Connectors(_ context.Context) map[string]string {
	statuses := make(map[string]string, len(m.conns))
	for _, c := range m.conns {
		statuses[c.cfg.Name] = c.Status()
	}
	return statuses
}
