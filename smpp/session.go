// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package smpp implements the client side of an SMPP v3.4 transceiver
// session: TCP framing, the bind state machine, sequence number correlation
// of requests to responses and the enquire_link keepalive loop.
package smpp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/onlineprabhakar/aiosmpp/pdu"
	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
)

// State is the bind state of a session.
type State int32

const (
	Closed State = iota
	Open
	BoundTRX
)

func (s State) String() string {
	switch s {
	case Open:
		return "OPEN"
	case BoundTRX:
		return "BOUND_TRX"
	default:
		return "CLOSED"
	}
}

// maxSeq is the sequence number ceiling. A session that reaches it is
// recycled rather than wrapped.
const maxSeq = 1 << 31

var (
	// ErrNotBound indicates a submit attempted outside BOUND_TRX.
	ErrNotBound = errors.New("session is not bound")

	// ErrBindFailed indicates a bind rejected by the SMSC.
	ErrBindFailed = errors.New("bind failed")

	// ErrVersionTooNew indicates an SMSC interface version above ours.
	ErrVersionTooNew = errors.New("smsc interface version above supported")

	// ErrSequenceExhausted indicates the session ran out of sequence numbers.
	ErrSequenceExhausted = errors.New("sequence numbers exhausted")
)

// Config holds the parameters of one SMSC session.
type Config struct {
	Host         string
	Port         int
	SystemID     string
	Password     string
	SystemType   string
	AddressRange string
	BindTON      uint8
	BindNPI      uint8

	BindTimeout     time.Duration
	SubmitTimeout   time.Duration
	EnquireTimeout  time.Duration
	EnquireInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.BindTimeout <= 0 {
		c.BindTimeout = 150 * time.Millisecond
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 500 * time.Millisecond
	}
	if c.EnquireTimeout <= 0 {
		c.EnquireTimeout = 150 * time.Millisecond
	}
	if c.EnquireInterval <= 0 {
		c.EnquireInterval = 30 * time.Second
	}
	return c
}

type result struct {
	status pdu.Status
	body   pdu.Body
	err    error
}

type pending struct {
	kind  pdu.ID
	ch    chan result
	timer *time.Timer
}

// Session owns one TCP connection to an SMSC. One goroutine runs the read
// loop, writes are serialized, submit callers block on their own completion
// channel.
type Session struct {
	cfg    Config
	logger *slog.Logger
	conn   net.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	state   State
	seq     uint32
	pending map[uint32]*pending

	delivered chan *pdu.DeliverSM
	closed    chan struct{}
	closeOnce sync.Once
}

// Connect opens a TCP connection to the SMSC and starts the read loop. The
// session is in OPEN state afterwards; BindTRX completes the handshake.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Session, error) {
	cfg = cfg.withDefaults()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return nil, errors.Wrap(errors.ErrConnectionLost, err)
	}

	s := &Session{
		cfg:       cfg,
		logger:    logger,
		conn:      conn,
		state:     Open,
		pending:   make(map[uint32]*pending),
		delivered: make(chan *pdu.DeliverSM, 16),
		closed:    make(chan struct{}),
	}
	go s.readLoop()

	return s, nil
}

// Status returns the session state name.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.String()
}

// Delivered is the stream of inbound deliver_sm PDUs. Each has already been
// acknowledged with deliver_sm_resp.
func (s *Session) Delivered() <-chan *pdu.DeliverSM {
	return s.delivered
}

// Closed is closed once the session is torn down.
func (s *Session) Closed() <-chan struct{} {
	return s.closed
}

// BindTRX performs the transceiver bind handshake. On any failure the
// session is closed.
func (s *Session) BindTRX(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Open {
		s.mu.Unlock()
		return errors.Wrap(ErrBindFailed, ErrNotBound)
	}
	s.mu.Unlock()

	bind := &pdu.BindTransceiver{
		SystemID:         s.cfg.SystemID,
		Password:         s.cfg.Password,
		SystemType:       s.cfg.SystemType,
		InterfaceVersion: pdu.InterfaceVersion,
		AddrTON:          s.cfg.BindTON,
		AddrNPI:          s.cfg.BindNPI,
		AddressRange:     s.cfg.AddressRange,
	}

	res, err := s.request(ctx, bind, pdu.BindTransceiverRespID, s.cfg.BindTimeout, true)
	if err != nil {
		s.Close()
		return errors.Wrap(ErrBindFailed, err)
	}
	if !res.status.OK() {
		s.Close()
		return errors.Wrap(ErrBindFailed, errors.New(res.status.String()))
	}

	if resp, ok := res.body.(*pdu.BindTransceiverResp); ok {
		if v, ok := resp.SCInterfaceVersion(); ok && v > pdu.InterfaceVersion {
			s.Close()
			return errors.Wrap(ErrBindFailed, ErrVersionTooNew)
		}
	}

	s.mu.Lock()
	s.state = BoundTRX
	s.mu.Unlock()

	go s.enquireLoop()
	s.logger.Info("session bound", slog.String("system_id", s.cfg.SystemID))

	return nil
}

// Submit sends one submit_sm and waits for the matching submit_sm_resp. A
// timeout fails this submit only; the session stays up.
func (s *Session) Submit(ctx context.Context, sm *pdu.SubmitSM) (*pdu.SubmitSMResp, pdu.Status, error) {
	s.mu.Lock()
	bound := s.state == BoundTRX
	s.mu.Unlock()
	if !bound {
		return nil, pdu.StatusInvBindStatus, ErrNotBound
	}

	res, err := s.request(ctx, sm, pdu.SubmitSMRespID, s.cfg.SubmitTimeout, false)
	if err != nil {
		return nil, pdu.StatusUnknownErr, err
	}

	resp, _ := res.body.(*pdu.SubmitSMResp)
	if resp == nil {
		resp = &pdu.SubmitSMResp{}
	}
	return resp, res.status, nil
}

// Close tears the session down: the socket is closed, the read loop exits
// and every pending request completes with a connection lost error.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = Closed
		stale := s.pending
		s.pending = make(map[uint32]*pending)
		s.mu.Unlock()

		s.conn.Close()
		for _, p := range stale {
			p.timer.Stop()
			p.ch <- result{err: errors.ErrConnectionLost}
		}
		close(s.closed)
	})
	return nil
}

// request registers a pending entry, writes the PDU and waits for the
// response, the per request timeout, context cancellation or session close.
func (s *Session) request(ctx context.Context, body pdu.Body, respID pdu.ID, timeout time.Duration, fatalTimeout bool) (result, error) {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return result{}, errors.ErrConnectionLost
	}
	s.seq++
	seq := s.seq
	if seq >= maxSeq {
		s.mu.Unlock()
		s.logger.Error("sequence number ceiling reached, recycling session")
		s.Close()
		return result{}, ErrSequenceExhausted
	}
	p := &pending{kind: respID, ch: make(chan result, 1)}
	p.timer = time.AfterFunc(timeout, func() { s.expire(seq, fatalTimeout) })
	s.pending[seq] = p
	s.mu.Unlock()

	if err := s.write(body, seq); err != nil {
		s.abandon(seq)
		s.Close()
		return result{}, errors.Wrap(errors.ErrConnectionLost, err)
	}

	select {
	case res := <-p.ch:
		if res.err != nil {
			return result{}, res.err
		}
		return res, nil
	case <-ctx.Done():
		s.abandon(seq)
		return result{}, ctx.Err()
	case <-s.closed:
		return result{}, errors.ErrConnectionLost
	}
}

func (s *Session) write(body pdu.Body, seq uint32) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return pdu.Encode(s.conn, body, seq, pdu.StatusOK)
}

func (s *Session) respond(body pdu.Body, seq uint32, status pdu.Status) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := pdu.Encode(s.conn, body, seq, status); err != nil {
		s.logger.Warn("failed to write response", slog.String("command", body.CommandID().String()), slog.Any("error", err))
	}
}

// expire fires a pending entry's timeout. The entry completes exactly once:
// whichever of expire and complete takes it out of the map wins.
func (s *Session) expire(seq uint32, fatal bool) {
	s.mu.Lock()
	p, ok := s.pending[seq]
	if ok {
		delete(s.pending, seq)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	p.ch <- result{err: errors.ErrTimeout}
	if fatal {
		s.logger.Warn("response timeout, closing session", slog.String("kind", p.kind.String()))
		s.Close()
	}
}

func (s *Session) abandon(seq uint32) {
	s.mu.Lock()
	if p, ok := s.pending[seq]; ok {
		delete(s.pending, seq)
		p.timer.Stop()
	}
	s.mu.Unlock()
}

func (s *Session) complete(p *pdu.PDU) {
	s.mu.Lock()
	entry, ok := s.pending[p.Header.Seq]
	if ok {
		delete(s.pending, p.Header.Seq)
		entry.timer.Stop()
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("response with no matching request", slog.Uint64("seq", uint64(p.Header.Seq)), slog.String("command", p.Header.ID.String()))
		return
	}
	if entry.kind != p.Header.ID {
		s.logger.Warn("response kind mismatch", slog.String("want", entry.kind.String()), slog.String("got", p.Header.ID.String()))
	}

	entry.ch <- result{status: p.Header.Status, body: p.Body}
}

func (s *Session) readLoop() {
	for {
		p, err := pdu.Decode(s.conn)
		if err != nil {
			if errors.Contains(err, pdu.ErrUnsupportedCommand) && p != nil {
				s.logger.Warn("unsupported command from peer", slog.String("command", p.Header.ID.String()))
				s.respond(&pdu.GenericNack{}, p.Header.Seq, pdu.StatusInvCmdID)
				continue
			}
			if errors.Contains(err, pdu.ErrMalformedPDU) {
				s.logger.Error("malformed pdu from peer, closing session", slog.Any("error", err))
			}
			s.Close()
			return
		}

		if p.Header.ID.IsResp() {
			s.complete(p)
			continue
		}

		switch body := p.Body.(type) {
		case *pdu.DeliverSM:
			s.respond(&pdu.DeliverSMResp{}, p.Header.Seq, pdu.StatusOK)
			select {
			case s.delivered <- body:
			case <-s.closed:
				return
			}
		case *pdu.EnquireLink:
			s.respond(&pdu.EnquireLinkResp{}, p.Header.Seq, pdu.StatusOK)
		case *pdu.Unbind:
			s.logger.Info("peer requested unbind")
			s.respond(&pdu.UnbindResp{}, p.Header.Seq, pdu.StatusOK)
			s.Close()
			return
		default:
			s.respond(&pdu.GenericNack{}, p.Header.Seq, pdu.StatusInvCmdID)
		}
	}
}

// enquireLoop sends a keepalive every EnquireInterval. A missing
// enquire_link_resp within EnquireTimeout is fatal to the session.
func (s *Session) enquireLoop() {
	ticker := time.NewTicker(s.cfg.EnquireInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			if _, err := s.request(context.Background(), &pdu.EnquireLink{}, pdu.EnquireLinkRespID, s.cfg.EnquireTimeout, true); err != nil {
				if !errors.Contains(err, errors.ErrConnectionLost) {
					s.logger.Warn("enquire link failed", slog.Any("error", err))
				}
				return
			}
		}
	}
}
