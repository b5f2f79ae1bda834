// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/onlineprabhakar/aiosmpp"
	"github.com/onlineprabhakar/aiosmpp/config"
	"github.com/onlineprabhakar/aiosmpp/pdu"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
	"github.com/onlineprabhakar/aiosmpp/sms"
)

// receiveIdle paces the consume loop when the queue is empty and the broker
// does not long poll.
const receiveIdle = 50 * time.Millisecond

type connector struct {
	cfg    config.Connector
	dial   Dialer
	broker mq.Broker
	names  mq.Names
	store  Store
	idp    aiosmpp.IDProvider
	logger *slog.Logger
	queue  string

	mu     sync.Mutex
	status string
}

func newConnector(cfg config.Connector, broker mq.Broker, names mq.Names, store Store, idp aiosmpp.IDProvider, dial Dialer, logger *slog.Logger) *connector {
	return &connector{
		cfg:    cfg,
		dial:   dial,
		broker: broker,
		names:  names,
		store:  store,
		idp:    idp,
		logger: logger.With(slog.String("connector", cfg.Name)),
		queue:  names.Connector(cfg.Name),
		status: StatusUnbound,
	}
}

func (c *connector) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *connector) setStatus(s string) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// run dials, binds and serves until ctx is cancelled. Session loss rebinds
// after conn_loss_delay unless conn_loss_retry is off.
func (c *connector) run(ctx context.Context) error {
	for {
		sess, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("connector gave up connecting", slog.Any("error", err))
			return nil
		}

		c.setStatus(StatusBound)
		c.logger.Info("connector bound", slog.String("host", c.cfg.Host))

		go c.inbound(ctx, sess)
		c.serve(ctx, sess)

		c.setStatus(StatusUnbound)
		_ = sess.Close()

		if ctx.Err() != nil {
			return nil
		}
		if !*c.cfg.ConnLossRetry {
			c.logger.Error("session lost and conn_loss_retry is off")
			return nil
		}
		c.logger.Warn("session lost, rebinding", slog.Int("delay_s", c.cfg.ConnLossDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(c.cfg.ConnLossDelay) * time.Second):
		}
	}
}

func (c *connector) connect(ctx context.Context) (Session, error) {
	var sess Session
	op := func() error {
		s, err := c.dial(ctx, c.cfg.SessionConfig())
		if err != nil {
			c.logger.Warn("connect failed", slog.Any("error", err))
			return err
		}
		if err := s.BindTRX(ctx); err != nil {
			c.logger.Warn("bind failed", slog.Any("error", err))
			_ = s.Close()
			return err
		}
		sess = s
		return nil
	}

	if !*c.cfg.ConnLossRetry {
		if err := op(); err != nil {
			return nil, err
		}
		return sess, nil
	}

	bo := backoff.WithContext(
		backoff.NewConstantBackOff(time.Duration(c.cfg.ConnLossDelay)*time.Second), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return sess, nil
}

// serve consumes the connector work queue one message at a time until the
// session drops or ctx is cancelled.
func (c *connector) serve(ctx context.Context, sess Session) {
	interval := time.Second / time.Duration(c.cfg.SubmitThroughput)
	limiter := time.NewTicker(interval)
	defer limiter.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Closed():
			return
		default:
		}

		msgs, err := c.broker.Receive(ctx, c.queue, 1)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("receive failed", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if len(msgs) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-sess.Closed():
				return
			case <-time.After(receiveIdle):
			}
			continue
		}

		for _, m := range msgs {
			c.process(ctx, sess, m, limiter)
		}
	}
}

// process submits one work event's templates in order. A failed submit
// abandons the rest of the bundle, the message is acked either way.
func (c *connector) process(ctx context.Context, sess Session, m mq.Message, limiter *time.Ticker) {
	var work sms.WorkEvent
	if err := json.Unmarshal(m.Body, &work); err != nil {
		c.logger.Error("dropping undecodable work event", slog.Any("error", err))
		c.ack(ctx, m)
		return
	}

	var last *pdu.SubmitSMResp
	ok := true
	for i := range work.PDUs {
		sm, err := work.PDUs[i].SubmitSM()
		if err != nil {
			c.logger.Error("dropping unrenderable work event",
				slog.String("req_id", work.ReqID), slog.Any("error", err))
			ok = false
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-limiter.C:
		}

		resp, status, err := sess.Submit(ctx, sm)
		if err != nil {
			c.logger.Warn("submit failed, abandoning bundle",
				slog.String("req_id", work.ReqID), slog.Any("error", err))
			ok = false
			break
		}
		if status != pdu.StatusOK {
			c.logger.Warn("submit rejected, abandoning bundle",
				slog.String("req_id", work.ReqID), slog.String("status", status.String()))
			ok = false
			break
		}
		last = resp
	}

	c.ack(ctx, m)

	if !ok || last == nil || work.DLR == nil {
		return
	}

	st := DLRState{ID: work.ReqID, Request: *work.DLR}
	expiry := time.Duration(c.cfg.DLRExpiry) * time.Second
	if err := c.store.SaveDLR(ctx, last.MessageID, st, expiry); err != nil {
		c.logger.Error("failed to record DLR state",
			slog.String("req_id", work.ReqID), slog.Any("error", err))
	}

	// Levels 1 and 3 get an immediate accepted receipt.
	if work.DLR.Level == 1 || work.DLR.Level == 3 {
		c.publishDLR(ctx, sms.DLREvent{
			ID:            work.ReqID,
			IDSMSC:        last.MessageID,
			Connector:     c.cfg.Name,
			Level:         work.DLR.Level,
			Method:        work.DLR.Method,
			URL:           work.DLR.URL,
			MessageStatus: pdu.StatusOK.String(),
		})
	}
}

func (c *connector) ack(ctx context.Context, m mq.Message) {
	if err := c.broker.Ack(ctx, c.queue, m); err != nil {
		c.logger.Warn("ack failed", slog.Any("error", err))
	}
}

// inbound dispatches deliver_sm traffic until the session drops.
func (c *connector) inbound(ctx context.Context, sess Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Closed():
			return
		case d := <-sess.Delivered():
			if d == nil {
				return
			}
			c.handleDeliver(ctx, d)
		}
	}
}

func (c *connector) handleDeliver(ctx context.Context, d *pdu.DeliverSM) {
	switch {
	case pdu.IsDeliveryReceipt(d.EsmClass):
		c.processDLR(ctx, d)
	case pdu.IsDefaultMessage(d.EsmClass):
		c.processMO(ctx, d)
	default:
		c.logger.Warn("dropping deliver_sm with unhandled esm_class",
			slog.Int("esm_class", int(d.EsmClass)))
	}
}

func (c *connector) processDLR(ctx context.Context, d *pdu.DeliverSM) {
	rcpt, ok := sms.ParseDeliveryReceipt(d.ShortMessage)
	if !ok {
		c.logger.Warn("dropping receipt with unparseable body")
		return
	}

	st, err := c.store.GetDLR(ctx, rcpt.ID)
	if err != nil {
		c.logger.Warn("dropping receipt for unknown message",
			slog.String("id_smsc", rcpt.ID), slog.Any("error", err))
		return
	}

	c.publishDLR(ctx, sms.DLREvent{
		ID:            st.ID,
		IDSMSC:        rcpt.ID,
		Connector:     c.cfg.Name,
		Level:         3,
		Method:        st.Request.Method,
		URL:           st.Request.URL,
		MessageStatus: rcpt.Stat,
		SubDate:       rcpt.SubmitDate,
		DoneDate:      rcpt.DoneDate,
		Sub:           rcpt.Sub,
		Dlvrd:         rcpt.Dlvrd,
		Err:           rcpt.Err,
		Text:          rcpt.Text,
	})
}

func (c *connector) publishDLR(ctx context.Context, ev sms.DLREvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("failed to encode DLR event", slog.Any("error", err))
		return
	}
	if err := c.broker.Publish(ctx, c.names.DLR(), body, 0); err != nil {
		c.logger.Error("failed to publish DLR event", slog.Any("error", err))
	}
}

func (c *connector) processMO(ctx context.Context, d *pdu.DeliverSM) {
	// Class 2 (SIM specific) messages in the 0xF0 coding group carry no
	// application payload worth forwarding.
	if d.DataCoding&0xF0 == 0xF0 && d.DataCoding&0x03 == 0x02 {
		c.logger.Warn("dropping MO with unsupported data coding",
			slog.Int("data_coding", int(d.DataCoding)))
		return
	}

	coding := int(d.DataCoding)
	payload := d.ShortMessage

	// Segmentation metadata: SAR TLVs take precedence over a UDH
	// concatenation header.
	if t, ok := pdu.FindTLV(d.TLVs, pdu.TagSARMsgRefNum); ok {
		ref := t.Uint16()
		total := 0
		seq := 0
		if tt, ok := pdu.FindTLV(d.TLVs, pdu.TagSARTotalSegments); ok {
			total = int(tt.Uint8())
		}
		if ts, ok := pdu.FindTLV(d.TLVs, pdu.TagSARSegmentSeqnum); ok {
			seq = int(ts.Uint8())
		}
		c.storePart(ctx, d, ref, total, seq, coding, payload)
		return
	}

	if pdu.HasUDHI(d.EsmClass) && len(payload) >= 6 &&
		payload[0] == 0x05 && payload[1] == 0x00 && payload[2] == 0x03 {
		ref := uint16(payload[3])
		total := int(payload[4])
		seq := int(payload[5])
		c.storePart(ctx, d, ref, total, seq, coding, payload[6:])
		return
	}

	c.publishMO(ctx, d.SourceAddr, d.DestinationAddr, coding, payload)
}

// storePart stashes one segment and flushes the reassembled message once
// complete. Lenient mode flushes on the terminal segment with whatever
// arrived; strict mode waits for every segment.
func (c *connector) storePart(ctx context.Context, d *pdu.DeliverSM, ref uint16, total, seq, coding int, segment []byte) {
	if total < 1 || seq < 1 {
		c.logger.Warn("dropping segment with bad sar metadata",
			slog.Int("total", total), slog.Int("seq", seq))
		return
	}

	key := PartKey(c.cfg.Name, ref, d.DestinationAddr)
	part := MOPart{
		SourceAddr: d.SourceAddr,
		DestAddr:   d.DestinationAddr,
		Coding:     coding,
		Payload:    segment,
	}
	if err := c.store.SavePart(ctx, key, seq, part); err != nil {
		c.logger.Error("failed to store segment", slog.String("key", key), slog.Any("error", err))
		return
	}

	parts, err := c.store.Parts(ctx, key)
	if err != nil {
		c.logger.Error("failed to load segments", slog.String("key", key), slog.Any("error", err))
		return
	}

	complete := len(parts) >= total
	if c.cfg.StrictReassembly {
		if !complete {
			return
		}
	} else {
		if seq != total {
			return
		}
		if !complete {
			c.logger.Error("flushing incomplete multipart message",
				slog.String("key", key), slog.Int("have", len(parts)), slog.Int("want", total))
		}
	}

	var msg []byte
	for i := 1; i <= total; i++ {
		if p, ok := parts[i]; ok {
			msg = append(msg, p.Payload...)
		}
	}

	if err := c.store.DeleteParts(ctx, key); err != nil {
		c.logger.Warn("failed to drop segment key", slog.String("key", key), slog.Any("error", err))
	}

	c.publishMO(ctx, d.SourceAddr, d.DestinationAddr, coding, msg)
}

func (c *connector) publishMO(ctx context.Context, from, to string, coding int, payload []byte) {
	id, err := c.idp.ID()
	if err != nil {
		c.logger.Error("failed to mint MO id", slog.Any("error", err))
		return
	}

	ev := sms.MOEvent{
		ID:              id,
		To:              to,
		From:            from,
		Coding:          coding,
		OriginConnector: c.cfg.Name,
		Msg:             base64.StdEncoding.EncodeToString(payload),
	}

	body, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("failed to encode MO event", slog.Any("error", err))
		return
	}
	if err := c.broker.Publish(ctx, c.names.MO(), body, 0); err != nil {
		c.logger.Error("failed to publish MO event", slog.Any("error", err))
	}
}
