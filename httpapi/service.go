// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package httpapi implements the MT send pipeline behind the legacy HTTP
// send endpoint: validation, GSM encoding, segmentation, interception,
// routing and hand-off to the selected connector's work queue.
package httpapi

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/onlineprabhakar/aiosmpp"
	"github.com/onlineprabhakar/aiosmpp/config"
	"github.com/onlineprabhakar/aiosmpp/pdu"
	"github.com/onlineprabhakar/aiosmpp/pkg/apiutil"
	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
	"github.com/onlineprabhakar/aiosmpp/routing"
	"github.com/onlineprabhakar/aiosmpp/sms"
)

// SendRequest is a validated legacy send request.
type SendRequest struct {
	To             string
	From           string
	Coding         int
	Priority       int
	SDT            string
	ValidityPeriod *int
	Tags           []int
	Content        string
	HexContent     string
	DLR            *sms.DLRRequest
}

// Service is the MT pipeline.
type Service interface {
	// Send turns a request into queued submit_sm work and returns the
	// request id.
	Send(ctx context.Context, req SendRequest) (string, error)

	// EnsureQueues creates every queue the gateway publishes to.
	EnsureQueues(ctx context.Context) error
}

// Parameters a connector overlays onto queued templates unless locked.
const (
	paramProtocolID     = "protocol_id"
	paramReplaceIfFlag  = "replace_if_present_flag"
	paramDestAddrTON    = "dest_addr_ton"
	paramSourceAddrNPI  = "source_addr_npi"
	paramDestAddrNPI    = "dest_addr_npi"
	paramServiceType    = "service_type"
	paramSourceAddrTON  = "source_addr_ton"
	paramSMDefaultMsgID = "sm_default_msg_id"
)

type service struct {
	gateway      config.Gateway
	routes       *routing.Table
	interceptors *routing.InterceptorTable
	broker       mq.Broker
	names        mq.Names
	idp          aiosmpp.IDProvider
	refs         *sms.RefCounter
	split        sms.SplitMode
}

// New wires the MT pipeline.
func New(gateway config.Gateway, routes *routing.Table, interceptors *routing.InterceptorTable, broker mq.Broker, names mq.Names, idp aiosmpp.IDProvider) Service {
	return &service{
		gateway:      gateway,
		routes:       routes,
		interceptors: interceptors,
		broker:       broker,
		names:        names,
		idp:          idp,
		refs:         &sms.RefCounter{},
		split:        sms.SplitUDH,
	}
}

func (s *service) EnsureQueues(ctx context.Context) error {
	queues := []string{s.names.DLR(), s.names.MO()}
	for _, name := range s.gateway.ConnectorNames() {
		queues = append(queues, s.names.Connector(name))
	}

	for _, q := range queues {
		if err := s.broker.Ensure(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) Send(ctx context.Context, req SendRequest) (string, error) {
	reqID, err := s.idp.ID()
	if err != nil {
		return "", err
	}

	msg, binary, err := shortMessage(req)
	if err != nil {
		return "", err
	}

	ev := &sms.Event{
		To:        req.To,
		From:      req.From,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Msg:       req.Content,
		Direction: sms.MTDirection,
		Tags:      req.Tags,
		DLR:       req.DLR,
		PDUs:      sms.BuildPDUs(req.From, req.To, msg, req.Coding, binary, s.split, s.refs, sms.DefaultSubmit()),
	}

	applyRequestParams(ev, req)

	ev = s.interceptors.Evaluate(ev)

	connector, ok := s.routes.Evaluate(ev)
	if !ok {
		return "", apiutil.ErrNoRoute
	}

	if conn, ok := s.gateway.FindConnector(connector); ok {
		overlayConnectorParams(ev, conn)
	}

	if ev.DLR != nil {
		ev.PDUs[len(ev.PDUs)-1].RegisteredDelivery = pdu.DeliveryReceiptRequested
	}

	work := sms.WorkEvent{
		ReqID:     reqID,
		Connector: connector,
		PDUs:      ev.PDUs,
		DLR:       ev.DLR,
	}

	body, err := json.Marshal(work)
	if err != nil {
		return "", err
	}

	if err := s.broker.Publish(ctx, s.names.Connector(connector), body, 0); err != nil {
		return "", errors.Wrap(errors.ErrConnectionLost, err)
	}

	return reqID, nil
}

// shortMessage renders the request content into wire octets. hex-content
// short circuits encoding; GSM transliteration applies to coding 0 only.
func shortMessage(req SendRequest) ([]byte, bool, error) {
	if req.HexContent != "" {
		b, err := hex.DecodeString(req.HexContent)
		if err != nil {
			return nil, false, errors.Wrap(apiutil.ErrInvalidHexContent, err)
		}
		return b, true, nil
	}

	if req.Coding == 0 {
		return sms.GSMEncode(req.Content), false, nil
	}
	return []byte(req.Content), false, nil
}

func applyRequestParams(ev *sms.Event, req SendRequest) {
	for i := range ev.PDUs {
		p := &ev.PDUs[i]
		p.PriorityFlag = uint8(req.Priority)
		p.ScheduleDeliveryTime = req.SDT
		if req.ValidityPeriod != nil {
			p.ValidityPeriod = validityString(*req.ValidityPeriod)
		}
	}
}

// validityString renders a relative validity period in the SMPP time
// format, minutes resolution.
func validityString(minutes int) string {
	d := time.Duration(minutes) * time.Minute
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	// YYMMDDhhmmsstnnR with years and months unused.
	return "0000" + pad2(days) + pad2(hours) + pad2(mins) + "00000R"
}

func pad2(v int) string {
	if v > 99 {
		v = 99
	}
	return string([]byte{byte('0' + v/10), byte('0' + v%10)})
}

func overlayConnectorParams(ev *sms.Event, c config.Connector) {
	locked := make(map[string]bool, len(ev.Locked))
	for _, l := range ev.Locked {
		locked[l] = true
	}

	for i := range ev.PDUs {
		p := &ev.PDUs[i]
		if !locked[paramProtocolID] {
			p.ProtocolID = c.ProtocolID
		}
		if !locked[paramReplaceIfFlag] {
			p.ReplaceIfPresentFlag = c.ReplaceIfPresentFlag
		}
		if !locked[paramDestAddrTON] {
			p.DestAddrTON = c.DestAddrTON
		}
		if !locked[paramSourceAddrNPI] {
			p.SourceAddrNPI = c.SourceAddrNPI
		}
		if !locked[paramDestAddrNPI] {
			p.DestAddrNPI = c.DestAddrNPI
		}
		if !locked[paramServiceType] {
			p.ServiceType = c.ServiceType
		}
		if !locked[paramSourceAddrTON] {
			p.SourceAddrTON = c.SourceAddrTON
		}
		if !locked[paramSMDefaultMsgID] {
			p.SMDefaultMsgID = c.SMDefaultMsgID
		}
	}
}
