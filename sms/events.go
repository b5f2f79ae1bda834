// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package sms holds the message model shared by the HTTP API, the SMPP
// manager and the posters: queue event shapes, GSM 03.38 encoding, long
// message segmentation and delivery receipt parsing.
package sms

import (
	"encoding/hex"

	"github.com/onlineprabhakar/aiosmpp/pdu"
	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
)

// MTDirection marks outbound events in the routing model.
const MTDirection = "MT"

// DLRRequest captures the delivery receipt callback a sender asked for.
type DLRRequest struct {
	URL    string `json:"url"`
	Level  int    `json:"level"`
	Method string `json:"method"`
}

// PDUTemplate is a JSON-friendly submit_sm. Text payloads travel in
// short_message, binary and UDH-prefixed payloads in short_message_hex.
type PDUTemplate struct {
	ServiceType          string `json:"service_type,omitempty"`
	SourceAddrTON        uint8  `json:"source_addr_ton"`
	SourceAddrNPI        uint8  `json:"source_addr_npi"`
	SourceAddr           string `json:"source_addr"`
	DestAddrTON          uint8  `json:"dest_addr_ton"`
	DestAddrNPI          uint8  `json:"dest_addr_npi"`
	DestinationAddr      string `json:"destination_addr"`
	EsmClass             uint8  `json:"esm_class"`
	ProtocolID           uint8  `json:"protocol_id"`
	PriorityFlag         uint8  `json:"priority_flag"`
	ScheduleDeliveryTime string `json:"schedule_delivery_time,omitempty"`
	ValidityPeriod       string `json:"validity_period,omitempty"`
	RegisteredDelivery   uint8  `json:"registered_delivery"`
	ReplaceIfPresentFlag uint8  `json:"replace_if_present_flag"`
	DataCoding           uint8  `json:"data_coding"`
	SMDefaultMsgID       uint8  `json:"sm_default_msg_id"`
	ShortMessage         string `json:"short_message,omitempty"`
	ShortMessageHex      string `json:"short_message_hex,omitempty"`

	SARMsgRefNum       uint16 `json:"sar_msg_ref_num,omitempty"`
	SARTotalSegments   uint8  `json:"sar_total_segments,omitempty"`
	SARSegmentSeqnum   uint8  `json:"sar_segment_seqnum,omitempty"`
	MoreMessagesToSend *uint8 `json:"more_messages_to_send,omitempty"`
}

// ErrBadHexContent indicates a short_message_hex field that does not decode.
var ErrBadHexContent = errors.New("short_message_hex is not valid hex")

// Payload returns the wire short message octets.
func (t *PDUTemplate) Payload() ([]byte, error) {
	if t.ShortMessageHex != "" {
		b, err := hex.DecodeString(t.ShortMessageHex)
		if err != nil {
			return nil, errors.Wrap(ErrBadHexContent, err)
		}
		return b, nil
	}
	return []byte(t.ShortMessage), nil
}

// SubmitSM renders the template into a wire PDU body.
func (t *PDUTemplate) SubmitSM() (*pdu.SubmitSM, error) {
	sm, err := t.Payload()
	if err != nil {
		return nil, err
	}

	s := &pdu.SubmitSM{
		ServiceType:          t.ServiceType,
		SourceAddrTON:        t.SourceAddrTON,
		SourceAddrNPI:        t.SourceAddrNPI,
		SourceAddr:           t.SourceAddr,
		DestAddrTON:          t.DestAddrTON,
		DestAddrNPI:          t.DestAddrNPI,
		DestinationAddr:      t.DestinationAddr,
		EsmClass:             t.EsmClass,
		ProtocolID:           t.ProtocolID,
		PriorityFlag:         t.PriorityFlag,
		ScheduleDeliveryTime: t.ScheduleDeliveryTime,
		ValidityPeriod:       t.ValidityPeriod,
		RegisteredDelivery:   t.RegisteredDelivery,
		ReplaceIfPresentFlag: t.ReplaceIfPresentFlag,
		DataCoding:           t.DataCoding,
		SMDefaultMsgID:       t.SMDefaultMsgID,
		ShortMessage:         sm,
	}

	if t.SARTotalSegments > 0 {
		s.TLVs = append(s.TLVs,
			pdu.TLVUint16(pdu.TagSARMsgRefNum, t.SARMsgRefNum),
			pdu.TLVUint8(pdu.TagSARTotalSegments, t.SARTotalSegments),
			pdu.TLVUint8(pdu.TagSARSegmentSeqnum, t.SARSegmentSeqnum),
		)
	}
	if t.MoreMessagesToSend != nil {
		s.TLVs = append(s.TLVs, pdu.TLVUint8(pdu.TagMoreMessagesToSend, *t.MoreMessagesToSend))
	}

	return s, nil
}

// Event is an outbound message before routing: the rendered PDU templates
// plus the fields route filters match on.
type Event struct {
	To        string        `json:"to"`
	From      string        `json:"from"`
	Timestamp float64       `json:"timestamp"`
	Msg       string        `json:"msg"`
	Direction string        `json:"direction"`
	Tags      []int         `json:"tags"`
	DLR       *DLRRequest   `json:"dlr,omitempty"`
	PDUs      []PDUTemplate `json:"pdus"`

	// OriginConnector is set on MO events only.
	OriginConnector string `json:"origin-connector,omitempty"`

	// Locked lists template parameter names a sender or interceptor pinned
	// so connector overlays leave them alone.
	Locked []string `json:"locked,omitempty"`
}

// WorkEvent is the per-connector queue payload the SMPP manager consumes.
type WorkEvent struct {
	ReqID     string        `json:"req_id"`
	Connector string        `json:"connector"`
	PDUs      []PDUTemplate `json:"pdus"`
	DLR       *DLRRequest   `json:"dlr,omitempty"`
}

// DLREvent is the delivery receipt queue payload the DLR poster consumes.
type DLREvent struct {
	ID            string `json:"id"`
	IDSMSC        string `json:"id_smsc,omitempty"`
	Connector     string `json:"connector"`
	Level         int    `json:"level"`
	Method        string `json:"method"`
	URL           string `json:"url"`
	MessageStatus string `json:"message_status"`

	SubDate  string `json:"subdate,omitempty"`
	DoneDate string `json:"donedate,omitempty"`
	Sub      string `json:"sub,omitempty"`
	Dlvrd    string `json:"dlvrd,omitempty"`
	Err      string `json:"err,omitempty"`
	Text     string `json:"text,omitempty"`

	Retries int `json:"retries,omitempty"`
}

// MOEvent is the inbound message queue payload the MO poster consumes. Msg
// is base64 of the raw short message octets.
type MOEvent struct {
	ID              string `json:"id"`
	To              string `json:"to"`
	From            string `json:"from"`
	Coding          int    `json:"coding"`
	OriginConnector string `json:"origin-connector"`
	Msg             string `json:"msg"`

	Retries int `json:"retries,omitempty"`
}
