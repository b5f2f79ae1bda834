// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package pdu implements the SMPP v3.4 wire codec for the PDU kinds used by
// a transceiver ESME: bind, submit, deliver, enquire link, unbind and
// generic_nack. All integers are big-endian, strings are NUL terminated
// ASCII, optional parameters trail the body as TLVs.
package pdu

import (
	"encoding/binary"
	"io"

	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
)

// HeaderLen is the fixed SMPP header size in octets.
const HeaderLen = 16

// maxPDULen guards against absurd length prefixes from a broken peer.
const maxPDULen = 128 * 1024

// Header is the fixed leading part of every PDU. Length includes the header
// itself.
type Header struct {
	Length uint32
	ID     ID
	Status Status
	Seq    uint32
}

func decodeHeader(b []byte) Header {
	return Header{
		Length: binary.BigEndian.Uint32(b[0:4]),
		ID:     ID(binary.BigEndian.Uint32(b[4:8])),
		Status: Status(binary.BigEndian.Uint32(b[8:12])),
		Seq:    binary.BigEndian.Uint32(b[12:16]),
	}
}

// Body is a typed PDU body.
type Body interface {
	CommandID() ID
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

// PDU is a decoded frame. Body is nil when the command id is not supported;
// Raw always carries the undecoded body octets.
type PDU struct {
	Header Header
	Body   Body
	Raw    []byte
}

// Marshal frames a body with the given sequence number and status.
func Marshal(body Body, seq uint32, status Status) ([]byte, error) {
	payload, err := body.MarshalBinary()
	if err != nil {
		return nil, err
	}

	b := make([]byte, HeaderLen, HeaderLen+len(payload))
	binary.BigEndian.PutUint32(b[0:4], uint32(HeaderLen+len(payload)))
	binary.BigEndian.PutUint32(b[4:8], uint32(body.CommandID()))
	binary.BigEndian.PutUint32(b[8:12], uint32(status))
	binary.BigEndian.PutUint32(b[12:16], seq)

	return append(b, payload...), nil
}

// Encode frames a body and writes it to w in a single write.
func Encode(w io.Writer, body Body, seq uint32, status Status) error {
	b, err := Marshal(body, seq, status)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Decode reads one framed PDU from r. It blocks until a whole frame is
// available, buffering across short reads. An unknown command id yields the
// header, the raw body and ErrUnsupportedCommand so the caller can answer
// generic_nack with the peer's sequence number.
func Decode(r io.Reader) (*PDU, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	h := decodeHeader(hdr[:])

	if h.Length < HeaderLen || h.Length > maxPDULen {
		return nil, errors.Wrap(ErrMalformedPDU, errors.New("invalid length prefix"))
	}

	raw := make([]byte, h.Length-HeaderLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(ErrMalformedPDU, err)
	}

	p := &PDU{Header: h, Raw: raw}

	body := newBody(h.ID)
	if body == nil {
		return p, ErrUnsupportedCommand
	}
	if err := body.UnmarshalBinary(raw); err != nil {
		return p, errors.Wrap(ErrMalformedPDU, err)
	}
	p.Body = body

	return p, nil
}

func newBody(id ID) Body {
	switch id {
	case BindTransceiverID:
		return &BindTransceiver{}
	case BindTransceiverRespID:
		return &BindTransceiverResp{}
	case SubmitSMID:
		return &SubmitSM{}
	case SubmitSMRespID:
		return &SubmitSMResp{}
	case DeliverSMID:
		return &DeliverSM{}
	case DeliverSMRespID:
		return &DeliverSMResp{}
	case EnquireLinkID:
		return &EnquireLink{}
	case EnquireLinkRespID:
		return &EnquireLinkResp{}
	case UnbindID:
		return &Unbind{}
	case UnbindRespID:
		return &UnbindResp{}
	case GenericNackID:
		return &GenericNack{}
	default:
		return nil
	}
}
