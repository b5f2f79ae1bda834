// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package pdu

import (
	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
)

// Mandatory parameter size caps, octets including the NUL terminator.
const (
	maxSystemID     = 16
	maxPassword     = 9
	maxSystemType   = 13
	maxAddressRange = 41
	maxAddr         = 21
	maxServiceType  = 6
	maxTime         = 17
	maxMessageID    = 65

	// MaxShortMessage is the short_message capacity of submit_sm and deliver_sm.
	MaxShortMessage = 254
)

var (
	// ErrMalformedPDU indicates a PDU that cannot be decoded.
	ErrMalformedPDU = errors.New("malformed pdu")

	// ErrUnsupportedCommand indicates a PDU with an unknown command id.
	ErrUnsupportedCommand = errors.New("unsupported command id")

	// ErrFieldTooLong indicates a mandatory parameter exceeding its cap.
	ErrFieldTooLong = errors.New("field exceeds maximum length")
)

// appendCString appends s as a C-Octet-String capped at max octets including
// the terminator. Oversize values are truncated, an empty value encodes to a
// single NUL.
func appendCString(b []byte, s string, max int) []byte {
	if max > 0 && len(s) > max-1 {
		s = s[:max-1]
	}
	b = append(b, s...)
	return append(b, 0)
}

// reader is a cursor over a PDU body.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *reader) uint8() (uint8, error) {
	if r.remaining() < 1 {
		return 0, ErrMalformedPDU
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) uint16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, ErrMalformedPDU
	}
	v := uint16(r.buf[r.pos])<<8 | uint16(r.buf[r.pos+1])
	r.pos += 2
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, ErrMalformedPDU
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// cstring reads a NUL terminated string of at most max octets including the
// terminator. A missing terminator within max octets is a decode error.
func (r *reader) cstring(max int) (string, error) {
	limit := r.pos + max
	if limit > len(r.buf) {
		limit = len(r.buf)
	}
	for i := r.pos; i < limit; i++ {
		if r.buf[i] == 0 {
			s := string(r.buf[r.pos:i])
			r.pos = i + 1
			return s, nil
		}
	}
	return "", ErrMalformedPDU
}
