// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package sms

import (
	"encoding/hex"
	"sync"

	"github.com/onlineprabhakar/aiosmpp/pdu"
)

// SplitMode selects how long messages are fragmented.
type SplitMode string

const (
	SplitUDH SplitMode = "udh"
	SplitSAR SplitMode = "sar"
)

// MaxParts caps how many segments one long message may produce. Overflowing
// content is truncated rather than rejected.
const MaxParts = 5

// more_messages_to_send TLV values.
const (
	NoMoreMessages uint8 = 0
	MoreMessages   uint8 = 1
)

// RefCounter issues concatenated message reference numbers. The counter
// cycles 1..255, zero is never issued.
type RefCounter struct {
	mu   sync.Mutex
	last uint8
}

// Next returns the next reference number.
func (r *RefCounter) Next() uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last >= 255 {
		r.last = 0
	}
	r.last++
	return r.last
}

// SubmitDefaults are the submit_sm parameters applied to every template a
// build produces, before any connector overlay.
type SubmitDefaults struct {
	ServiceType          string
	SourceAddrTON        uint8
	SourceAddrNPI        uint8
	DestAddrTON          uint8
	DestAddrNPI          uint8
	EsmClass             uint8
	ProtocolID           uint8
	PriorityFlag         uint8
	ScheduleDeliveryTime string
	ValidityPeriod       string
	RegisteredDelivery   uint8
	ReplaceIfPresentFlag uint8
	SMDefaultMsgID       uint8
}

// DefaultSubmit returns the stock parameter set: national/ISDN source,
// international/ISDN destination, store and forward mode, no receipt.
func DefaultSubmit() SubmitDefaults {
	return SubmitDefaults{
		SourceAddrTON:      pdu.TONNational,
		SourceAddrNPI:      pdu.NPIISDN,
		DestAddrTON:        pdu.TONInternational,
		DestAddrNPI:        pdu.NPIISDN,
		EsmClass:           pdu.EsmModeStoreAndForward,
		RegisteredDelivery: pdu.NoDeliveryReceipt,
	}
}

// codingPolicy maps a data_coding value to its per message and per segment
// capacity. Lengths for 16 bit codings count UCS2 characters, not octets.
func codingPolicy(coding int) (bits, maxLen, slicedLen int) {
	switch coding {
	case 3, 6, 7, 10:
		return 8, 140, 140 - 6
	case 2, 4, 5, 8, 9, 13, 14:
		return 16, 70, 70 - 3
	default:
		return 7, 160, 153
	}
}

// BuildPDUs renders a short message into submit_sm templates, fragmenting
// with the chosen split mode when the message exceeds the single PDU
// capacity of its data_coding. binary marks payloads that came in as raw
// octets and must travel hex encoded.
func BuildPDUs(from, to string, msg []byte, coding int, binary bool, mode SplitMode, refs *RefCounter, d SubmitDefaults) []PDUTemplate {
	bits, maxLen, slicedLen := codingPolicy(coding)

	smLength := len(msg)
	if bits == 16 {
		smLength = len(msg) / 2
	}

	base := PDUTemplate{
		ServiceType:          d.ServiceType,
		SourceAddrTON:        d.SourceAddrTON,
		SourceAddrNPI:        d.SourceAddrNPI,
		SourceAddr:           from,
		DestAddrTON:          d.DestAddrTON,
		DestAddrNPI:          d.DestAddrNPI,
		DestinationAddr:      to,
		EsmClass:             d.EsmClass,
		ProtocolID:           d.ProtocolID,
		PriorityFlag:         d.PriorityFlag,
		ScheduleDeliveryTime: d.ScheduleDeliveryTime,
		ValidityPeriod:       d.ValidityPeriod,
		RegisteredDelivery:   d.RegisteredDelivery,
		ReplaceIfPresentFlag: d.ReplaceIfPresentFlag,
		DataCoding:           uint8(coding),
		SMDefaultMsgID:       d.SMDefaultMsgID,
	}

	if smLength <= maxLen {
		t := base
		if binary {
			t.ShortMessageHex = hex.EncodeToString(msg)
		} else {
			t.ShortMessage = string(msg)
		}
		return []PDUTemplate{t}
	}

	numParts := (smLength + slicedLen - 1) / slicedLen
	if numParts > MaxParts {
		numParts = MaxParts
	}

	refNum := refs.Next()
	parts := make([]PDUTemplate, 0, numParts)

	for i := 0; i < numParts; i++ {
		seqnum := uint8(i + 1)

		lo, hi := slicedLen*i, slicedLen*(i+1)
		if bits == 16 {
			lo, hi = lo*2, hi*2
		}
		if hi > len(msg) {
			hi = len(msg)
		}
		segment := msg[lo:hi]

		t := base
		switch mode {
		case SplitSAR:
			t.SARMsgRefNum = uint16(refNum)
			t.SARTotalSegments = uint8(numParts)
			t.SARSegmentSeqnum = seqnum
			if binary {
				t.ShortMessageHex = hex.EncodeToString(segment)
			} else {
				t.ShortMessage = string(segment)
			}
		default: // SplitUDH
			t.EsmClass = pdu.EsmModeDefault | pdu.EsmTypeDefault | pdu.EsmUDHI

			mms := NoMoreMessages
			if seqnum < uint8(numParts) {
				mms = MoreMessages
			}
			t.MoreMessagesToSend = &mms

			udh := []byte{5, 0, 3, refNum, uint8(numParts), seqnum}
			t.ShortMessageHex = hex.EncodeToString(append(udh, segment...))
		}

		parts = append(parts, t)
	}

	return parts
}
