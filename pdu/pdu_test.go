// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package pdu_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/onlineprabhakar/aiosmpp/pdu"
	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalLengthPrefix(t *testing.T) {
	cases := []struct {
		desc string
		body pdu.Body
	}{
		{desc: "empty body", body: &pdu.EnquireLink{}},
		{desc: "bind", body: &pdu.BindTransceiver{SystemID: "test", Password: "pw"}},
		{desc: "submit", body: &pdu.SubmitSM{SourceAddr: "447400000001", DestinationAddr: "447400000002", ShortMessage: []byte("hello")}},
	}
	for _, tc := range cases {
		b, err := pdu.Marshal(tc.body, 1, pdu.StatusOK)
		require.NoError(t, err, tc.desc)
		assert.Equal(t, uint32(len(b)), binary.BigEndian.Uint32(b[:4]), tc.desc)
	}
}

func TestBindTransceiverRoundTrip(t *testing.T) {
	want := &pdu.BindTransceiver{
		SystemID:         "smppclient1",
		Password:         "password",
		SystemType:       "",
		InterfaceVersion: pdu.InterfaceVersion,
		AddrTON:          0,
		AddrNPI:          1,
		AddressRange:     "",
	}

	b, err := pdu.Marshal(want, 7, pdu.StatusOK)
	require.NoError(t, err)

	p, err := pdu.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), p.Header.Seq)
	assert.Equal(t, pdu.BindTransceiverID, p.Header.ID)
	assert.Equal(t, want, p.Body)
}

func TestBindTransceiverTruncatesOversizeFields(t *testing.T) {
	b := &pdu.BindTransceiver{
		SystemID: "a-system-id-that-is-way-over-sixteen-octets",
		Password: "longpassword",
	}

	raw, err := b.MarshalBinary()
	require.NoError(t, err)

	got := &pdu.BindTransceiver{}
	require.NoError(t, got.UnmarshalBinary(raw))

	// 15 octets plus terminator and 8 octets plus terminator.
	assert.Equal(t, "a-system-id-tha", got.SystemID)
	assert.Equal(t, "longpass", got.Password)
}

func TestBindTransceiverRespTLV(t *testing.T) {
	resp := &pdu.BindTransceiverResp{
		SystemID: "SMSC",
		TLVs:     []pdu.TLV{pdu.TLVUint8(pdu.TagSCInterfaceVersion, 0x34)},
	}

	b, err := pdu.Marshal(resp, 1, pdu.StatusOK)
	require.NoError(t, err)

	p, err := pdu.Decode(bytes.NewReader(b))
	require.NoError(t, err)

	got, ok := p.Body.(*pdu.BindTransceiverResp)
	require.True(t, ok)
	v, ok := got.SCInterfaceVersion()
	require.True(t, ok)
	assert.Equal(t, uint8(0x34), v)
}

func TestSubmitSMRoundTrip(t *testing.T) {
	want := &pdu.SubmitSM{
		SourceAddrTON:      pdu.TONNational,
		SourceAddrNPI:      pdu.NPIISDN,
		SourceAddr:         "447428666666",
		DestAddrTON:        pdu.TONInternational,
		DestAddrNPI:        pdu.NPIISDN,
		DestinationAddr:    "447428555555",
		EsmClass:           pdu.EsmModeStoreAndForward,
		RegisteredDelivery: pdu.DeliveryReceiptRequested,
		DataCoding:         0,
		ShortMessage:       []byte("\x01 test"),
		TLVs: []pdu.TLV{
			pdu.TLVUint16(pdu.TagSARMsgRefNum, 12),
			pdu.TLVUint8(pdu.TagSARTotalSegments, 2),
			pdu.TLVUint8(pdu.TagSARSegmentSeqnum, 1),
		},
	}

	b, err := pdu.Marshal(want, 42, pdu.StatusOK)
	require.NoError(t, err)

	p, err := pdu.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, want, p.Body)
}

func TestDeliverSMRoundTrip(t *testing.T) {
	want := &pdu.DeliverSM{
		SourceAddr:      "447400000001",
		DestinationAddr: "447400000002",
		EsmClass:        pdu.EsmTypeSMSCDeliveryReceipt,
		ShortMessage:    []byte("id:abc sub:001 dlvrd:001 submit date:0610190851 done date:0610190951 stat:DELIVRD err:000 text:"),
	}

	b, err := pdu.Marshal(want, 9, pdu.StatusOK)
	require.NoError(t, err)

	p, err := pdu.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, want, p.Body)
}

func TestSubmitSMShortMessageTooLong(t *testing.T) {
	s := &pdu.SubmitSM{ShortMessage: bytes.Repeat([]byte{'a'}, pdu.MaxShortMessage+1)}
	_, err := s.MarshalBinary()
	assert.True(t, errors.Contains(err, pdu.ErrFieldTooLong))
}

func TestSubmitSMRespEmptyBody(t *testing.T) {
	// A non ROK submit_sm_resp may omit the message id entirely.
	b, err := pdu.Marshal(&pdu.EnquireLink{}, 3, pdu.StatusOK)
	require.NoError(t, err)
	binary.BigEndian.PutUint32(b[4:8], uint32(pdu.SubmitSMRespID))
	binary.BigEndian.PutUint32(b[8:12], uint32(pdu.StatusThrottled))

	p, err := pdu.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, pdu.StatusThrottled, p.Header.Status)
	assert.Equal(t, &pdu.SubmitSMResp{}, p.Body)
}

func TestDecodeUnknownCommand(t *testing.T) {
	b, err := pdu.Marshal(&pdu.EnquireLink{}, 5, pdu.StatusOK)
	require.NoError(t, err)
	binary.BigEndian.PutUint32(b[4:8], 0x00000103)

	p, err := pdu.Decode(bytes.NewReader(b))
	assert.True(t, errors.Contains(err, pdu.ErrUnsupportedCommand))
	require.NotNil(t, p)
	assert.Equal(t, uint32(5), p.Header.Seq)
}

func TestDecodeMalformed(t *testing.T) {
	submit, err := pdu.Marshal(&pdu.SubmitSM{ShortMessage: []byte("hi")}, 1, pdu.StatusOK)
	require.NoError(t, err)

	truncated := append([]byte(nil), submit...)
	binary.BigEndian.PutUint32(truncated[0:4], uint32(len(truncated)-4))
	truncated = truncated[:len(truncated)-4]

	overrunTLV := append([]byte(nil), submit...)
	overrunTLV = append(overrunTLV, 0x02, 0x0C, 0x00, 0x08, 0x01)
	binary.BigEndian.PutUint32(overrunTLV[0:4], uint32(len(overrunTLV)))

	badLen := append([]byte(nil), submit...)
	binary.BigEndian.PutUint32(badLen[0:4], 8)

	cases := []struct {
		desc string
		raw  []byte
	}{
		{desc: "body shorter than declared fields", raw: truncated},
		{desc: "tlv overruns body", raw: overrunTLV},
		{desc: "length below header size", raw: badLen},
	}
	for _, tc := range cases {
		_, err := pdu.Decode(bytes.NewReader(tc.raw))
		assert.True(t, errors.Contains(err, pdu.ErrMalformedPDU), tc.desc)
	}
}

func TestDecodeMissingCStringTerminator(t *testing.T) {
	// bind_transceiver_resp whose system_id never terminates within its cap.
	body := bytes.Repeat([]byte{'x'}, 20)
	raw := make([]byte, pdu.HeaderLen, pdu.HeaderLen+len(body))
	binary.BigEndian.PutUint32(raw[0:4], uint32(pdu.HeaderLen+len(body)))
	binary.BigEndian.PutUint32(raw[4:8], uint32(pdu.BindTransceiverRespID))
	raw = append(raw, body...)

	_, err := pdu.Decode(bytes.NewReader(raw))
	assert.True(t, errors.Contains(err, pdu.ErrMalformedPDU))
}

func TestDecodeCoalescedFrames(t *testing.T) {
	first, err := pdu.Marshal(&pdu.EnquireLink{}, 1, pdu.StatusOK)
	require.NoError(t, err)
	second, err := pdu.Marshal(&pdu.SubmitSMResp{MessageID: "abc123"}, 2, pdu.StatusOK)
	require.NoError(t, err)

	r := bytes.NewReader(append(first, second...))

	p1, err := pdu.Decode(r)
	require.NoError(t, err)
	assert.Equal(t, pdu.EnquireLinkID, p1.Header.ID)

	p2, err := pdu.Decode(r)
	require.NoError(t, err)
	assert.Equal(t, &pdu.SubmitSMResp{MessageID: "abc123"}, p2.Body)
}

func TestEsmClassification(t *testing.T) {
	cases := []struct {
		desc    string
		esm     uint8
		receipt bool
		plain   bool
	}{
		{desc: "default message", esm: 0x00, receipt: false, plain: true},
		{desc: "smsc delivery receipt", esm: 0x04, receipt: true, plain: false},
		{desc: "delivery ack", esm: 0x08, receipt: true, plain: false},
		{desc: "manual ack", esm: 0x10, receipt: true, plain: false},
		{desc: "udhi only", esm: 0x40, receipt: false, plain: true},
		{desc: "store and forward mode", esm: 0x03, receipt: false, plain: true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.receipt, pdu.IsDeliveryReceipt(tc.esm), tc.desc)
		assert.Equal(t, tc.plain, pdu.IsDefaultMessage(tc.esm), tc.desc)
	}
}
