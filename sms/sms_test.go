// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package sms_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/onlineprabhakar/aiosmpp/pdu"
	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/onlineprabhakar/aiosmpp/sms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGSMEncode(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		out  []byte
	}{
		{
			desc: "basic and extension characters",
			in:   "Hello @ World £ and ]",
			out:  []byte("Hello \x00 World \x01 and \x1b\x3e"),
		},
		{
			desc: "unmappable runes dropped",
			in:   "Hello World ∑",
			out:  []byte("Hello World "),
		},
		{
			desc: "euro via extension table",
			in:   "10€",
			out:  []byte{'1', '0', 0x1B, 0x65},
		},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.out, sms.GSMEncode(tc.in), tc.desc)
	}
}

func TestParseDeliveryReceipt(t *testing.T) {
	payload := []byte("id:7220bb6bd0be98fa628de66590f80070 sub:001 dlvrd:001 submit date:0610190851 done date:0610190951 stat:DELIVRD err:000 text:")

	r, ok := sms.ParseDeliveryReceipt(payload)
	require.True(t, ok)
	assert.Equal(t, "7220bb6bd0be98fa628de66590f80070", r.ID)
	assert.Equal(t, "001", r.Sub)
	assert.Equal(t, "001", r.Dlvrd)
	assert.Equal(t, "0610190851", r.SubmitDate)
	assert.Equal(t, "0610190951", r.DoneDate)
	assert.Equal(t, "DELIVRD", r.Stat)
	assert.Equal(t, "000", r.Err)
	assert.Equal(t, "", r.Text)
}

func TestParseDeliveryReceiptDefaults(t *testing.T) {
	r, ok := sms.ParseDeliveryReceipt([]byte("id:abc123 stat:EXPIRED"))
	require.True(t, ok)
	assert.Equal(t, "abc123", r.ID)
	assert.Equal(t, "EXPIRED", r.Stat)
	assert.Equal(t, "ND", r.Sub)
	assert.Equal(t, "ND", r.Dlvrd)
	assert.Equal(t, "ND", r.SubmitDate)
	assert.Equal(t, "ND", r.DoneDate)
	assert.Equal(t, "ND", r.Err)
}

func TestParseDeliveryReceiptRejects(t *testing.T) {
	cases := []struct {
		desc string
		body string
	}{
		{desc: "missing stat", body: "id:7220bb6bd0be98fa628de66590f80070 sub:001 dlvrd:001 submit date:0610190851 done date:0610190951 err:000 text:"},
		{desc: "missing id", body: "sub:001 dlvrd:001 submit date:0610190851 done date:0610190951 stat:DELIVRD err:000 text:"},
		{desc: "missing both", body: "sub:001 dlvrd:001 submit date:0610190851 done date:0610190951 err:000 text:"},
		{desc: "plain message", body: "hello there"},
	}
	for _, tc := range cases {
		_, ok := sms.ParseDeliveryReceipt([]byte(tc.body))
		assert.False(t, ok, tc.desc)
	}
}

func TestRefCounterCycles(t *testing.T) {
	refs := &sms.RefCounter{}
	seen := make(map[uint8]bool)
	for i := 0; i < 255; i++ {
		n := refs.Next()
		assert.NotZero(t, n)
		seen[n] = true
	}
	assert.Len(t, seen, 255)
	// The counter wraps back to 1, never issuing zero.
	assert.Equal(t, uint8(1), refs.Next())
}

func TestBuildPDUsSinglePart(t *testing.T) {
	msg := sms.GSMEncode("short message")
	parts := sms.BuildPDUs("447400000001", "447400000002", msg, 0, false, sms.SplitUDH, &sms.RefCounter{}, sms.DefaultSubmit())

	require.Len(t, parts, 1)
	p := parts[0]
	assert.Equal(t, pdu.EsmModeStoreAndForward, p.EsmClass)
	assert.Equal(t, string(msg), p.ShortMessage)
	assert.Empty(t, p.ShortMessageHex)
	assert.Nil(t, p.MoreMessagesToSend)
	assert.Zero(t, p.SARTotalSegments)
	assert.Equal(t, pdu.TONNational, p.SourceAddrTON)
	assert.Equal(t, pdu.TONInternational, p.DestAddrTON)
}

func TestBuildPDUsUDHSplit(t *testing.T) {
	msg := []byte(strings.Repeat("a", 400))
	refs := &sms.RefCounter{}
	parts := sms.BuildPDUs("1000", "2000", msg, 0, false, sms.SplitUDH, refs, sms.DefaultSubmit())

	require.Len(t, parts, 3)

	for i, p := range parts {
		assert.Empty(t, p.ShortMessage)
		assert.Equal(t, pdu.EsmUDHI, p.EsmClass)

		raw, err := hex.DecodeString(p.ShortMessageHex)
		require.NoError(t, err)
		assert.Equal(t, []byte{5, 0, 3, 1, 3, byte(i + 1)}, raw[:6])

		require.NotNil(t, p.MoreMessagesToSend)
		if i < 2 {
			assert.Equal(t, sms.MoreMessages, *p.MoreMessagesToSend)
			assert.Len(t, raw, 6+153)
		} else {
			assert.Equal(t, sms.NoMoreMessages, *p.MoreMessagesToSend)
			assert.Len(t, raw, 6+400-2*153)
		}
	}
}

func TestBuildPDUsSARSplit(t *testing.T) {
	msg := []byte(strings.Repeat("b", 200))
	parts := sms.BuildPDUs("1000", "2000", msg, 0, false, sms.SplitSAR, &sms.RefCounter{}, sms.DefaultSubmit())

	require.Len(t, parts, 2)
	for i, p := range parts {
		assert.Equal(t, pdu.EsmModeStoreAndForward, p.EsmClass)
		assert.Equal(t, uint16(1), p.SARMsgRefNum)
		assert.Equal(t, uint8(2), p.SARTotalSegments)
		assert.Equal(t, uint8(i+1), p.SARSegmentSeqnum)
		assert.Nil(t, p.MoreMessagesToSend)
	}
	assert.Equal(t, strings.Repeat("b", 153), parts[0].ShortMessage)
	assert.Equal(t, strings.Repeat("b", 47), parts[1].ShortMessage)
}

func TestBuildPDUsMaxPartsCap(t *testing.T) {
	msg := []byte(strings.Repeat("c", 153*6))
	parts := sms.BuildPDUs("1000", "2000", msg, 0, false, sms.SplitUDH, &sms.RefCounter{}, sms.DefaultSubmit())

	assert.Len(t, parts, sms.MaxParts)
}

func TestBuildPDUsUCS2(t *testing.T) {
	// 80 UCS2 characters is 160 octets, over the 70 character single PDU cap.
	msg := make([]byte, 160)
	for i := range msg {
		msg[i] = byte(i)
	}
	parts := sms.BuildPDUs("1000", "2000", msg, 8, true, sms.SplitUDH, &sms.RefCounter{}, sms.DefaultSubmit())

	require.Len(t, parts, 2)

	first, err := hex.DecodeString(parts[0].ShortMessageHex)
	require.NoError(t, err)
	second, err := hex.DecodeString(parts[1].ShortMessageHex)
	require.NoError(t, err)

	// 67 UCS2 characters per segment, then the remainder.
	assert.Equal(t, 6+134, len(first))
	assert.Equal(t, 6+26, len(second))
	assert.Equal(t, msg, append(first[6:], second[6:]...))
}

func TestBuildPDUsBinarySinglePart(t *testing.T) {
	msg := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	parts := sms.BuildPDUs("1000", "2000", msg, 8, true, sms.SplitUDH, &sms.RefCounter{}, sms.DefaultSubmit())

	require.Len(t, parts, 1)
	assert.Empty(t, parts[0].ShortMessage)
	assert.Equal(t, "deadbeef", parts[0].ShortMessageHex)
}

func TestPDUTemplateSubmitSM(t *testing.T) {
	mms := sms.MoreMessages
	tmpl := sms.PDUTemplate{
		SourceAddr:         "1000",
		DestinationAddr:    "2000",
		EsmClass:           pdu.EsmUDHI,
		DataCoding:         0,
		ShortMessageHex:    "050003010201abcd",
		SARMsgRefNum:       7,
		SARTotalSegments:   2,
		SARSegmentSeqnum:   1,
		MoreMessagesToSend: &mms,
	}

	s, err := tmpl.SubmitSM()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x00, 0x03, 0x01, 0x02, 0x01, 0xAB, 0xCD}, s.ShortMessage)

	ref, ok := pdu.FindTLV(s.TLVs, pdu.TagSARMsgRefNum)
	require.True(t, ok)
	assert.Equal(t, uint16(7), ref.Uint16())

	more, ok := pdu.FindTLV(s.TLVs, pdu.TagMoreMessagesToSend)
	require.True(t, ok)
	assert.Equal(t, sms.MoreMessages, more.Uint8())
}

func TestPDUTemplateBadHex(t *testing.T) {
	tmpl := sms.PDUTemplate{ShortMessageHex: "zz"}
	_, err := tmpl.SubmitSM()
	assert.True(t, errors.Contains(err, sms.ErrBadHexContent))
}
