// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package pdu

// Optional parameter tags used by the gateway.
const (
	TagSARMsgRefNum       uint16 = 0x020C
	TagSARTotalSegments   uint16 = 0x020E
	TagSARSegmentSeqnum   uint16 = 0x020F
	TagSCInterfaceVersion uint16 = 0x0210
	TagMoreMessagesToSend uint16 = 0x0426
	TagMessagePayload     uint16 = 0x0424
)

// TLV is a single optional parameter.
type TLV struct {
	Tag   uint16
	Value []byte
}

// Uint8 returns the value as a single octet integer.
func (t TLV) Uint8() uint8 {
	if len(t.Value) == 0 {
		return 0
	}
	return t.Value[0]
}

// Uint16 returns the value as a two octet big-endian integer. Single octet
// values are widened, which some SMSCs emit for sar_msg_ref_num.
func (t TLV) Uint16() uint16 {
	switch len(t.Value) {
	case 0:
		return 0
	case 1:
		return uint16(t.Value[0])
	default:
		return uint16(t.Value[0])<<8 | uint16(t.Value[1])
	}
}

// FindTLV returns the first optional parameter with the given tag.
func FindTLV(tlvs []TLV, tag uint16) (TLV, bool) {
	for _, t := range tlvs {
		if t.Tag == tag {
			return t, true
		}
	}
	return TLV{}, false
}

// TLVUint8 builds a single octet optional parameter.
func TLVUint8(tag uint16, v uint8) TLV {
	return TLV{Tag: tag, Value: []byte{v}}
}

// TLVUint16 builds a two octet big-endian optional parameter.
func TLVUint16(tag uint16, v uint16) TLV {
	return TLV{Tag: tag, Value: []byte{byte(v >> 8), byte(v)}}
}

func appendTLV(b []byte, t TLV) []byte {
	b = append(b, byte(t.Tag>>8), byte(t.Tag), byte(len(t.Value)>>8), byte(len(t.Value)))
	return append(b, t.Value...)
}

// readTLVs consumes optional parameters until end of body. A TLV whose
// declared length overruns the body is a decode error.
func readTLVs(r *reader) ([]TLV, error) {
	var tlvs []TLV
	for r.remaining() > 0 {
		tag, err := r.uint16()
		if err != nil {
			return nil, err
		}
		length, err := r.uint16()
		if err != nil {
			return nil, err
		}
		value, err := r.bytes(int(length))
		if err != nil {
			return nil, err
		}
		tlvs = append(tlvs, TLV{Tag: tag, Value: append([]byte(nil), value...)})
	}
	return tlvs, nil
}
