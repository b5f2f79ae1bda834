// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package pdu

// BindTransceiver requests a transceiver bind.
type BindTransceiver struct {
	SystemID         string
	Password         string
	SystemType       string
	InterfaceVersion uint8
	AddrTON          uint8
	AddrNPI          uint8
	AddressRange     string
}

func (*BindTransceiver) CommandID() ID { return BindTransceiverID }

func (b *BindTransceiver) MarshalBinary() ([]byte, error) {
	buf := appendCString(nil, b.SystemID, maxSystemID)
	buf = appendCString(buf, b.Password, maxPassword)
	buf = appendCString(buf, b.SystemType, maxSystemType)
	buf = append(buf, b.InterfaceVersion, b.AddrTON, b.AddrNPI)
	buf = appendCString(buf, b.AddressRange, maxAddressRange)
	return buf, nil
}

func (b *BindTransceiver) UnmarshalBinary(data []byte) error {
	r := &reader{buf: data}
	var err error
	if b.SystemID, err = r.cstring(maxSystemID); err != nil {
		return err
	}
	if b.Password, err = r.cstring(maxPassword); err != nil {
		return err
	}
	if b.SystemType, err = r.cstring(maxSystemType); err != nil {
		return err
	}
	if b.InterfaceVersion, err = r.uint8(); err != nil {
		return err
	}
	if b.AddrTON, err = r.uint8(); err != nil {
		return err
	}
	if b.AddrNPI, err = r.uint8(); err != nil {
		return err
	}
	b.AddressRange, err = r.cstring(maxAddressRange)
	return err
}

// BindTransceiverResp acknowledges a transceiver bind.
type BindTransceiverResp struct {
	SystemID string
	TLVs     []TLV
}

func (*BindTransceiverResp) CommandID() ID { return BindTransceiverRespID }

func (b *BindTransceiverResp) MarshalBinary() ([]byte, error) {
	buf := appendCString(nil, b.SystemID, maxSystemID)
	for _, t := range b.TLVs {
		buf = appendTLV(buf, t)
	}
	return buf, nil
}

func (b *BindTransceiverResp) UnmarshalBinary(data []byte) error {
	// Error responses may carry no body at all.
	if len(data) == 0 {
		return nil
	}
	r := &reader{buf: data}
	var err error
	if b.SystemID, err = r.cstring(maxSystemID); err != nil {
		return err
	}
	b.TLVs, err = readTLVs(r)
	return err
}

// SCInterfaceVersion returns the sc_interface_version TLV value if present.
func (b *BindTransceiverResp) SCInterfaceVersion() (uint8, bool) {
	t, ok := FindTLV(b.TLVs, TagSCInterfaceVersion)
	if !ok {
		return 0, false
	}
	return t.Uint8(), true
}

// SubmitSM carries one MT short message.
type SubmitSM struct {
	ServiceType          string
	SourceAddrTON        uint8
	SourceAddrNPI        uint8
	SourceAddr           string
	DestAddrTON          uint8
	DestAddrNPI          uint8
	DestinationAddr      string
	EsmClass             uint8
	ProtocolID           uint8
	PriorityFlag         uint8
	ScheduleDeliveryTime string
	ValidityPeriod       string
	RegisteredDelivery   uint8
	ReplaceIfPresentFlag uint8
	DataCoding           uint8
	SMDefaultMsgID       uint8
	ShortMessage         []byte
	TLVs                 []TLV
}

func (*SubmitSM) CommandID() ID { return SubmitSMID }

func (s *SubmitSM) MarshalBinary() ([]byte, error) {
	if len(s.ShortMessage) > MaxShortMessage {
		return nil, ErrFieldTooLong
	}
	buf := appendCString(nil, s.ServiceType, maxServiceType)
	buf = append(buf, s.SourceAddrTON, s.SourceAddrNPI)
	buf = appendCString(buf, s.SourceAddr, maxAddr)
	buf = append(buf, s.DestAddrTON, s.DestAddrNPI)
	buf = appendCString(buf, s.DestinationAddr, maxAddr)
	buf = append(buf, s.EsmClass, s.ProtocolID, s.PriorityFlag)
	buf = appendCString(buf, s.ScheduleDeliveryTime, maxTime)
	buf = appendCString(buf, s.ValidityPeriod, maxTime)
	buf = append(buf, s.RegisteredDelivery, s.ReplaceIfPresentFlag, s.DataCoding, s.SMDefaultMsgID)
	buf = append(buf, uint8(len(s.ShortMessage)))
	buf = append(buf, s.ShortMessage...)
	for _, t := range s.TLVs {
		buf = appendTLV(buf, t)
	}
	return buf, nil
}

func (s *SubmitSM) UnmarshalBinary(data []byte) error {
	body, tlvs, err := readSMBody(data)
	if err != nil {
		return err
	}
	*s = SubmitSM(*body)
	s.TLVs = tlvs
	return nil
}

// SubmitSMResp acknowledges a submit_sm with the SMSC message id.
type SubmitSMResp struct {
	MessageID string
}

func (*SubmitSMResp) CommandID() ID { return SubmitSMRespID }

func (s *SubmitSMResp) MarshalBinary() ([]byte, error) {
	return appendCString(nil, s.MessageID, maxMessageID), nil
}

func (s *SubmitSMResp) UnmarshalBinary(data []byte) error {
	// Error responses may carry no body at all.
	if len(data) == 0 {
		return nil
	}
	r := &reader{buf: data}
	var err error
	s.MessageID, err = r.cstring(maxMessageID)
	return err
}

// DeliverSM carries one MO short message or delivery receipt. The layout is
// identical to submit_sm.
type DeliverSM struct {
	ServiceType          string
	SourceAddrTON        uint8
	SourceAddrNPI        uint8
	SourceAddr           string
	DestAddrTON          uint8
	DestAddrNPI          uint8
	DestinationAddr      string
	EsmClass             uint8
	ProtocolID           uint8
	PriorityFlag         uint8
	ScheduleDeliveryTime string
	ValidityPeriod       string
	RegisteredDelivery   uint8
	ReplaceIfPresentFlag uint8
	DataCoding           uint8
	SMDefaultMsgID       uint8
	ShortMessage         []byte
	TLVs                 []TLV
}

func (*DeliverSM) CommandID() ID { return DeliverSMID }

func (d *DeliverSM) MarshalBinary() ([]byte, error) {
	s := SubmitSM(*d)
	return s.MarshalBinary()
}

func (d *DeliverSM) UnmarshalBinary(data []byte) error {
	body, tlvs, err := readSMBody(data)
	if err != nil {
		return err
	}
	*d = DeliverSM(*body)
	d.TLVs = tlvs
	return nil
}

// smBody is the shared submit_sm/deliver_sm mandatory parameter layout.
type smBody = SubmitSM

func readSMBody(data []byte) (*smBody, []TLV, error) {
	r := &reader{buf: data}
	s := &smBody{}
	var err error
	if s.ServiceType, err = r.cstring(maxServiceType); err != nil {
		return nil, nil, err
	}
	if s.SourceAddrTON, err = r.uint8(); err != nil {
		return nil, nil, err
	}
	if s.SourceAddrNPI, err = r.uint8(); err != nil {
		return nil, nil, err
	}
	if s.SourceAddr, err = r.cstring(maxAddr); err != nil {
		return nil, nil, err
	}
	if s.DestAddrTON, err = r.uint8(); err != nil {
		return nil, nil, err
	}
	if s.DestAddrNPI, err = r.uint8(); err != nil {
		return nil, nil, err
	}
	if s.DestinationAddr, err = r.cstring(maxAddr); err != nil {
		return nil, nil, err
	}
	if s.EsmClass, err = r.uint8(); err != nil {
		return nil, nil, err
	}
	if s.ProtocolID, err = r.uint8(); err != nil {
		return nil, nil, err
	}
	if s.PriorityFlag, err = r.uint8(); err != nil {
		return nil, nil, err
	}
	if s.ScheduleDeliveryTime, err = r.cstring(maxTime); err != nil {
		return nil, nil, err
	}
	if s.ValidityPeriod, err = r.cstring(maxTime); err != nil {
		return nil, nil, err
	}
	if s.RegisteredDelivery, err = r.uint8(); err != nil {
		return nil, nil, err
	}
	if s.ReplaceIfPresentFlag, err = r.uint8(); err != nil {
		return nil, nil, err
	}
	if s.DataCoding, err = r.uint8(); err != nil {
		return nil, nil, err
	}
	if s.SMDefaultMsgID, err = r.uint8(); err != nil {
		return nil, nil, err
	}
	smLength, err := r.uint8()
	if err != nil {
		return nil, nil, err
	}
	sm, err := r.bytes(int(smLength))
	if err != nil {
		return nil, nil, err
	}
	s.ShortMessage = append([]byte(nil), sm...)

	tlvs, err := readTLVs(r)
	if err != nil {
		return nil, nil, err
	}
	return s, tlvs, nil
}

// DeliverSMResp acknowledges a deliver_sm.
type DeliverSMResp struct {
	MessageID string
}

func (*DeliverSMResp) CommandID() ID { return DeliverSMRespID }

func (d *DeliverSMResp) MarshalBinary() ([]byte, error) {
	return appendCString(nil, d.MessageID, maxMessageID), nil
}

func (d *DeliverSMResp) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	r := &reader{buf: data}
	var err error
	d.MessageID, err = r.cstring(maxMessageID)
	return err
}

// EnquireLink is the keepalive request.
type EnquireLink struct{}

func (*EnquireLink) CommandID() ID                  { return EnquireLinkID }
func (*EnquireLink) MarshalBinary() ([]byte, error) { return nil, nil }
func (*EnquireLink) UnmarshalBinary([]byte) error   { return nil }

// EnquireLinkResp is the keepalive response.
type EnquireLinkResp struct{}

func (*EnquireLinkResp) CommandID() ID                  { return EnquireLinkRespID }
func (*EnquireLinkResp) MarshalBinary() ([]byte, error) { return nil, nil }
func (*EnquireLinkResp) UnmarshalBinary([]byte) error   { return nil }

// Unbind requests an orderly session teardown.
type Unbind struct{}

func (*Unbind) CommandID() ID                  { return UnbindID }
func (*Unbind) MarshalBinary() ([]byte, error) { return nil, nil }
func (*Unbind) UnmarshalBinary([]byte) error   { return nil }

// UnbindResp acknowledges an unbind.
type UnbindResp struct{}

func (*UnbindResp) CommandID() ID                  { return UnbindRespID }
func (*UnbindResp) MarshalBinary() ([]byte, error) { return nil, nil }
func (*UnbindResp) UnmarshalBinary([]byte) error   { return nil }

// GenericNack rejects a PDU that cannot be handled.
type GenericNack struct{}

func (*GenericNack) CommandID() ID                  { return GenericNackID }
func (*GenericNack) MarshalBinary() ([]byte, error) { return nil, nil }
func (*GenericNack) UnmarshalBinary([]byte) error   { return nil }
