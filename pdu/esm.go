// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package pdu

// esm_class bit fields.
const (
	EsmModeDefault         uint8 = 0x00
	EsmModeDatagram        uint8 = 0x01
	EsmModeForward         uint8 = 0x02
	EsmModeStoreAndForward uint8 = 0x03

	EsmTypeDefault             uint8 = 0x00
	EsmTypeSMSCDeliveryReceipt uint8 = 0x04
	EsmTypeDeliveryAck         uint8 = 0x08
	EsmTypeManualAck           uint8 = 0x10

	// EsmTypeMask isolates the message type nibble of esm_class.
	EsmTypeMask uint8 = 0x3C

	EsmUDHI      uint8 = 0x40
	EsmReplyPath uint8 = 0x80
)

// registered_delivery values.
const (
	NoDeliveryReceipt        uint8 = 0x00
	DeliveryReceiptRequested uint8 = 0x01
	DeliveryReceiptOnFailure uint8 = 0x02
)

// Type of number and numbering plan indicator values.
const (
	TONUnknown       uint8 = 0x00
	TONInternational uint8 = 0x01
	TONNational      uint8 = 0x02
	TONAlphanumeric  uint8 = 0x05

	NPIUnknown uint8 = 0x00
	NPIISDN    uint8 = 0x01
	NPIData    uint8 = 0x03
)

// InterfaceVersion is the SMPP version spoken by this implementation.
const InterfaceVersion uint8 = 0x34

// IsDeliveryReceipt reports whether an inbound esm_class flags the PDU as a
// delivery or manual acknowledgment.
func IsDeliveryReceipt(esmClass uint8) bool {
	t := esmClass & EsmTypeMask
	return t&EsmTypeSMSCDeliveryReceipt != 0 || t&EsmTypeDeliveryAck != 0 || t&EsmTypeManualAck != 0
}

// IsDefaultMessage reports whether an inbound esm_class denotes a plain MO
// message.
func IsDefaultMessage(esmClass uint8) bool {
	return esmClass&EsmTypeMask == EsmTypeDefault
}

// HasUDHI reports whether the GSM features UDHI bit is set.
func HasUDHI(esmClass uint8) bool {
	return esmClass&EsmUDHI != 0
}
