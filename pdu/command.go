// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package pdu

import "fmt"

// ID is an SMPP v3.4 command identifier.
type ID uint32

const (
	GenericNackID         ID = 0x80000000
	BindReceiverID        ID = 0x00000001
	BindReceiverRespID    ID = 0x80000001
	BindTransmitterID     ID = 0x00000002
	BindTransmitterRespID ID = 0x80000002
	QuerySMID             ID = 0x00000003
	QuerySMRespID         ID = 0x80000003
	SubmitSMID            ID = 0x00000004
	SubmitSMRespID        ID = 0x80000004
	DeliverSMID           ID = 0x00000005
	DeliverSMRespID       ID = 0x80000005
	UnbindID              ID = 0x00000006
	UnbindRespID          ID = 0x80000006
	ReplaceSMID           ID = 0x00000007
	ReplaceSMRespID       ID = 0x80000007
	CancelSMID            ID = 0x00000008
	CancelSMRespID        ID = 0x80000008
	BindTransceiverID     ID = 0x00000009
	BindTransceiverRespID ID = 0x80000009
	EnquireLinkID         ID = 0x00000015
	EnquireLinkRespID     ID = 0x80000015
	SubmitMultiID         ID = 0x00000021
	SubmitMultiRespID     ID = 0x80000021
	AlertNotificationID   ID = 0x00000102
	DataSMID              ID = 0x00000103
	DataSMRespID          ID = 0x80000103
)

var idNames = map[ID]string{
	GenericNackID:         "generic_nack",
	BindReceiverID:        "bind_receiver",
	BindReceiverRespID:    "bind_receiver_resp",
	BindTransmitterID:     "bind_transmitter",
	BindTransmitterRespID: "bind_transmitter_resp",
	QuerySMID:             "query_sm",
	QuerySMRespID:         "query_sm_resp",
	SubmitSMID:            "submit_sm",
	SubmitSMRespID:        "submit_sm_resp",
	DeliverSMID:           "deliver_sm",
	DeliverSMRespID:       "deliver_sm_resp",
	UnbindID:              "unbind",
	UnbindRespID:          "unbind_resp",
	ReplaceSMID:           "replace_sm",
	ReplaceSMRespID:       "replace_sm_resp",
	CancelSMID:            "cancel_sm",
	CancelSMRespID:        "cancel_sm_resp",
	BindTransceiverID:     "bind_transceiver",
	BindTransceiverRespID: "bind_transceiver_resp",
	EnquireLinkID:         "enquire_link",
	EnquireLinkRespID:     "enquire_link_resp",
	SubmitMultiID:         "submit_multi",
	SubmitMultiRespID:     "submit_multi_resp",
	AlertNotificationID:   "alert_notification",
	DataSMID:              "data_sm",
	DataSMRespID:          "data_sm_resp",
}

func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%08X)", uint32(id))
}

// Resp returns the response command ID for a request command ID.
func (id ID) Resp() ID {
	return id | 0x80000000
}

// IsResp reports whether the command ID denotes a response.
func (id ID) IsResp() bool {
	return id&0x80000000 != 0
}

// Status is an SMPP command status.
type Status uint32

const (
	StatusOK              Status = 0x00000000
	StatusInvMsgLen       Status = 0x00000001
	StatusInvCmdLen       Status = 0x00000002
	StatusInvCmdID        Status = 0x00000003
	StatusInvBindStatus   Status = 0x00000004
	StatusAlreadyBound    Status = 0x00000005
	StatusSysErr          Status = 0x00000008
	StatusInvSrcAddr      Status = 0x0000000A
	StatusInvDstAddr      Status = 0x0000000B
	StatusInvMsgID        Status = 0x0000000C
	StatusBindFail        Status = 0x0000000D
	StatusInvPassword     Status = 0x0000000E
	StatusInvSystemID     Status = 0x0000000F
	StatusMsgQueueFull    Status = 0x00000014
	StatusInvServiceType  Status = 0x00000015
	StatusInvEsmClass     Status = 0x00000043
	StatusSubmitFail      Status = 0x00000045
	StatusInvSrcTON       Status = 0x00000048
	StatusInvSrcNPI       Status = 0x00000049
	StatusInvDstTON       Status = 0x00000050
	StatusInvDstNPI       Status = 0x00000051
	StatusInvSystemType   Status = 0x00000053
	StatusThrottled       Status = 0x00000058
	StatusInvSchedule     Status = 0x00000061
	StatusInvExpiry       Status = 0x00000062
	StatusQueryFail       Status = 0x00000067
	StatusInvParamLen     Status = 0x000000C2
	StatusMissingTLV      Status = 0x000000C3
	StatusInvTLVValue     Status = 0x000000C4
	StatusDeliveryFailure Status = 0x000000FE
	StatusUnknownErr      Status = 0x000000FF
)

var statusNames = map[Status]string{
	StatusOK:              "ESME_ROK",
	StatusInvMsgLen:       "ESME_RINVMSGLEN",
	StatusInvCmdLen:       "ESME_RINVCMDLEN",
	StatusInvCmdID:        "ESME_RINVCMDID",
	StatusInvBindStatus:   "ESME_RINVBNDSTS",
	StatusAlreadyBound:    "ESME_RALYBND",
	StatusSysErr:          "ESME_RSYSERR",
	StatusInvSrcAddr:      "ESME_RINVSRCADR",
	StatusInvDstAddr:      "ESME_RINVDSTADR",
	StatusInvMsgID:        "ESME_RINVMSGID",
	StatusBindFail:        "ESME_RBINDFAIL",
	StatusInvPassword:     "ESME_RINVPASWD",
	StatusInvSystemID:     "ESME_RINVSYSID",
	StatusMsgQueueFull:    "ESME_RMSGQFUL",
	StatusInvServiceType:  "ESME_RINVSERTYP",
	StatusInvEsmClass:     "ESME_RINVESMCLASS",
	StatusSubmitFail:      "ESME_RSUBMITFAIL",
	StatusInvSrcTON:       "ESME_RINVSRCTON",
	StatusInvSrcNPI:       "ESME_RINVSRCNPI",
	StatusInvDstTON:       "ESME_RINVDSTTON",
	StatusInvDstNPI:       "ESME_RINVDSTNPI",
	StatusInvSystemType:   "ESME_RINVSYSTYP",
	StatusThrottled:       "ESME_RTHROTTLED",
	StatusInvSchedule:     "ESME_RINVSCHED",
	StatusInvExpiry:       "ESME_RINVEXPIRY",
	StatusQueryFail:       "ESME_RQUERYFAIL",
	StatusInvParamLen:     "ESME_RINVPARLEN",
	StatusMissingTLV:      "ESME_RMISSINGOPTPARAM",
	StatusInvTLVValue:     "ESME_RINVOPTPARAMVAL",
	StatusDeliveryFailure: "ESME_RDELIVERYFAILURE",
	StatusUnknownErr:      "ESME_RUNKNOWNERR",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("0x%08X", uint32(s))
}

// OK reports whether the status is ESME_ROK.
func (s Status) OK() bool {
	return s == StatusOK
}
