// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package sms

import "regexp"

// DeliveryReceipt holds the fields of an SMSC delivery receipt text body.
type DeliveryReceipt struct {
	ID         string
	Sub        string
	Dlvrd      string
	SubmitDate string
	DoneDate   string
	Stat       string
	Err        string
	Text       string
}

var receiptFields = map[string]*regexp.Regexp{
	"id":    regexp.MustCompile(`\bid:(\S+)`),
	"sub":   regexp.MustCompile(`\bsub:(\S+)`),
	"dlvrd": regexp.MustCompile(`\bdlvrd:(\S+)`),
	"sdate": regexp.MustCompile(`\bsubmit date:(\S+)`),
	"ddate": regexp.MustCompile(`\bdone date:(\S+)`),
	"stat":  regexp.MustCompile(`\bstat:(\S+)`),
	"err":   regexp.MustCompile(`\berr:(\S+)`),
	"text":  regexp.MustCompile(`\btext:(.*)$`),
}

// ParseDeliveryReceipt parses the conventional
// "id:... sub:... dlvrd:... submit date:... done date:... stat:... err:... text:..."
// receipt body. id and stat are mandatory; a body missing either is not a
// receipt we can correlate and ok is false. Other absent fields read "ND".
func ParseDeliveryReceipt(shortMessage []byte) (DeliveryReceipt, bool) {
	body := string(shortMessage)

	get := func(field string) (string, bool) {
		m := receiptFields[field].FindStringSubmatch(body)
		if m == nil {
			return "", false
		}
		return m[1], true
	}

	id, okID := get("id")
	stat, okStat := get("stat")
	if !okID || !okStat {
		return DeliveryReceipt{}, false
	}

	nd := func(field string) string {
		if v, ok := get(field); ok {
			return v
		}
		return "ND"
	}

	r := DeliveryReceipt{
		ID:         id,
		Sub:        nd("sub"),
		Dlvrd:      nd("dlvrd"),
		SubmitDate: nd("sdate"),
		DoneDate:   nd("ddate"),
		Stat:       stat,
		Err:        nd("err"),
	}
	if v, ok := get("text"); ok {
		r.Text = v
	}
	return r, true
}
