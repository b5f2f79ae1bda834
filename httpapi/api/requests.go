// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"strconv"
	"strings"

	"github.com/onlineprabhakar/aiosmpp/httpapi"
	"github.com/onlineprabhakar/aiosmpp/pkg/apiutil"
	"github.com/onlineprabhakar/aiosmpp/sms"
)

// sendReq carries the raw legacy query parameters. Presence and value are
// distinct in the legacy contract, hence the has flags.
type sendReq struct {
	to   string
	from string

	hasUsername bool
	hasPassword bool

	coding   string
	priority string
	sdt      string
	validity string
	hasValid bool
	tags     string

	content       string
	hasContent    bool
	hexContent    string
	hasHexContent bool

	dlr          string
	dlrURL       string
	hasDLRURL    bool
	dlrLevel     string
	hasDLRLevel  bool
	dlrMethod    string
	hasDLRMethod bool
}

// validate enforces the legacy parameter contract and produces a service
// request. The error messages are part of the public API.
func (req sendReq) validate() (httpapi.SendRequest, error) {
	out := httpapi.SendRequest{
		To:   req.to,
		From: req.from,
		SDT:  req.sdt,
	}

	if req.to == "" {
		return out, apiutil.ErrMissingTo
	}
	if !req.hasUsername {
		return out, apiutil.ErrMissingUsername
	}
	if !req.hasPassword {
		return out, apiutil.ErrMissingPassword
	}
	if !req.hasContent && !req.hasHexContent {
		return out, apiutil.ErrMissingContent
	}
	out.Content = req.content
	if !req.hasContent {
		out.HexContent = req.hexContent
	}

	coding := 0
	if req.coding != "" {
		v, err := strconv.Atoi(req.coding)
		if err != nil || v < 0 || v > 14 {
			return out, apiutil.ErrInvalidCoding
		}
		coding = v
	}
	out.Coding = coding

	if req.priority != "" {
		v, err := strconv.Atoi(req.priority)
		if err != nil || v < 0 || v > 3 {
			return out, apiutil.ErrInvalidPriority
		}
		out.Priority = v
	}

	if req.hasValid {
		v, err := strconv.Atoi(req.validity)
		if err != nil {
			return out, apiutil.ErrValidityNotInt
		}
		if v < 0 {
			return out, apiutil.ErrValidityNegative
		}
		out.ValidityPeriod = &v
	}

	if req.tags != "" {
		for _, t := range strings.Split(req.tags, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(t))
			if err != nil {
				return out, apiutil.ErrInvalidTags
			}
			out.Tags = append(out.Tags, v)
		}
	}

	if req.dlr == "yes" {
		if !req.hasDLRURL {
			return out, apiutil.ErrMissingDLRURL
		}
		if !req.hasDLRLevel {
			return out, apiutil.ErrMissingDLRLevel
		}
		if !req.hasDLRMethod {
			return out, apiutil.ErrMissingDLRMethod
		}

		level, err := strconv.Atoi(req.dlrLevel)
		if err != nil || level < 1 || level > 3 {
			return out, apiutil.ErrInvalidDLRLevel
		}

		method := strings.ToUpper(req.dlrMethod)
		if method != "GET" && method != "POST" {
			return out, apiutil.ErrInvalidDLRMethod
		}

		out.DLR = &sms.DLRRequest{
			URL:    req.dlrURL,
			Level:  level,
			Method: method,
		}
	}

	return out, nil
}
