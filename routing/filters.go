// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package routing implements the MT route table: ordered routes guarded by
// filters, connector selection aware of live bind status, and the MT
// interceptor chain that rewrites events before routing.
package routing

import (
	"regexp"

	"github.com/onlineprabhakar/aiosmpp/sms"
)

// Filter guards a route or interceptor. Implementations must treat missing
// event data as a non-match, never as an error.
type Filter interface {
	Match(ev *sms.Event) bool
}

type transparentFilter struct{}

// NewTransparentFilter returns a filter that matches everything.
func NewTransparentFilter() Filter {
	return transparentFilter{}
}

func (transparentFilter) Match(*sms.Event) bool { return true }

type connectorFilter struct {
	connector string
}

// NewConnectorFilter matches MO events that originated on the named
// connector.
func NewConnectorFilter(connector string) Filter {
	return connectorFilter{connector: connector}
}

func (f connectorFilter) Match(ev *sms.Event) bool {
	return ev.OriginConnector != "" && ev.OriginConnector == f.connector
}

// regexFilter anchors the pattern at the start of the field, matching the
// historic route table behavior.
type regexFilter struct {
	field func(*sms.Event) string
	re    *regexp.Regexp
}

func newRegexFilter(pattern string, field func(*sms.Event) string) (Filter, error) {
	re, err := regexp.Compile(`\A(?:` + pattern + `)`)
	if err != nil {
		return nil, err
	}
	return regexFilter{field: field, re: re}, nil
}

func (f regexFilter) Match(ev *sms.Event) bool {
	return f.re.MatchString(f.field(ev))
}

// NewSourceAddrFilter matches the event destination address. The naming is
// inherited from Jasmin route tables, where source_addr filters apply to
// the number the message is sent to.
func NewSourceAddrFilter(pattern string) (Filter, error) {
	return newRegexFilter(pattern, func(ev *sms.Event) string { return ev.To })
}

// NewDestAddrFilter matches the event originator address.
func NewDestAddrFilter(pattern string) (Filter, error) {
	return newRegexFilter(pattern, func(ev *sms.Event) string { return ev.From })
}

// NewShortMessageFilter matches the plaintext message content.
func NewShortMessageFilter(pattern string) (Filter, error) {
	return newRegexFilter(pattern, func(ev *sms.Event) string { return ev.Msg })
}

type tagFilter struct {
	tag int
}

// NewTagFilter matches events carrying the given tag.
func NewTagFilter(tag int) Filter {
	return tagFilter{tag: tag}
}

func (f tagFilter) Match(ev *sms.Event) bool {
	for _, t := range ev.Tags {
		if t == f.tag {
			return true
		}
	}
	return false
}

// matchAll evaluates filters in order, short circuiting on the first miss.
// A panicking filter counts as a miss.
func matchAll(filters []Filter, ev *sms.Event) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()

	for _, f := range filters {
		if !f.Match(ev) {
			return false
		}
	}
	return true
}
