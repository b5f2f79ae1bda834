// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package routing_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/onlineprabhakar/aiosmpp/routing"
	"github.com/onlineprabhakar/aiosmpp/sms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func allBound(t *routing.Table, names ...string) {
	status := make(map[string]string, len(names))
	for _, n := range names {
		status[n] = "BOUND_TRX"
	}
	t.UpdateConnectorStatus(status)
}

func TestTagRouting(t *testing.T) {
	destUK, err := routing.NewDestAddrFilter("^44")
	require.NoError(t, err)

	table := routing.NewTable([]routing.Route{
		routing.NewStaticRoute(20, "conn3", routing.NewTagFilter(1337)),
		routing.NewStaticRoute(10, "conn2", routing.NewTagFilter(666), destUK),
		routing.NewStaticRoute(0, "conn1"),
	}, []string{"conn1", "conn2", "conn3"})
	allBound(table, "conn1", "conn2", "conn3")

	cases := []struct {
		desc  string
		event sms.Event
		want  string
	}{
		{desc: "tag 1337 hits top route", event: sms.Event{Tags: []int{1337}}, want: "conn3"},
		{desc: "tag 666 with UK source", event: sms.Event{Tags: []int{666}, From: "447400000001"}, want: "conn2"},
		{desc: "tag 666 without UK source falls through", event: sms.Event{Tags: []int{666}, From: "15550000001"}, want: "conn1"},
		{desc: "no tags hits default", event: sms.Event{}, want: "conn1"},
	}
	for _, tc := range cases {
		got, ok := table.Evaluate(&tc.event)
		require.True(t, ok, tc.desc)
		assert.Equal(t, tc.want, got, tc.desc)
	}
}

func TestNoRoute(t *testing.T) {
	table := routing.NewTable([]routing.Route{
		routing.NewStaticRoute(10, "conn1", routing.NewTagFilter(1)),
	}, []string{"conn1"})
	allBound(table, "conn1")

	_, ok := table.Evaluate(&sms.Event{})
	assert.False(t, ok)
}

func TestStaticRouteSkipsUnboundConnector(t *testing.T) {
	table := routing.NewTable([]routing.Route{
		routing.NewStaticRoute(10, "primary"),
		routing.NewStaticRoute(0, "fallback"),
	}, []string{"primary", "fallback"})

	table.UpdateConnectorStatus(map[string]string{
		"primary":  "CLOSED",
		"fallback": "BOUND_TRX",
	})

	got, ok := table.Evaluate(&sms.Event{})
	require.True(t, ok)
	assert.Equal(t, "fallback", got)
}

func TestNoStatusFeedMeansNotRoutable(t *testing.T) {
	table := routing.NewTable([]routing.Route{
		routing.NewStaticRoute(0, "conn1"),
	}, []string{"conn1"})

	_, ok := table.Evaluate(&sms.Event{})
	assert.False(t, ok)

	allBound(table, "conn1")
	_, ok = table.Evaluate(&sms.Event{})
	assert.True(t, ok)

	// A later update that drops the connector takes it out of rotation.
	table.UpdateConnectorStatus(map[string]string{})
	_, ok = table.Evaluate(&sms.Event{})
	assert.False(t, ok)
}

func TestSmartRoundRobinCursor(t *testing.T) {
	table := routing.NewTable([]routing.Route{
		routing.NewSmartRoundRobinRoute(10, []string{"a", "b", "c"}),
	}, []string{"a", "b", "c"})
	allBound(table, "a", "b", "c")

	var got []string
	for i := 0; i < 4; i++ {
		name, ok := table.Evaluate(&sms.Event{})
		require.True(t, ok)
		got = append(got, name)
	}
	assert.Equal(t, []string{"a", "b", "c", "a"}, got)
}

func TestSmartRoundRobinSkipsUnbound(t *testing.T) {
	table := routing.NewTable([]routing.Route{
		routing.NewSmartRoundRobinRoute(10, []string{"a", "b", "unknown"}),
	}, []string{"a", "b"})

	table.UpdateConnectorStatus(map[string]string{
		"a": "CLOSED",
		"b": "BOUND_TRX",
	})

	for i := 0; i < 3; i++ {
		name, ok := table.Evaluate(&sms.Event{})
		require.True(t, ok)
		assert.Equal(t, "b", name)
	}
}

func TestSmartRoundRobinAllDownFallsThrough(t *testing.T) {
	table := routing.NewTable([]routing.Route{
		routing.NewSmartRoundRobinRoute(10, []string{"a", "b"}),
		routing.NewStaticRoute(0, "fallback"),
	}, []string{"a", "b", "fallback"})

	table.UpdateConnectorStatus(map[string]string{"fallback": "BOUND_TRX"})

	got, ok := table.Evaluate(&sms.Event{})
	require.True(t, ok)
	assert.Equal(t, "fallback", got)
}

func TestFilterSemantics(t *testing.T) {
	srcFilter, err := routing.NewSourceAddrFilter("^447")
	require.NoError(t, err)
	msgFilter, err := routing.NewShortMessageFilter("STOP")
	require.NoError(t, err)

	cases := []struct {
		desc   string
		filter routing.Filter
		event  sms.Event
		want   bool
	}{
		{desc: "transparent always matches", filter: routing.NewTransparentFilter(), event: sms.Event{}, want: true},
		{desc: "source_addr matches event destination", filter: srcFilter, event: sms.Event{To: "447400000001"}, want: true},
		{desc: "source_addr anchored at start", filter: srcFilter, event: sms.Event{To: "1447400000001"}, want: false},
		{desc: "short_message filter", filter: msgFilter, event: sms.Event{Msg: "STOP all"}, want: true},
		{desc: "short_message no match", filter: msgFilter, event: sms.Event{Msg: "hello"}, want: false},
		{desc: "connector filter matches origin", filter: routing.NewConnectorFilter("trx1"), event: sms.Event{OriginConnector: "trx1"}, want: true},
		{desc: "connector filter on MT event", filter: routing.NewConnectorFilter("trx1"), event: sms.Event{}, want: false},
		{desc: "tag filter", filter: routing.NewTagFilter(7), event: sms.Event{Tags: []int{1, 7}}, want: true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.filter.Match(&tc.event), tc.desc)
	}
}

func TestBadFilterRegex(t *testing.T) {
	_, err := routing.NewDestAddrFilter("([")
	assert.Error(t, err)
}

func TestInterceptorAddressTONNPI(t *testing.T) {
	fn, err := routing.BuiltinTransform("address_ton_npi")
	require.NoError(t, err)

	table := routing.NewInterceptorTable([]routing.Interceptor{
		routing.NewInterceptor(10, "address_ton_npi", fn),
	}, discard)

	ev := &sms.Event{
		To:   "+447400000001",
		From: "1000",
		PDUs: []sms.PDUTemplate{{DestinationAddr: "+447400000001", DestAddrTON: 2}},
	}

	got := table.Evaluate(ev)
	assert.Equal(t, "447400000001", got.To)
	assert.Equal(t, "447400000001", got.PDUs[0].DestinationAddr)
	assert.Equal(t, uint8(1), got.PDUs[0].DestAddrTON)
	assert.Contains(t, got.Locked, "dest_addr_ton")

	// The input event is untouched.
	assert.Equal(t, "+447400000001", ev.To)
}

func TestInterceptorFilterGate(t *testing.T) {
	fn, err := routing.BuiltinTransform("address_ton_npi")
	require.NoError(t, err)

	table := routing.NewInterceptorTable([]routing.Interceptor{
		routing.NewInterceptor(10, "address_ton_npi", fn, routing.NewTagFilter(99)),
	}, discard)

	ev := &sms.Event{To: "+447400000001", PDUs: []sms.PDUTemplate{{}}}
	got := table.Evaluate(ev)
	assert.Equal(t, "+447400000001", got.To)
}

func TestInterceptorErrorKeepsEvent(t *testing.T) {
	failing := func(ev *sms.Event, _ *slog.Logger) (*sms.Event, error) {
		return nil, routing.ErrUnknownTransform
	}
	upper, err := routing.BuiltinTransform("address_ton_npi")
	require.NoError(t, err)

	table := routing.NewInterceptorTable([]routing.Interceptor{
		routing.NewInterceptor(20, "broken", failing),
		routing.NewInterceptor(10, "address_ton_npi", upper),
	}, discard)

	ev := &sms.Event{To: "+1000", PDUs: []sms.PDUTemplate{{}}}
	got := table.Evaluate(ev)
	// The broken interceptor is skipped, the rest of the chain still runs.
	assert.Equal(t, "1000", got.To)
}

func TestUnknownBuiltin(t *testing.T) {
	_, err := routing.BuiltinTransform("does_not_exist")
	assert.Error(t, err)
}
