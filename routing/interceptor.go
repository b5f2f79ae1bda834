// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package routing

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/onlineprabhakar/aiosmpp/sms"
)

// Transform rewrites an MT event before routing. It receives a copy and
// returns the replacement; returning an error keeps the prior event.
type Transform func(ev *sms.Event, logger *slog.Logger) (*sms.Event, error)

// ErrUnknownTransform indicates an interceptor config naming no builtin.
var ErrUnknownTransform = errors.New("unknown interceptor transform")

// Interceptor is one entry of the MT interceptor chain.
type Interceptor struct {
	order   int
	name    string
	filters []Filter
	fn      Transform
}

// NewInterceptor wires a named transform behind its guarding filters.
func NewInterceptor(order int, name string, fn Transform, filters ...Filter) Interceptor {
	return Interceptor{order: order, name: name, filters: filters, fn: fn}
}

// BuiltinTransform resolves a configured transform name.
func BuiltinTransform(name string) (Transform, error) {
	fn, ok := builtinTransforms[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownTransform, errors.New(name))
	}
	return fn, nil
}

var builtinTransforms = map[string]Transform{
	"address_ton_npi": addressTONNPI,
}

// InterceptorTable runs every matching interceptor over an event in
// descending order. Transform failures are isolated: the event from before
// the failing interceptor is kept.
type InterceptorTable struct {
	interceptors []Interceptor
	logger       *slog.Logger
}

// NewInterceptorTable orders the chain by descending priority.
func NewInterceptorTable(interceptors []Interceptor, logger *slog.Logger) *InterceptorTable {
	sorted := make([]Interceptor, len(interceptors))
	copy(sorted, interceptors)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].order > sorted[j].order })

	return &InterceptorTable{interceptors: sorted, logger: logger}
}

// Evaluate applies the chain to an event.
func (t *InterceptorTable) Evaluate(ev *sms.Event) *sms.Event {
	for _, ic := range t.interceptors {
		if !matchAll(ic.filters, ev) {
			continue
		}

		next, err := ic.fn(cloneEvent(ev), t.logger)
		if err != nil || next == nil || next.PDUs == nil {
			t.logger.Warn("interceptor failed, keeping event", slog.String("interceptor", ic.name), slog.Any("error", err))
			continue
		}
		ev = next
	}
	return ev
}

func cloneEvent(ev *sms.Event) *sms.Event {
	c := *ev
	c.PDUs = append([]sms.PDUTemplate(nil), ev.PDUs...)
	c.Tags = append([]int(nil), ev.Tags...)
	c.Locked = append([]string(nil), ev.Locked...)
	return &c
}

// LockParam marks a template parameter as pinned so connector overlays do
// not rewrite it.
func LockParam(ev *sms.Event, name string) {
	for _, l := range ev.Locked {
		if l == name {
			return
		}
	}
	ev.Locked = append(ev.Locked, name)
}

// addressTONNPI normalizes international "+"-prefixed addresses: the prefix
// is stripped, TON forced to international, and the touched parameters
// locked against connector overlays.
func addressTONNPI(ev *sms.Event, _ *slog.Logger) (*sms.Event, error) {
	const tonInternational = 1

	if strings.HasPrefix(ev.To, "+") {
		ev.To = strings.TrimPrefix(ev.To, "+")
		for i := range ev.PDUs {
			ev.PDUs[i].DestinationAddr = strings.TrimPrefix(ev.PDUs[i].DestinationAddr, "+")
			ev.PDUs[i].DestAddrTON = tonInternational
		}
		LockParam(ev, "dest_addr_ton")
	}

	if strings.HasPrefix(ev.From, "+") {
		ev.From = strings.TrimPrefix(ev.From, "+")
		for i := range ev.PDUs {
			ev.PDUs[i].SourceAddr = strings.TrimPrefix(ev.PDUs[i].SourceAddr, "+")
			ev.PDUs[i].SourceAddrTON = tonInternational
		}
		LockParam(ev, "source_addr_ton")
	}

	return ev, nil
}
