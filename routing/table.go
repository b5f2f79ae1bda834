// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package routing

import (
	"sort"
	"strings"
	"sync"

	"github.com/onlineprabhakar/aiosmpp/sms"
)

// Route is one entry of the MT route table.
type Route interface {
	Order() int

	// Match reports whether the route's filters accept the event.
	Match(ev *sms.Event) bool

	// Connector resolves the route to a live connector name, or reports
	// that none of its targets is currently routable.
	Connector(status StatusView) (string, bool)
}

// StatusView exposes connector liveness to routes.
type StatusView interface {
	Routable(connector string) bool
}

type staticRoute struct {
	order     int
	connector string
	filters   []Filter
}

// NewStaticRoute routes matching events to a single connector. A default
// route is a static route with order 0 and no filters.
func NewStaticRoute(order int, connector string, filters ...Filter) Route {
	return &staticRoute{order: order, connector: connector, filters: filters}
}

func (r *staticRoute) Order() int               { return r.order }
func (r *staticRoute) Match(ev *sms.Event) bool { return matchAll(r.filters, ev) }

func (r *staticRoute) Connector(status StatusView) (string, bool) {
	if !status.Routable(r.connector) {
		return "", false
	}
	return r.connector, true
}

type smartRoundRobinRoute struct {
	order   int
	filters []Filter

	mu         sync.Mutex
	connectors []string
	cursor     int
}

// NewSmartRoundRobinRoute spreads matching events over a connector list,
// skipping connectors that are unknown or not bound.
func NewSmartRoundRobinRoute(order int, connectors []string, filters ...Filter) Route {
	return &smartRoundRobinRoute{order: order, connectors: connectors, filters: filters}
}

func (r *smartRoundRobinRoute) Order() int               { return r.order }
func (r *smartRoundRobinRoute) Match(ev *sms.Event) bool { return matchAll(r.filters, ev) }

func (r *smartRoundRobinRoute) Connector(status StatusView) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < len(r.connectors); i++ {
		name := r.connectors[r.cursor%len(r.connectors)]
		r.cursor++

		if status.Routable(name) {
			return name, true
		}
	}
	return "", false
}

// Table is the MT route table. Routes are evaluated in descending order;
// the first route that both matches and resolves to a live connector wins.
type Table struct {
	routes []Route

	mu     sync.Mutex
	known  map[string]bool
	status map[string]string
}

// NewTable builds a table over the given routes and the set of connector
// names defined in configuration. Connectors start with no reported status
// and are not routable until the status feed names them.
func NewTable(routes []Route, connectors []string) *Table {
	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order() > sorted[j].Order() })

	known := make(map[string]bool, len(connectors))
	for _, c := range connectors {
		known[c] = true
	}

	return &Table{
		routes: sorted,
		known:  known,
		status: make(map[string]string),
	}
}

// UpdateConnectorStatus replaces the live status map. Absent connectors are
// treated as down.
func (t *Table) UpdateConnectorStatus(status map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = make(map[string]string, len(status))
	for name, s := range status {
		t.status[name] = s
	}
}

// Routable reports whether a connector is defined and bound.
func (t *Table) Routable(connector string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.known[connector] {
		return false
	}
	return strings.HasPrefix(t.status[connector], "BOUND")
}

// Evaluate selects a connector for an MT event. The second return is false
// when no route matches or every matching route's connectors are down.
func (t *Table) Evaluate(ev *sms.Event) (string, bool) {
	for _, r := range t.routes {
		if !r.Match(ev) {
			continue
		}
		if name, ok := r.Connector(t); ok {
			return name, true
		}
	}
	return "", false
}
