// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"

	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/onlineprabhakar/aiosmpp/routing"
)

// BuildFilter turns a [[filter]] block into a routing filter.
func BuildFilter(f Filter) (routing.Filter, error) {
	switch f.Type {
	case "", "transparent":
		return routing.NewTransparentFilter(), nil
	case "connector":
		return routing.NewConnectorFilter(f.Connector), nil
	case "source_addr":
		return routing.NewSourceAddrFilter(f.Regex)
	case "dest_addr":
		return routing.NewDestAddrFilter(f.Regex)
	case "short_message":
		return routing.NewShortMessageFilter(f.Regex)
	case "tag":
		return routing.NewTagFilter(f.Tag), nil
	default:
		return nil, errors.Wrap(ErrInvalidConfig, errors.New("unknown filter type "+f.Type))
	}
}

func (g *Gateway) buildFilters() (map[string]routing.Filter, error) {
	filters := make(map[string]routing.Filter, len(g.Filters))
	for _, f := range g.Filters {
		built, err := BuildFilter(f)
		if err != nil {
			return nil, err
		}
		filters[f.Name] = built
	}
	return filters, nil
}

func resolveFilters(names []string, filters map[string]routing.Filter) ([]routing.Filter, error) {
	out := make([]routing.Filter, 0, len(names))
	for _, name := range names {
		f, ok := filters[name]
		if !ok {
			return nil, errors.Wrap(ErrInvalidConfig, errors.New("unknown filter "+name))
		}
		out = append(out, f)
	}
	return out, nil
}

// RouteTable assembles the MT route table from the gateway file.
func (g *Gateway) RouteTable() (*routing.Table, error) {
	filters, err := g.buildFilters()
	if err != nil {
		return nil, err
	}

	routes := make([]routing.Route, 0, len(g.Routes))
	for _, r := range g.Routes {
		needed, err := resolveFilters(r.Filters, filters)
		if err != nil {
			return nil, err
		}

		switch r.Type {
		case "", "static", "default":
			routes = append(routes, routing.NewStaticRoute(r.Order, r.Connector, needed...))
		case "smartrr":
			routes = append(routes, routing.NewSmartRoundRobinRoute(r.Order, r.Connectors, needed...))
		default:
			return nil, errors.Wrap(ErrInvalidConfig, errors.New("unknown route type "+r.Type))
		}
	}

	return routing.NewTable(routes, g.ConnectorNames()), nil
}

// InterceptorTable assembles the MT interceptor chain from the gateway file.
func (g *Gateway) InterceptorTable(logger *slog.Logger) (*routing.InterceptorTable, error) {
	filters, err := g.buildFilters()
	if err != nil {
		return nil, err
	}

	interceptors := make([]routing.Interceptor, 0, len(g.Interceptors))
	for _, ic := range g.Interceptors {
		fn, err := routing.BuiltinTransform(ic.Type)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidConfig, err)
		}

		needed, err := resolveFilters(ic.Filters, filters)
		if err != nil {
			return nil, err
		}

		interceptors = append(interceptors, routing.NewInterceptor(ic.Order, ic.Type, fn, needed...))
	}

	return routing.NewInterceptorTable(interceptors, logger), nil
}
