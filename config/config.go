// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the gateway TOML file: SMPP connectors, MT routes,
// filters and interceptors. Environment driven service settings live with
// each cmd, this file describes the telephony estate.
package config

import (
	"os"
	"time"

	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/onlineprabhakar/aiosmpp/smpp"
	"github.com/onlineprabhakar/aiosmpp/sms"
	"github.com/pelletier/go-toml"
)

var (
	errReadConfig = errors.New("failed to read config file")

	// ErrInvalidConfig indicates a gateway file that parsed but does not
	// describe a runnable gateway.
	ErrInvalidConfig = errors.New("invalid gateway config")
)

// Connector is one [[smpp_bind]] block.
type Connector struct {
	Name         string `toml:"name"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	SystemID     string `toml:"systemid"`
	Password     string `toml:"password"`
	SystemType   string `toml:"system_type"`
	AddressRange string `toml:"address_range"`
	BindTON      uint8  `toml:"bind_ton"`
	BindNPI      uint8  `toml:"bind_npi"`
	Disabled     bool   `toml:"disabled"`

	ConnLossRetry       *bool `toml:"conn_loss_retry"`
	ConnLossDelay       int   `toml:"conn_loss_delay"`
	EnquireLinkInterval int   `toml:"enquire_link_interval"`

	BindTimeoutMS    int `toml:"bind_timeout_ms"`
	SubmitTimeoutMS  int `toml:"submit_timeout_ms"`
	EnquireTimeoutMS int `toml:"enquire_timeout_ms"`

	SourceAddrTON        uint8  `toml:"source_addr_ton"`
	SourceAddrNPI        uint8  `toml:"source_addr_npi"`
	DestAddrTON          uint8  `toml:"dest_addr_ton"`
	DestAddrNPI          uint8  `toml:"dest_addr_npi"`
	ProtocolID           uint8  `toml:"protocol_id"`
	ReplaceIfPresentFlag uint8  `toml:"replace_if_present_flag"`
	ServiceType          string `toml:"service_type"`
	SMDefaultMsgID       uint8  `toml:"sm_default_msg_id"`
	PriorityFlag         uint8  `toml:"priority_flag"`
	Coding               int    `toml:"coding"`

	SubmitThroughput int `toml:"submit_throughput"`
	DLRExpiry        int `toml:"dlr_expiry"`
	RequeueDelay     int `toml:"requeue_delay"`

	// StrictReassembly makes multipart MO delivery wait for every segment
	// instead of flushing whatever arrived when the last segment lands.
	StrictReassembly bool `toml:"strict_reassembly"`
}

// Route is one [[mt_route]] block.
type Route struct {
	Order      int      `toml:"order"`
	Type       string   `toml:"type"`
	Connector  string   `toml:"connector"`
	Connectors []string `toml:"connectors"`
	Filters    []string `toml:"filters"`
}

// Filter is one [[filter]] block.
type Filter struct {
	Name      string `toml:"name"`
	Type      string `toml:"type"`
	Regex     string `toml:"regex"`
	Connector string `toml:"connector"`
	Tag       int    `toml:"tag"`
}

// Interceptor is one [[mt_interceptor]] block naming a builtin transform.
type Interceptor struct {
	Order   int      `toml:"order"`
	Type    string   `toml:"type"`
	Filters []string `toml:"filters"`
}

// Gateway is the whole gateway file.
type Gateway struct {
	Connectors   []Connector   `toml:"smpp_bind"`
	Routes       []Route       `toml:"mt_route"`
	Filters      []Filter      `toml:"filter"`
	Interceptors []Interceptor `toml:"mt_interceptor"`
}

// Load reads and validates a gateway file. An empty path yields an empty
// gateway, which is legal for components that only consume queues.
func Load(file string) (Gateway, error) {
	if file == "" {
		return Gateway{}, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return Gateway{}, errors.Wrap(errReadConfig, err)
	}

	return Parse(data)
}

// Parse decodes gateway TOML, applies defaults and validates.
func Parse(data []byte) (Gateway, error) {
	var g Gateway
	if err := toml.Unmarshal(data, &g); err != nil {
		return Gateway{}, errors.Wrap(errReadConfig, err)
	}

	g.applyDefaults()

	if err := g.Validate(); err != nil {
		return Gateway{}, err
	}

	return g, nil
}

func (g *Gateway) applyDefaults() {
	for i := range g.Connectors {
		c := &g.Connectors[i]

		if c.ConnLossRetry == nil {
			yes := true
			c.ConnLossRetry = &yes
		}
		if c.ConnLossDelay == 0 {
			c.ConnLossDelay = 30
		}
		if c.EnquireLinkInterval == 0 {
			c.EnquireLinkInterval = 30
		}
		if c.BindTimeoutMS == 0 {
			c.BindTimeoutMS = 150
		}
		if c.SubmitTimeoutMS == 0 {
			c.SubmitTimeoutMS = 500
		}
		if c.EnquireTimeoutMS == 0 {
			c.EnquireTimeoutMS = 150
		}
		if c.BindNPI == 0 {
			c.BindNPI = 1
		}
		if c.SourceAddrTON == 0 {
			c.SourceAddrTON = 2
		}
		if c.SourceAddrNPI == 0 {
			c.SourceAddrNPI = 1
		}
		if c.DestAddrTON == 0 {
			c.DestAddrTON = 1
		}
		if c.DestAddrNPI == 0 {
			c.DestAddrNPI = 1
		}
		if c.SubmitThroughput == 0 {
			c.SubmitThroughput = 50
		}
		if c.DLRExpiry == 0 {
			c.DLRExpiry = 86400
		}
		if c.RequeueDelay == 0 {
			c.RequeueDelay = 120
		}
	}
}

// Validate checks cross references and required fields.
func (g *Gateway) Validate() error {
	connectors := make(map[string]bool, len(g.Connectors))
	for _, c := range g.Connectors {
		switch {
		case c.Name == "":
			return errors.Wrap(ErrInvalidConfig, errors.New("smpp_bind with no name"))
		case connectors[c.Name]:
			return errors.Wrap(ErrInvalidConfig, errors.New("duplicate connector "+c.Name))
		case c.Host == "" || c.Port == 0:
			return errors.Wrap(ErrInvalidConfig, errors.New("connector "+c.Name+" has no host/port"))
		case c.SystemID == "":
			return errors.Wrap(ErrInvalidConfig, errors.New("connector "+c.Name+" has no systemid"))
		case c.Coding < 0 || c.Coding > 14:
			return errors.Wrap(ErrInvalidConfig, errors.New("connector "+c.Name+" coding out of range"))
		}
		connectors[c.Name] = true
	}

	filters := make(map[string]bool, len(g.Filters))
	for _, f := range g.Filters {
		if f.Name == "" {
			return errors.Wrap(ErrInvalidConfig, errors.New("filter with no name"))
		}
		if filters[f.Name] {
			return errors.Wrap(ErrInvalidConfig, errors.New("duplicate filter "+f.Name))
		}
		switch f.Type {
		case "", "transparent", "connector", "tag":
		case "source_addr", "dest_addr", "short_message":
			if f.Regex == "" {
				return errors.Wrap(ErrInvalidConfig, errors.New("filter "+f.Name+" needs a regex"))
			}
		default:
			return errors.Wrap(ErrInvalidConfig, errors.New("filter "+f.Name+" has unknown type "+f.Type))
		}
		filters[f.Name] = true
	}

	for _, r := range g.Routes {
		switch r.Type {
		case "", "static", "default":
			if r.Connector == "" {
				return errors.Wrap(ErrInvalidConfig, errors.New("static route needs a connector"))
			}
		case "smartrr":
			if len(r.Connectors) == 0 {
				return errors.Wrap(ErrInvalidConfig, errors.New("smartrr route needs connectors"))
			}
		default:
			return errors.Wrap(ErrInvalidConfig, errors.New("unknown route type "+r.Type))
		}
		for _, name := range r.Filters {
			if !filters[name] {
				return errors.Wrap(ErrInvalidConfig, errors.New("route references unknown filter "+name))
			}
		}
	}

	for _, ic := range g.Interceptors {
		if ic.Type == "" {
			return errors.Wrap(ErrInvalidConfig, errors.New("mt_interceptor with no type"))
		}
		for _, name := range ic.Filters {
			if !filters[name] {
				return errors.Wrap(ErrInvalidConfig, errors.New("interceptor references unknown filter "+name))
			}
		}
	}

	return nil
}

// ConnectorNames lists enabled connectors.
func (g *Gateway) ConnectorNames() []string {
	names := make([]string, 0, len(g.Connectors))
	for _, c := range g.Connectors {
		if !c.Disabled {
			names = append(names, c.Name)
		}
	}
	return names
}

// FindConnector returns a connector block by name.
func (g *Gateway) FindConnector(name string) (Connector, bool) {
	for _, c := range g.Connectors {
		if c.Name == name {
			return c, true
		}
	}
	return Connector{}, false
}

// SessionConfig maps a connector block onto SMPP session parameters.
func (c Connector) SessionConfig() smpp.Config {
	return smpp.Config{
		Host:            c.Host,
		Port:            c.Port,
		SystemID:        c.SystemID,
		Password:        c.Password,
		SystemType:      c.SystemType,
		AddressRange:    c.AddressRange,
		BindTON:         c.BindTON,
		BindNPI:         c.BindNPI,
		BindTimeout:     time.Duration(c.BindTimeoutMS) * time.Millisecond,
		SubmitTimeout:   time.Duration(c.SubmitTimeoutMS) * time.Millisecond,
		EnquireTimeout:  time.Duration(c.EnquireTimeoutMS) * time.Millisecond,
		EnquireInterval: time.Duration(c.EnquireLinkInterval) * time.Second,
	}
}

// SubmitDefaults maps a connector block onto submit_sm template defaults.
func (c Connector) SubmitDefaults() sms.SubmitDefaults {
	d := sms.DefaultSubmit()
	d.ServiceType = c.ServiceType
	d.SourceAddrTON = c.SourceAddrTON
	d.SourceAddrNPI = c.SourceAddrNPI
	d.DestAddrTON = c.DestAddrTON
	d.DestAddrNPI = c.DestAddrNPI
	d.ProtocolID = c.ProtocolID
	d.PriorityFlag = c.PriorityFlag
	d.ReplaceIfPresentFlag = c.ReplaceIfPresentFlag
	d.SMDefaultMsgID = c.SMDefaultMsgID
	return d
}
