package ipconfig

import "net/netip"

// AddressSnapshot is one address in a structured export.
type AddressSnapshot struct {
	Address   string `json:"address"`
	PrefixLen int    `json:"prefix"`
	Label     string `json:"label,omitempty"`
}

// RouteSnapshot is one route in a structured export.
type RouteSnapshot struct {
	Network   string `json:"network"`
	PrefixLen int    `json:"prefix"`
	NextHop   string `json:"next_hop,omitempty"`
	Metric    uint32 `json:"metric"`
}

// Snapshot is the textual export of an aggregate, consumed by the HTTP
// API and the dump command. It intentionally carries only the fields an
// external observer acts on, plus the MTU for diagnostics.
type Snapshot struct {
	Gateway      string            `json:"gateway,omitempty"`
	Addresses    []AddressSnapshot `json:"addresses"`
	Routes       []RouteSnapshot   `json:"routes"`
	Nameservers  []string          `json:"nameservers,omitempty"`
	Domains      []string          `json:"domains,omitempty"`
	Searches     []string          `json:"searches,omitempty"`
	WINSServers  []string          `json:"wins_servers,omitempty"`
	NISServers   []string          `json:"nis_servers,omitempty"`
	NISDomain    string            `json:"nis_domain,omitempty"`
	MTU          uint32            `json:"mtu,omitempty"`
	NeverDefault bool              `json:"never_default,omitempty"`
}

// Snapshot renders the aggregate for export.
func (c *IP4Config) Snapshot() *Snapshot {
	if c == nil {
		return nil
	}

	s := &Snapshot{
		Gateway:      gatewayString(c.gateway),
		Addresses:    make([]AddressSnapshot, 0, len(c.addresses)),
		Routes:       make([]RouteSnapshot, 0, len(c.routes)),
		Nameservers:  addrStrings(c.nameservers),
		Domains:      append([]string(nil), c.domains...),
		Searches:     append([]string(nil), c.searches...),
		WINSServers:  addrStrings(c.winsServers),
		NISServers:   addrStrings(c.nisServers),
		NISDomain:    c.nisDomain,
		MTU:          c.mtu,
		NeverDefault: c.neverDefault,
	}
	for _, a := range c.addresses {
		s.Addresses = append(s.Addresses, AddressSnapshot{
			Address:   a.Address.String(),
			PrefixLen: a.PrefixLen,
			Label:     a.Label,
		})
	}
	for _, r := range c.routes {
		s.Routes = append(s.Routes, RouteSnapshot{
			Network:   r.Network.String(),
			PrefixLen: r.PrefixLen,
			NextHop:   gatewayString(r.Gateway),
			Metric:    r.Metric,
		})
	}
	return s
}

// Snapshot renders the aggregate for export.
func (c *IP6Config) Snapshot() *Snapshot {
	if c == nil {
		return nil
	}

	s := &Snapshot{
		Gateway:      gatewayString(c.gateway),
		Addresses:    make([]AddressSnapshot, 0, len(c.addresses)),
		Routes:       make([]RouteSnapshot, 0, len(c.routes)),
		Nameservers:  addrStrings(c.nameservers),
		Domains:      append([]string(nil), c.domains...),
		Searches:     append([]string(nil), c.searches...),
		MTU:          c.mtu,
		NeverDefault: c.neverDefault,
	}
	for _, a := range c.addresses {
		s.Addresses = append(s.Addresses, AddressSnapshot{
			Address:   a.Address.String(),
			PrefixLen: a.PrefixLen,
		})
	}
	for _, r := range c.routes {
		s.Routes = append(s.Routes, RouteSnapshot{
			Network:   r.Network.String(),
			PrefixLen: r.PrefixLen,
			NextHop:   gatewayString(r.Gateway),
			Metric:    r.Metric,
		})
	}
	return s
}

func gatewayString(gw netip.Addr) string {
	if !gw.IsValid() || gw.IsUnspecified() {
		return ""
	}
	return gw.String()
}

func addrStrings(addrs []netip.Addr) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}
