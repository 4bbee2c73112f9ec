package ipconfig

import (
	"net/netip"

	"github.com/netconfd/netconfd/internal/errors"
	"github.com/netconfd/netconfd/internal/platform"
)

// IP6Config is the IPv6 counterpart of IP4Config. It carries the same
// invariants; IPv6 has no address labels and no NIS or WINS notion.
type IP6Config struct {
	addresses   []platform.IP6Address
	routes      []platform.IP6Route
	gateway     netip.Addr
	nameservers []netip.Addr
	domains     []string
	searches    []string

	mss          uint32
	mtu          uint32
	mtuSource    platform.Source
	neverDefault bool

	listeners []func(Field)
}

func NewIP6Config() *IP6Config {
	return &IP6Config{gateway: platform.Unspecified6}
}

func (c *IP6Config) OnChange(fn func(Field)) {
	c.listeners = append(c.listeners, fn)
}

func (c *IP6Config) notify(f Field) {
	for _, fn := range c.listeners {
		fn(f)
	}
}

// AddAddress follows the same collision rules as IP4Config.AddAddress.
func (c *IP6Config) AddAddress(a platform.IP6Address) {
	for i, old := range c.addresses {
		if !old.SameIdentity(a) {
			continue
		}
		if old == a {
			return
		}

		merged := a
		if (a.Source == platform.SourceKernel && old.Source != platform.SourceKernel) ||
			platform.CompareExpiry(old.Timestamp, old.Lifetime, a.Timestamp, a.Lifetime) > 0 {
			merged.Lifetime = old.Lifetime
			merged.Preferred = old.Preferred
			merged.Timestamp = old.Timestamp
		}
		merged.Source = platform.MaxSource(old.Source, a.Source)

		if old == merged {
			return
		}
		c.addresses[i] = merged
		c.notify(FieldAddresses)
		return
	}

	c.addresses = append(c.addresses, a)
	c.notify(FieldAddresses)
}

func (c *IP6Config) DelAddress(i int) {
	if i < 0 || i >= len(c.addresses) {
		return
	}
	c.addresses = append(c.addresses[:i:i], c.addresses[i+1:]...)
	c.notify(FieldAddresses)
}

func (c *IP6Config) ResetAddresses() {
	if len(c.addresses) == 0 {
		return
	}
	c.addresses = nil
	c.notify(FieldAddresses)
}

func (c *IP6Config) Addresses() []platform.IP6Address {
	return c.addresses
}

func (c *IP6Config) AddRoute(r platform.IP6Route) error {
	if r.PrefixLen == 0 {
		return errors.NewInvalidArgumentError("a default route cannot be added to the route set", nil)
	}
	r.Network = platform.ClearHostBits(r.Network, r.PrefixLen)
	r.Gateway = platform.NormalizeGateway6(r.Gateway)

	for i, old := range c.routes {
		if !old.SameIdentity(r) {
			continue
		}
		replaced := r
		replaced.Source = platform.MaxSource(old.Source, r.Source)
		if old == replaced {
			return nil
		}
		c.routes[i] = replaced
		c.notify(FieldRoutes)
		return nil
	}

	c.routes = append(c.routes, r)
	c.notify(FieldRoutes)
	return nil
}

func (c *IP6Config) DelRoute(i int) {
	if i < 0 || i >= len(c.routes) {
		return
	}
	c.routes = append(c.routes[:i:i], c.routes[i+1:]...)
	c.notify(FieldRoutes)
}

func (c *IP6Config) ResetRoutes() {
	if len(c.routes) == 0 {
		return
	}
	c.routes = nil
	c.notify(FieldRoutes)
}

func (c *IP6Config) Routes() []platform.IP6Route {
	return c.routes
}

func (c *IP6Config) SetGateway(gw netip.Addr) {
	gw = platform.NormalizeGateway6(gw)
	if c.gateway == gw {
		return
	}
	c.gateway = gw
	c.notify(FieldGateway)
}

func (c *IP6Config) Gateway() netip.Addr {
	return c.gateway
}

func (c *IP6Config) HasGateway() bool {
	return !c.gateway.IsUnspecified()
}

func (c *IP6Config) AddNameserver(ns netip.Addr) {
	if containsValue(c.nameservers, ns) {
		return
	}
	c.nameservers = append(c.nameservers, ns)
	c.notify(FieldNameservers)
}

func (c *IP6Config) DelNameserver(i int) {
	if i < 0 || i >= len(c.nameservers) {
		return
	}
	c.nameservers = append(c.nameservers[:i:i], c.nameservers[i+1:]...)
	c.notify(FieldNameservers)
}

func (c *IP6Config) ResetNameservers() {
	if len(c.nameservers) == 0 {
		return
	}
	c.nameservers = nil
	c.notify(FieldNameservers)
}

func (c *IP6Config) Nameservers() []netip.Addr {
	return c.nameservers
}

func (c *IP6Config) AddDomain(domain string) {
	if domain == "" || containsValue(c.domains, domain) {
		return
	}
	c.domains = append(c.domains, domain)
	c.notify(FieldDomains)
}

func (c *IP6Config) DelDomain(i int) {
	if i < 0 || i >= len(c.domains) {
		return
	}
	c.domains = append(c.domains[:i:i], c.domains[i+1:]...)
	c.notify(FieldDomains)
}

func (c *IP6Config) ResetDomains() {
	if len(c.domains) == 0 {
		return
	}
	c.domains = nil
	c.notify(FieldDomains)
}

func (c *IP6Config) Domains() []string {
	return c.domains
}

func (c *IP6Config) AddSearch(search string) {
	if search == "" || containsValue(c.searches, search) {
		return
	}
	c.searches = append(c.searches, search)
	c.notify(FieldSearches)
}

func (c *IP6Config) DelSearch(i int) {
	if i < 0 || i >= len(c.searches) {
		return
	}
	c.searches = append(c.searches[:i:i], c.searches[i+1:]...)
	c.notify(FieldSearches)
}

func (c *IP6Config) ResetSearches() {
	if len(c.searches) == 0 {
		return
	}
	c.searches = nil
	c.notify(FieldSearches)
}

func (c *IP6Config) Searches() []string {
	return c.searches
}

func (c *IP6Config) SetMSS(mss uint32) {
	if c.mss == mss {
		return
	}
	c.mss = mss
	c.notify(FieldMSS)
}

func (c *IP6Config) MSS() uint32 {
	return c.mss
}

func (c *IP6Config) SetMTU(mtu uint32, source platform.Source) {
	if source < c.mtuSource {
		return
	}
	if source == c.mtuSource && c.mtu != 0 && (mtu == 0 || mtu > c.mtu) {
		return
	}
	if c.mtu == mtu && c.mtuSource == source {
		return
	}
	c.mtu = mtu
	c.mtuSource = source
	c.notify(FieldMTU)
}

func (c *IP6Config) MTU() uint32 {
	return c.mtu
}

func (c *IP6Config) MTUSource() platform.Source {
	return c.mtuSource
}

func (c *IP6Config) SetNeverDefault(nd bool) {
	if c.neverDefault == nd {
		return
	}
	c.neverDefault = nd
	c.notify(FieldNeverDefault)
}

func (c *IP6Config) NeverDefault() bool {
	return c.neverDefault
}
