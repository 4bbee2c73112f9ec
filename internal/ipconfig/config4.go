// Package ipconfig holds the per-interface configuration aggregate and
// the reconciliation operations (capture, merge, subtract, replace,
// equal, commit) that keep it in sync with the kernel.
package ipconfig

import (
	"net/netip"

	"github.com/netconfd/netconfd/internal/errors"
	"github.com/netconfd/netconfd/internal/platform"
)

// Field identifies which part of an aggregate changed. Listeners get
// the field instead of a snapshot so they can decide what to re-read.
type Field int

const (
	FieldAddresses Field = iota
	FieldRoutes
	FieldGateway
	FieldNameservers
	FieldDomains
	FieldSearches
	FieldWINSServers
	FieldNISServers
	FieldNISDomain
	FieldMSS
	FieldMTU
	FieldNeverDefault
)

func (f Field) String() string {
	switch f {
	case FieldAddresses:
		return "addresses"
	case FieldRoutes:
		return "routes"
	case FieldGateway:
		return "gateway"
	case FieldNameservers:
		return "nameservers"
	case FieldDomains:
		return "domains"
	case FieldSearches:
		return "searches"
	case FieldWINSServers:
		return "wins-servers"
	case FieldNISServers:
		return "nis-servers"
	case FieldNISDomain:
		return "nis-domain"
	case FieldMSS:
		return "mss"
	case FieldMTU:
		return "mtu"
	case FieldNeverDefault:
		return "never-default"
	default:
		return "unknown"
	}
}

// MetricAuto marks a route whose metric should be filled in with the
// interface's default route metric at commit time.
const MetricAuto = ^uint32(0)

// IP4Config is the IPv4 configuration aggregate for one interface.
//
// Invariants: no two addresses share (address, prefix) identity, no two
// routes share (network, prefix) identity, the route set never contains
// a default route (it lives in the gateway scalar), and the nameserver,
// domain, search, WINS and NIS lists are duplicate-free.
type IP4Config struct {
	addresses   []platform.IP4Address
	routes      []platform.IP4Route
	gateway     netip.Addr
	nameservers []netip.Addr
	domains     []string
	searches    []string
	winsServers []netip.Addr
	nisServers  []netip.Addr
	nisDomain   string

	mss          uint32
	mtu          uint32
	mtuSource    platform.Source
	neverDefault bool

	listeners []func(Field)
}

func NewIP4Config() *IP4Config {
	return &IP4Config{gateway: platform.Unspecified4}
}

// OnChange registers a listener invoked synchronously after every
// effective mutation.
func (c *IP4Config) OnChange(fn func(Field)) {
	c.listeners = append(c.listeners, fn)
}

func (c *IP4Config) notify(f Field) {
	for _, fn := range c.listeners {
		fn(f)
	}
}

// AddAddress inserts or updates an address. On identity collision the
// stored metadata is overwritten by the new record, except the old
// lifetime, preferred lifetime and timestamp survive when the new
// record is kernel-observed and the old one is not, or when the old
// record expires strictly later. A kernel snapshot reports the actual
// post-configuration lifetimes and must not clobber a longer lease that
// is still valid. The surviving source is the higher-priority of the
// two.
func (c *IP4Config) AddAddress(a platform.IP4Address) {
	a.Address = a.Address.Unmap()

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

func (c *IP4Config) DelAddress(i int) {
	if i < 0 || i >= len(c.addresses) {
		return
	}
	c.addresses = append(c.addresses[:i:i], c.addresses[i+1:]...)
	c.notify(FieldAddresses)
}

func (c *IP4Config) ResetAddresses() {
	if len(c.addresses) == 0 {
		return
	}
	c.addresses = nil
	c.notify(FieldAddresses)
}

func (c *IP4Config) Addresses() []platform.IP4Address {
	return c.addresses
}

// AddRoute inserts or replaces a route. Default routes never enter the
// route set; callers express them through SetGateway.
func (c *IP4Config) AddRoute(r platform.IP4Route) error {
	if r.PrefixLen == 0 {
		return errors.NewInvalidArgumentError("a default route cannot be added to the route set", nil)
	}
	r.Network = platform.ClearHostBits(r.Network.Unmap(), r.PrefixLen)
	r.Gateway = platform.NormalizeGateway4(r.Gateway)

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

func (c *IP4Config) DelRoute(i int) {
	if i < 0 || i >= len(c.routes) {
		return
	}
	c.routes = append(c.routes[:i:i], c.routes[i+1:]...)
	c.notify(FieldRoutes)
}

func (c *IP4Config) ResetRoutes() {
	if len(c.routes) == 0 {
		return
	}
	c.routes = nil
	c.notify(FieldRoutes)
}

func (c *IP4Config) Routes() []platform.IP4Route {
	return c.routes
}

func (c *IP4Config) SetGateway(gw netip.Addr) {
	gw = platform.NormalizeGateway4(gw)
	if c.gateway == gw {
		return
	}
	c.gateway = gw
	c.notify(FieldGateway)
}

func (c *IP4Config) Gateway() netip.Addr {
	return c.gateway
}

func (c *IP4Config) HasGateway() bool {
	return !c.gateway.IsUnspecified()
}

func (c *IP4Config) AddNameserver(ns netip.Addr) {
	ns = ns.Unmap()
	if containsValue(c.nameservers, ns) {
		return
	}
	c.nameservers = append(c.nameservers, ns)
	c.notify(FieldNameservers)
}

func (c *IP4Config) DelNameserver(i int) {
	if i < 0 || i >= len(c.nameservers) {
		return
	}
	c.nameservers = append(c.nameservers[:i:i], c.nameservers[i+1:]...)
	c.notify(FieldNameservers)
}

func (c *IP4Config) ResetNameservers() {
	if len(c.nameservers) == 0 {
		return
	}
	c.nameservers = nil
	c.notify(FieldNameservers)
}

func (c *IP4Config) Nameservers() []netip.Addr {
	return c.nameservers
}

func (c *IP4Config) AddDomain(domain string) {
	if domain == "" || containsValue(c.domains, domain) {
		return
	}
	c.domains = append(c.domains, domain)
	c.notify(FieldDomains)
}

func (c *IP4Config) DelDomain(i int) {
	if i < 0 || i >= len(c.domains) {
		return
	}
	c.domains = append(c.domains[:i:i], c.domains[i+1:]...)
	c.notify(FieldDomains)
}

func (c *IP4Config) ResetDomains() {
	if len(c.domains) == 0 {
		return
	}
	c.domains = nil
	c.notify(FieldDomains)
}

func (c *IP4Config) Domains() []string {
	return c.domains
}

func (c *IP4Config) AddSearch(search string) {
	if search == "" || containsValue(c.searches, search) {
		return
	}
	c.searches = append(c.searches, search)
	c.notify(FieldSearches)
}

func (c *IP4Config) DelSearch(i int) {
	if i < 0 || i >= len(c.searches) {
		return
	}
	c.searches = append(c.searches[:i:i], c.searches[i+1:]...)
	c.notify(FieldSearches)
}

func (c *IP4Config) ResetSearches() {
	if len(c.searches) == 0 {
		return
	}
	c.searches = nil
	c.notify(FieldSearches)
}

func (c *IP4Config) Searches() []string {
	return c.searches
}

func (c *IP4Config) AddWINSServer(ws netip.Addr) {
	ws = ws.Unmap()
	if containsValue(c.winsServers, ws) {
		return
	}
	c.winsServers = append(c.winsServers, ws)
	c.notify(FieldWINSServers)
}

func (c *IP4Config) ResetWINSServers() {
	if len(c.winsServers) == 0 {
		return
	}
	c.winsServers = nil
	c.notify(FieldWINSServers)
}

func (c *IP4Config) WINSServers() []netip.Addr {
	return c.winsServers
}

func (c *IP4Config) AddNISServer(ns netip.Addr) {
	ns = ns.Unmap()
	if containsValue(c.nisServers, ns) {
		return
	}
	c.nisServers = append(c.nisServers, ns)
	c.notify(FieldNISServers)
}

func (c *IP4Config) ResetNISServers() {
	if len(c.nisServers) == 0 {
		return
	}
	c.nisServers = nil
	c.notify(FieldNISServers)
}

func (c *IP4Config) NISServers() []netip.Addr {
	return c.nisServers
}

func (c *IP4Config) SetNISDomain(domain string) {
	if c.nisDomain == domain {
		return
	}
	c.nisDomain = domain
	c.notify(FieldNISDomain)
}

func (c *IP4Config) NISDomain() string {
	return c.nisDomain
}

func (c *IP4Config) SetMSS(mss uint32) {
	if c.mss == mss {
		return
	}
	c.mss = mss
	c.notify(FieldMSS)
}

func (c *IP4Config) MSS() uint32 {
	return c.mss
}

// SetMTU records an MTU request. A higher-priority source wins; at
// equal priority the smaller non-zero value survives, so the most
// restrictive requirement is honored.
func (c *IP4Config) SetMTU(mtu uint32, source platform.Source) {
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

func (c *IP4Config) MTU() uint32 {
	return c.mtu
}

func (c *IP4Config) MTUSource() platform.Source {
	return c.mtuSource
}

func (c *IP4Config) SetNeverDefault(nd bool) {
	if c.neverDefault == nd {
		return
	}
	c.neverDefault = nd
	c.notify(FieldNeverDefault)
}

func (c *IP4Config) NeverDefault() bool {
	return c.neverDefault
}

func containsValue[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
