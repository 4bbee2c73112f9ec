package ipconfig

import (
	"crypto/sha1"
	"net/netip"

	"github.com/netconfd/netconfd/internal/errors"
	"github.com/netconfd/netconfd/internal/log"
	"github.com/netconfd/netconfd/internal/platform"
	"github.com/netconfd/netconfd/internal/resolvconf"
)

// Capture6 is the IPv6 mirror of Capture4.
func Capture6(p platform.Platform, ifindex int, resolv *resolvconf.Config) *IP6Config {
	if p.LinkGetMaster(ifindex) != 0 {
		return nil
	}

	c := NewIP6Config()
	for _, a := range p.IP6AddressGetAll(ifindex) {
		c.AddAddress(a)
	}

	routes := p.IP6RouteGetAll(ifindex)

	gateway := platform.Unspecified6
	hasDefault := false
	var lowest uint32
	for _, r := range routes {
		if !r.IsDefault() {
			continue
		}
		if !hasDefault || r.Metric < lowest {
			gateway = r.Gateway
			lowest = r.Metric
			hasDefault = true
		}
	}
	c.SetGateway(gateway)

	for _, r := range routes {
		if r.IsDefault() {
			continue
		}
		if hasDefault && r.PrefixLen == 128 && r.Network == gateway && !r.HasGateway() {
			continue
		}
		if err := c.AddRoute(r); err != nil {
			log.Warnf("capture: skipping route %s: %v", r.String(), err)
		}
	}

	if len(c.addresses) > 0 && hasDefault && resolv != nil {
		for _, ns := range resolv.Nameservers6() {
			c.AddNameserver(ns)
		}
	}

	return c
}

// Merge6 is the IPv6 mirror of Merge4.
func Merge6(dst, src *IP6Config) {
	if src == nil {
		return
	}

	for _, a := range src.addresses {
		dst.AddAddress(a)
	}
	for _, r := range src.routes {
		if err := dst.AddRoute(r); err != nil {
			log.Warnf("merge: skipping route %s: %v", r.String(), err)
		}
	}
	for _, ns := range src.nameservers {
		dst.AddNameserver(ns)
	}
	for _, d := range src.domains {
		dst.AddDomain(d)
	}
	for _, s := range src.searches {
		dst.AddSearch(s)
	}

	if !dst.HasGateway() {
		dst.SetGateway(src.gateway)
	}
	if dst.mss == 0 {
		dst.SetMSS(src.mss)
	}
	if dst.mtu == 0 {
		dst.SetMTU(src.mtu, src.mtuSource)
	}
}

// Subtract6 is the IPv6 mirror of Subtract4.
func Subtract6(dst, src *IP6Config) {
	if src == nil {
		return
	}

	for _, a := range src.addresses {
		for i, have := range dst.addresses {
			if have.SameIdentity(a) {
				dst.DelAddress(i)
				break
			}
		}
	}
	for _, r := range src.routes {
		for i, have := range dst.routes {
			if have.SameIdentity(r) {
				dst.DelRoute(i)
				break
			}
		}
	}
	for _, ns := range src.nameservers {
		for i, have := range dst.nameservers {
			if have == ns {
				dst.DelNameserver(i)
				break
			}
		}
	}
	for _, d := range src.domains {
		for i, have := range dst.domains {
			if have == d {
				dst.DelDomain(i)
				break
			}
		}
	}
	for _, s := range src.searches {
		for i, have := range dst.searches {
			if have == s {
				dst.DelSearch(i)
				break
			}
		}
	}

	if src.HasGateway() && dst.gateway == src.gateway {
		dst.SetGateway(platform.Unspecified6)
	}
	if src.mss != 0 && dst.mss == src.mss {
		dst.SetMSS(0)
	}
	if src.mtu != 0 && dst.mtu == src.mtu {
		dst.mtu = 0
		dst.mtuSource = platform.SourceUnknown
		dst.notify(FieldMTU)
	}

	if len(dst.addresses) == 0 {
		dst.SetGateway(platform.Unspecified6)
	}
}

// Replace6 is the IPv6 mirror of Replace4.
func Replace6(dst, src *IP6Config) (changed, relevant bool) {
	minor := false

	if dst.gateway != src.gateway {
		dst.gateway = src.gateway
		relevant = true
	}

	switch compareSeq(dst.addresses, src.addresses,
		platform.IP6Address.SameIdentity,
		func(a, b platform.IP6Address) bool { return a == b }) {
	case seqRelevant:
		dst.addresses = append([]platform.IP6Address(nil), src.addresses...)
		relevant = true
	case seqMinor:
		dst.addresses = append([]platform.IP6Address(nil), src.addresses...)
		minor = true
	}

	// Gateway and metric are consumer-visible on routes, so only a
	// source-field difference counts as minor.
	switch compareSeq(dst.routes, src.routes,
		platform.IP6Route.SameValue,
		func(a, b platform.IP6Route) bool { return a == b }) {
	case seqRelevant:
		dst.routes = append([]platform.IP6Route(nil), src.routes...)
		relevant = true
	case seqMinor:
		dst.routes = append([]platform.IP6Route(nil), src.routes...)
		minor = true
	}

	if !valuesEqual(dst.nameservers, src.nameservers) {
		dst.nameservers = append([]netip.Addr(nil), src.nameservers...)
		relevant = true
	}
	if !valuesEqual(dst.domains, src.domains) {
		dst.domains = append([]string(nil), src.domains...)
		relevant = true
	}
	if !valuesEqual(dst.searches, src.searches) {
		dst.searches = append([]string(nil), src.searches...)
		relevant = true
	}

	if dst.neverDefault != src.neverDefault {
		dst.neverDefault = src.neverDefault
		minor = true
	}
	if dst.mss != src.mss {
		dst.mss = src.mss
		minor = true
	}
	if dst.mtu != src.mtu || dst.mtuSource != src.mtuSource {
		dst.mtu = src.mtu
		dst.mtuSource = src.mtuSource
		minor = true
	}

	return relevant || minor, relevant
}

// Equal6 is the IPv6 mirror of Equal4.
func Equal6(a, b *IP6Config) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.hash() == b.hash()
}

func (c *IP6Config) hash() [sha1.Size]byte {
	h := sha1.New()

	hashAddr(h, c.gateway)
	for _, a := range c.addresses {
		hashAddr(h, a.Address)
		hashUint32(h, uint32(a.PrefixLen))
	}
	for _, r := range c.routes {
		hashAddr(h, r.Network)
		hashUint32(h, uint32(r.PrefixLen))
		hashAddr(h, r.Gateway)
		hashUint32(h, r.Metric)
	}
	for _, ns := range c.nameservers {
		hashAddr(h, ns)
	}
	for _, d := range c.domains {
		hashString(h, d)
	}
	for _, s := range c.searches {
		hashString(h, s)
	}

	var digest [sha1.Size]byte
	h.Sum(digest[:0])
	return digest
}

// Commit6 is the IPv6 mirror of Commit4.
func Commit6(p platform.Platform, c *IP6Config, ifindex int, defaultRouteMetric uint32) error {
	if c == nil {
		return nil
	}

	addrs := make([]platform.IP6Address, len(c.addresses))
	for i, a := range c.addresses {
		a.Ifindex = ifindex
		addrs[i] = a
	}
	if !platform.IP6AddressSync(p, ifindex, addrs) {
		return errors.NewSyncFailureError("failed to synchronize IPv6 addresses", nil)
	}

	var routes []platform.IP6Route
	for _, r := range c.routes {
		if !r.HasGateway() && c.destinationIsDirect(r.Network, r.PrefixLen) {
			continue
		}
		if r.Metric == MetricAuto {
			r.Metric = defaultRouteMetric
		}
		r.Ifindex = ifindex
		routes = append(routes, r)
	}
	if !platform.IP6RouteSync(p, ifindex, routes, c.mss) {
		return errors.NewSyncFailureError("failed to synchronize IPv6 routes", nil)
	}

	if c.mtu > 0 && int(c.mtu) != p.LinkGetMTU(ifindex) {
		if !p.LinkSetMTU(ifindex, int(c.mtu)) {
			return errors.NewSyncFailureError("failed to set link MTU", nil)
		}
	}

	return nil
}

func (c *IP6Config) destinationIsDirect(network netip.Addr, prefixLen int) bool {
	for _, a := range c.addresses {
		if a.PrefixLen <= prefixLen && platform.SamePrefix(network, a.Address, a.PrefixLen) {
			return true
		}
	}
	return false
}
