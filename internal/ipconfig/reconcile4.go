package ipconfig

import (
	"crypto/sha1"
	"encoding/binary"
	"hash"
	"net/netip"

	"github.com/netconfd/netconfd/internal/errors"
	"github.com/netconfd/netconfd/internal/log"
	"github.com/netconfd/netconfd/internal/platform"
	"github.com/netconfd/netconfd/internal/resolvconf"
)

// Capture4 reads the interface's current IPv4 state into a fresh
// aggregate. Enslaved links carry no configuration of their own, so
// capture returns nil for them.
//
// Default routes never enter the route set: the one with the lowest
// metric becomes the gateway scalar, the rest are dropped. The kernel's
// implicit host route to the gateway is stripped too. When the link has
// at least one address and a default route, the resolver configuration
// (if given) contributes any nameservers not already present.
func Capture4(p platform.Platform, ifindex int, resolv *resolvconf.Config) *IP4Config {
	if p.LinkGetMaster(ifindex) != 0 {
		return nil
	}

	c := NewIP4Config()
	for _, a := range p.IP4AddressGetAll(ifindex) {
		c.AddAddress(a)
	}

	routes := p.IP4RouteGetAll(ifindex)

	// The winner is chosen strictly by metric. An on-link default route
	// carries an unspecified gateway, and it still wins over a gatewayed
	// one with a worse metric.
	gateway := platform.Unspecified4
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
		// The kernel manages the host route to the gateway itself.
		if hasDefault && r.PrefixLen == 32 && r.Network == gateway && !r.HasGateway() {
			continue
		}
		if err := c.AddRoute(r); err != nil {
			log.Warnf("capture: skipping route %s: %v", r.String(), err)
		}
	}

	if len(c.addresses) > 0 && hasDefault && resolv != nil {
		for _, ns := range resolv.Nameservers4() {
			c.AddNameserver(ns)
		}
	}

	return c
}

// Merge4 copies everything in src that dst is missing: set entries
// absent by identity or value are added, scalars are taken from src
// only where dst still holds the zero value.
func Merge4(dst, src *IP4Config) {
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
	for _, w := range src.winsServers {
		dst.AddWINSServer(w)
	}
	for _, n := range src.nisServers {
		dst.AddNISServer(n)
	}

	if !dst.HasGateway() {
		dst.SetGateway(src.gateway)
	}
	if dst.nisDomain == "" {
		dst.SetNISDomain(src.nisDomain)
	}
	if dst.mss == 0 {
		dst.SetMSS(src.mss)
	}
	if dst.mtu == 0 {
		dst.SetMTU(src.mtu, src.mtuSource)
	}
}

// Subtract4 removes from dst everything src contains: set entries are
// removed by identity or value, scalars equal to src's value are reset.
// An aggregate without addresses cannot meaningfully route anywhere, so
// the gateway is cleared whenever the address set ends up empty.
func Subtract4(dst, src *IP4Config) {
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
	if out := subtractValues(dst.winsServers, src.winsServers); len(out) != len(dst.winsServers) {
		dst.winsServers = out
		dst.notify(FieldWINSServers)
	}
	if out := subtractValues(dst.nisServers, src.nisServers); len(out) != len(dst.nisServers) {
		dst.nisServers = out
		dst.notify(FieldNISServers)
	}

	if src.HasGateway() && dst.gateway == src.gateway {
		dst.SetGateway(platform.Unspecified4)
	}
	if src.nisDomain != "" && dst.nisDomain == src.nisDomain {
		dst.SetNISDomain("")
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
		dst.SetGateway(platform.Unspecified4)
	}
}

func subtractValues[T comparable](have, remove []T) []T {
	if len(have) == 0 || len(remove) == 0 {
		return have
	}
	out := have[:0:0]
	for _, x := range have {
		if !containsValue(remove, x) {
			out = append(out, x)
		}
	}
	return out
}

// Replace4 overwrites dst with src field by field. It reports whether
// anything changed at all, and separately whether any of the changes
// was relevant: a difference an external consumer of the configuration
// would observe. Lifetime-only differences on an otherwise identical
// address, the never-default flag, MSS and MTU are minor; everything
// else is relevant.
func Replace4(dst, src *IP4Config) (changed, relevant bool) {
	minor := false

	if dst.gateway != src.gateway {
		dst.gateway = src.gateway
		relevant = true
	}

	switch compareSeq(dst.addresses, src.addresses,
		platform.IP4Address.SameIdentity,
		func(a, b platform.IP4Address) bool { return a == b }) {
	case seqRelevant:
		dst.addresses = append([]platform.IP4Address(nil), src.addresses...)
		relevant = true
	case seqMinor:
		dst.addresses = append([]platform.IP4Address(nil), src.addresses...)
		minor = true
	}

	// For routes the consumer-visible part includes the gateway and
	// metric, so only a source-field difference counts as minor.
	switch compareSeq(dst.routes, src.routes,
		platform.IP4Route.SameValue,
		func(a, b platform.IP4Route) bool { return a == b }) {
	case seqRelevant:
		dst.routes = append([]platform.IP4Route(nil), src.routes...)
		relevant = true
	case seqMinor:
		dst.routes = append([]platform.IP4Route(nil), src.routes...)
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
	if !valuesEqual(dst.winsServers, src.winsServers) {
		dst.winsServers = append([]netip.Addr(nil), src.winsServers...)
		relevant = true
	}
	if !valuesEqual(dst.nisServers, src.nisServers) {
		dst.nisServers = append([]netip.Addr(nil), src.nisServers...)
		relevant = true
	}
	if dst.nisDomain != src.nisDomain {
		dst.nisDomain = src.nisDomain
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

type seqDiff int

const (
	seqSame seqDiff = iota
	seqMinor
	seqRelevant
)

// compareSeq compares two sequences positionally. A count mismatch is
// always relevant. With matching counts, an element pair differing only
// in non-identity metadata is minor; any identity difference is
// relevant.
func compareSeq[T any](a, b []T, sameIdentity, equal func(T, T) bool) seqDiff {
	if len(a) != len(b) {
		return seqRelevant
	}
	diff := seqSame
	for i := range a {
		if equal(a[i], b[i]) {
			continue
		}
		if !sameIdentity(a[i], b[i]) {
			return seqRelevant
		}
		diff = seqMinor
	}
	return diff
}

func valuesEqual[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equal4 compares two aggregates over exactly the fields Replace4
// classifies as relevant, by digest. Equal4(a, b) holds if and only if
// Replace4(a, b) would report no relevant change.
func Equal4(a, b *IP4Config) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.hash() == b.hash()
}

func (c *IP4Config) hash() [sha1.Size]byte {
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
	for _, n := range c.nisServers {
		hashAddr(h, n)
	}
	hashString(h, c.nisDomain)
	for _, ns := range c.nameservers {
		hashAddr(h, ns)
	}
	for _, w := range c.winsServers {
		hashAddr(h, w)
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

func hashAddr(h hash.Hash, a netip.Addr) {
	b := a.As16()
	h.Write(b[:])
}

func hashUint32(h hash.Hash, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	h.Write(b[:])
}

func hashString(h hash.Hash, s string) {
	hashUint32(h, uint32(len(s)))
	h.Write([]byte(s))
}

// Commit4 pushes the aggregate to the kernel: addresses first, then
// routes, then the MTU. Routes whose destination is already covered by
// an on-link subnet the interface owns are redundant and skipped, and a
// route still carrying MetricAuto falls back to defaultRouteMetric.
func Commit4(p platform.Platform, c *IP4Config, ifindex int, defaultRouteMetric uint32) error {
	if c == nil {
		return nil
	}

	addrs := make([]platform.IP4Address, len(c.addresses))
	for i, a := range c.addresses {
		a.Ifindex = ifindex
		addrs[i] = a
	}
	if !platform.IP4AddressSync(p, ifindex, addrs) {
		return errors.NewSyncFailureError("failed to synchronize IPv4 addresses", nil)
	}

	var routes []platform.IP4Route
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
	if !platform.IP4RouteSync(p, ifindex, routes, c.mss) {
		return errors.NewSyncFailureError("failed to synchronize IPv4 routes", nil)
	}

	if c.mtu > 0 && int(c.mtu) != p.LinkGetMTU(ifindex) {
		if !p.LinkSetMTU(ifindex, int(c.mtu)) {
			return errors.NewSyncFailureError("failed to set link MTU", nil)
		}
	}

	return nil
}

// destinationIsDirect reports whether the destination network lies
// inside a subnet one of the aggregate's own addresses puts on-link.
func (c *IP4Config) destinationIsDirect(network netip.Addr, prefixLen int) bool {
	for _, a := range c.addresses {
		if a.PrefixLen <= prefixLen && platform.SamePrefix(network, a.Address, a.PrefixLen) {
			return true
		}
	}
	return false
}
