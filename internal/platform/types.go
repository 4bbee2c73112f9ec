package platform

import (
	"fmt"
	"net/netip"
)

// LinkKind classifies a network interface.
type LinkKind int

const (
	LinkKindUnknown LinkKind = iota
	LinkKindGeneric
	LinkKindLoopback
	LinkKindEthernet
	LinkKindDummy
	LinkKindBridge
)

func (k LinkKind) String() string {
	switch k {
	case LinkKindGeneric:
		return "generic"
	case LinkKindLoopback:
		return "loopback"
	case LinkKindEthernet:
		return "ethernet"
	case LinkKindDummy:
		return "dummy"
	case LinkKindBridge:
		return "bridge"
	default:
		return "unknown"
	}
}

// Source identifies where a configuration entry came from. The order is
// a total priority order: when two entries with the same identity meet,
// the higher source wins metadata ownership.
type Source int

const (
	SourceUnknown Source = iota
	SourceKernel
	SourceDHCP
	SourceLinkLocal
	SourceUser
)

func (s Source) String() string {
	switch s {
	case SourceKernel:
		return "kernel"
	case SourceDHCP:
		return "dhcp"
	case SourceLinkLocal:
		return "link-local"
	case SourceUser:
		return "user"
	default:
		return "unknown"
	}
}

// MaxSource returns the higher-priority of two sources.
func MaxSource(a, b Source) Source {
	if a > b {
		return a
	}
	return b
}

// LifetimePermanent marks an address that never expires.
const LifetimePermanent = ^uint32(0)

// Link is one network interface as known to the OS. The index is
// assigned by the OS and never reused while the link exists.
type Link struct {
	Index   int
	Name    string
	Kind    LinkKind
	Up      bool
	Carrier bool
	ARP     bool
	Master  int
	MTU     int
}

func (l Link) String() string {
	state := "down"
	if l.Up {
		state = "up"
	}
	return fmt.Sprintf("%d: %s type %s %s", l.Index, l.Name, l.Kind, state)
}

// IP4Address is one IPv4 address on a link. Identity for dedup and
// lookup is (Ifindex, Address, PrefixLen); the lifetimes, timestamp,
// label and source are mutable metadata.
type IP4Address struct {
	Ifindex   int
	Address   netip.Addr
	PrefixLen int
	Label     string
	Lifetime  uint32
	Preferred uint32
	Timestamp uint32
	Source    Source
}

// SameIdentity reports whether two addresses describe the same
// (address, prefix) pair, ignoring metadata.
func (a IP4Address) SameIdentity(b IP4Address) bool {
	return a.Address == b.Address && a.PrefixLen == b.PrefixLen
}

// Equal reports full structural equality including metadata.
func (a IP4Address) Equal(b IP4Address) bool {
	return a == b
}

func (a IP4Address) String() string {
	s := fmt.Sprintf("%s/%d", a.Address, a.PrefixLen)
	if a.Label != "" {
		s += " label " + a.Label
	}
	return s + lifetimeSuffix(a.Timestamp, a.Lifetime, a.Preferred) + " src " + a.Source.String()
}

// IP6Address is one IPv6 address on a link. Identity mirrors IP4Address.
type IP6Address struct {
	Ifindex   int
	Address   netip.Addr
	PrefixLen int
	Lifetime  uint32
	Preferred uint32
	Timestamp uint32
	Source    Source
}

func (a IP6Address) SameIdentity(b IP6Address) bool {
	return a.Address == b.Address && a.PrefixLen == b.PrefixLen
}

func (a IP6Address) Equal(b IP6Address) bool {
	return a == b
}

func (a IP6Address) String() string {
	return fmt.Sprintf("%s/%d", a.Address, a.PrefixLen) +
		lifetimeSuffix(a.Timestamp, a.Lifetime, a.Preferred) + " src " + a.Source.String()
}

// IP4Route is one IPv4 route on a link. Identity is (Ifindex, Network,
// PrefixLen). An unspecified gateway means the destination is on-link.
type IP4Route struct {
	Ifindex   int
	Network   netip.Addr
	PrefixLen int
	Gateway   netip.Addr
	Metric    uint32
	Source    Source
}

// IsDefault reports whether this is a default route.
func (r IP4Route) IsDefault() bool {
	return r.PrefixLen == 0
}

func (r IP4Route) SameIdentity(o IP4Route) bool {
	return r.Network == o.Network && r.PrefixLen == o.PrefixLen
}

func (r IP4Route) Equal(o IP4Route) bool {
	return r == o
}

// SameValue reports whether two routes agree on everything a consumer
// observes: network, prefix, gateway and metric. Source is bookkeeping.
func (r IP4Route) SameValue(o IP4Route) bool {
	return r.SameIdentity(o) && r.Gateway == o.Gateway && r.Metric == o.Metric
}

// HasGateway reports whether the route goes via a next hop rather than
// directly on-link.
func (r IP4Route) HasGateway() bool {
	return r.Gateway.IsValid() && !r.Gateway.IsUnspecified()
}

func (r IP4Route) String() string {
	s := fmt.Sprintf("%s/%d", r.Network, r.PrefixLen)
	if r.HasGateway() {
		s += " via " + r.Gateway.String()
	}
	return fmt.Sprintf("%s metric %d src %s", s, r.Metric, r.Source)
}

// IP6Route is the IPv6 mirror of IP4Route.
type IP6Route struct {
	Ifindex   int
	Network   netip.Addr
	PrefixLen int
	Gateway   netip.Addr
	Metric    uint32
	Source    Source
}

func (r IP6Route) IsDefault() bool {
	return r.PrefixLen == 0
}

func (r IP6Route) SameIdentity(o IP6Route) bool {
	return r.Network == o.Network && r.PrefixLen == o.PrefixLen
}

func (r IP6Route) Equal(o IP6Route) bool {
	return r == o
}

// SameValue is the IPv6 mirror of IP4Route.SameValue.
func (r IP6Route) SameValue(o IP6Route) bool {
	return r.SameIdentity(o) && r.Gateway == o.Gateway && r.Metric == o.Metric
}

func (r IP6Route) HasGateway() bool {
	return r.Gateway.IsValid() && !r.Gateway.IsUnspecified()
}

func (r IP6Route) String() string {
	s := fmt.Sprintf("%s/%d", r.Network, r.PrefixLen)
	if r.HasGateway() {
		s += " via " + r.Gateway.String()
	}
	return fmt.Sprintf("%s metric %d src %s", s, r.Metric, r.Source)
}

// Unspecified4 and Unspecified6 are the "no gateway" markers. An unset
// gateway is always the family's unspecified address, never the zero
// netip.Addr, so record comparison with == stays total.
var (
	Unspecified4 = netip.IPv4Unspecified()
	Unspecified6 = netip.IPv6Unspecified()
)

// NormalizeGateway4 maps an invalid address to the IPv4 unspecified
// address so records always carry a comparable gateway value.
func NormalizeGateway4(gw netip.Addr) netip.Addr {
	if !gw.IsValid() {
		return Unspecified4
	}
	return gw.Unmap()
}

// NormalizeGateway6 is the IPv6 mirror of NormalizeGateway4.
func NormalizeGateway6(gw netip.Addr) netip.Addr {
	if !gw.IsValid() {
		return Unspecified6
	}
	return gw
}

// ClearHostBits zeroes the host part of an address under the given
// prefix length. Invalid inputs come back unchanged.
func ClearHostBits(addr netip.Addr, prefixLen int) netip.Addr {
	p, err := addr.Prefix(prefixLen)
	if err != nil {
		return addr
	}
	return p.Addr()
}

// SamePrefix reports whether two addresses share the same network under
// the given prefix length.
func SamePrefix(a, b netip.Addr, prefixLen int) bool {
	return ClearHostBits(a, prefixLen) == ClearHostBits(b, prefixLen)
}

// expiry returns the absolute second at which an address with the given
// timestamp and lifetime stops being valid.
func expiry(timestamp, lifetime uint32) uint64 {
	if lifetime == LifetimePermanent {
		return ^uint64(0)
	}
	return uint64(timestamp) + uint64(lifetime)
}

// CompareExpiry orders two (timestamp, lifetime) pairs by the instant
// they expire: -1 if the first expires earlier, 1 if later, 0 if equal.
func CompareExpiry(aTimestamp, aLifetime, bTimestamp, bLifetime uint32) int {
	ea, eb := expiry(aTimestamp, aLifetime), expiry(bTimestamp, bLifetime)
	switch {
	case ea < eb:
		return -1
	case ea > eb:
		return 1
	default:
		return 0
	}
}

func lifetimeSuffix(timestamp, lifetime, preferred uint32) string {
	if lifetime == LifetimePermanent {
		return " lft forever"
	}
	return fmt.Sprintf(" lft %ds pref %ds ts %d", lifetime, preferred, timestamp)
}
