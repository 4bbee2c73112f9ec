// Package platform provides a synchronous, always-current view of the
// OS network stack: links, IPv4/IPv6 addresses and routes.
//
// The layer upholds two rules regardless of how the OS reports changes:
//
//  1. Every mutation made through it takes effect and is observable by
//     an immediately following query before the call returns, and the
//     corresponding change events fire synchronously.
//  2. Every query returns a state at least as recent as any state
//     returned by an earlier call in the same process.
//
// Two implementations exist: Linux (netlink-backed) and Fake (pure
// in-memory, identical semantics), so everything built on top can be
// tested deterministically.
package platform

import "net/netip"

// ChangeType tells what happened to an object.
type ChangeType int

const (
	Added ChangeType = iota
	Changed
	Removed
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	}
	return "?"
}

// Event is one typed change notification. The concrete types form a
// closed set; there is no string-keyed dispatch.
type Event interface {
	isEvent()
}

// LinkEvent reports a link being added, changed or removed.
type LinkEvent struct {
	Change ChangeType
	Link   Link
}

// IP4AddressEvent reports an IPv4 address change.
type IP4AddressEvent struct {
	Change  ChangeType
	Address IP4Address
}

// IP6AddressEvent reports an IPv6 address change.
type IP6AddressEvent struct {
	Change  ChangeType
	Address IP6Address
}

// IP4RouteEvent reports an IPv4 route change.
type IP4RouteEvent struct {
	Change ChangeType
	Route  IP4Route
}

// IP6RouteEvent reports an IPv6 route change.
type IP6RouteEvent struct {
	Change ChangeType
	Route  IP6Route
}

func (LinkEvent) isEvent()       {}
func (IP4AddressEvent) isEvent() {}
func (IP6AddressEvent) isEvent() {}
func (IP4RouteEvent) isEvent()   {}
func (IP6RouteEvent) isEvent()   {}

// Handler receives change events. Handlers run synchronously on the
// call that produced the event and must not block.
type Handler func(Event)

// Errno is the out-of-band last-error slot. Operations whose boolean
// result is ambiguous leave a code here for the caller to inspect.
type Errno int

const (
	ErrnoNone Errno = iota
	ErrnoNotFound
	ErrnoExists
)

func (e Errno) String() string {
	switch e {
	case ErrnoNotFound:
		return "not found"
	case ErrnoExists:
		return "already exists"
	default:
		return "none"
	}
}

// Platform is the capability interface over the OS network stack.
//
// Mutating operations return a plain success flag; the reason for a
// failure is available through LastError/LastErrorMessage until the
// next operation overwrites it. NotFound and Exists are expected
// races, not failures: callers query-then-act.
type Platform interface {
	// Links.
	LinkGetAll() []Link
	LinkAdd(name string, kind LinkKind) bool
	LinkDelete(ifindex int) bool
	LinkGetIfindex(name string) int
	LinkGetName(ifindex int) string
	LinkGetKind(ifindex int) LinkKind
	LinkExists(name string) bool
	LinkSetUp(ifindex int) bool
	LinkSetDown(ifindex int) bool
	LinkSetARP(ifindex int) bool
	LinkSetNoARP(ifindex int) bool
	LinkIsUp(ifindex int) bool
	LinkIsConnected(ifindex int) bool
	LinkUsesARP(ifindex int) bool
	LinkGetMaster(ifindex int) int
	LinkGetMTU(ifindex int) int
	LinkSetMTU(ifindex int, mtu int) bool

	// IPv4 addresses.
	IP4AddressGetAll(ifindex int) []IP4Address
	IP4AddressAdd(ifindex int, address IP4Address) bool
	IP4AddressDelete(ifindex int, address netip.Addr, prefixLen int) bool
	IP4AddressExists(ifindex int, address netip.Addr, prefixLen int) bool

	// IPv6 addresses.
	IP6AddressGetAll(ifindex int) []IP6Address
	IP6AddressAdd(ifindex int, address IP6Address) bool
	IP6AddressDelete(ifindex int, address netip.Addr, prefixLen int) bool
	IP6AddressExists(ifindex int, address netip.Addr, prefixLen int) bool

	// IPv4 routes.
	IP4RouteGetAll(ifindex int) []IP4Route
	IP4RouteAdd(ifindex int, route IP4Route, mss uint32) bool
	IP4RouteDelete(ifindex int, network netip.Addr, prefixLen int, metric uint32) bool
	IP4RouteExists(ifindex int, network netip.Addr, prefixLen int, metric uint32) bool

	// IPv6 routes.
	IP6RouteGetAll(ifindex int) []IP6Route
	IP6RouteAdd(ifindex int, route IP6Route, mss uint32) bool
	IP6RouteDelete(ifindex int, network netip.Addr, prefixLen int, metric uint32) bool
	IP6RouteExists(ifindex int, network netip.Addr, prefixLen int, metric uint32) bool

	// Change notifications. Subscribe returns a token for Unsubscribe.
	Subscribe(h Handler) int
	Unsubscribe(token int)

	// Out-of-band error slot.
	LastError() Errno
	LastErrorMessage() string
	ClearLastError()
}

// IP4AddressSync makes the link's IPv4 address set equal to want:
// addresses present in the kernel but absent from want are deleted,
// missing ones are added. Returns false if any operation failed.
func IP4AddressSync(p Platform, ifindex int, want []IP4Address) bool {
	ok := true

	for _, have := range p.IP4AddressGetAll(ifindex) {
		if !containsAddr4(want, have) {
			if !p.IP4AddressDelete(ifindex, have.Address, have.PrefixLen) {
				ok = false
			}
		}
	}

	for _, a := range want {
		if !p.IP4AddressExists(ifindex, a.Address, a.PrefixLen) {
			if !p.IP4AddressAdd(ifindex, a) {
				ok = false
			}
		}
	}

	return ok
}

// IP6AddressSync is the IPv6 mirror of IP4AddressSync.
func IP6AddressSync(p Platform, ifindex int, want []IP6Address) bool {
	ok := true

	for _, have := range p.IP6AddressGetAll(ifindex) {
		if !containsAddr6(want, have) {
			if !p.IP6AddressDelete(ifindex, have.Address, have.PrefixLen) {
				ok = false
			}
		}
	}

	for _, a := range want {
		if !p.IP6AddressExists(ifindex, a.Address, a.PrefixLen) {
			if !p.IP6AddressAdd(ifindex, a) {
				ok = false
			}
		}
	}

	return ok
}

// IP4RouteSync makes the link's IPv4 route set equal to want. Kernel
// default routes are left alone: they belong to whoever manages the
// gateway, never to a route collection.
func IP4RouteSync(p Platform, ifindex int, want []IP4Route, mss uint32) bool {
	ok := true

	have := p.IP4RouteGetAll(ifindex)
	for _, h := range have {
		if h.IsDefault() {
			continue
		}
		if !containsRoute4(want, h) {
			if !p.IP4RouteDelete(ifindex, h.Network, h.PrefixLen, h.Metric) {
				ok = false
			}
		}
	}

	// Route add has replace semantics, so a kernel entry whose gateway
	// drifted at the same (network, prefix, metric) is corrected in
	// place rather than deleted first.
	for _, r := range want {
		if !containsRouteValue4(have, r) {
			if !p.IP4RouteAdd(ifindex, r, mss) {
				ok = false
			}
		}
	}

	return ok
}

// IP6RouteSync is the IPv6 mirror of IP4RouteSync.
func IP6RouteSync(p Platform, ifindex int, want []IP6Route, mss uint32) bool {
	ok := true

	have := p.IP6RouteGetAll(ifindex)
	for _, h := range have {
		if h.IsDefault() {
			continue
		}
		if !containsRoute6(want, h) {
			if !p.IP6RouteDelete(ifindex, h.Network, h.PrefixLen, h.Metric) {
				ok = false
			}
		}
	}

	for _, r := range want {
		if !containsRouteValue6(have, r) {
			if !p.IP6RouteAdd(ifindex, r, mss) {
				ok = false
			}
		}
	}

	return ok
}

func containsAddr4(addrs []IP4Address, a IP4Address) bool {
	for _, x := range addrs {
		if x.SameIdentity(a) {
			return true
		}
	}
	return false
}

func containsAddr6(addrs []IP6Address, a IP6Address) bool {
	for _, x := range addrs {
		if x.SameIdentity(a) {
			return true
		}
	}
	return false
}

// containsRoute4 matches by the kernel's route key: a kept entry with
// a stale gateway is overwritten by the add pass, not deleted.
func containsRoute4(routes []IP4Route, r IP4Route) bool {
	for _, x := range routes {
		if x.SameIdentity(r) && x.Metric == r.Metric {
			return true
		}
	}
	return false
}

func containsRoute6(routes []IP6Route, r IP6Route) bool {
	for _, x := range routes {
		if x.SameIdentity(r) && x.Metric == r.Metric {
			return true
		}
	}
	return false
}

func containsRouteValue4(routes []IP4Route, r IP4Route) bool {
	for _, x := range routes {
		if x.SameValue(r) {
			return true
		}
	}
	return false
}

func containsRouteValue6(routes []IP6Route, r IP6Route) bool {
	for _, x := range routes {
		if x.SameValue(r) {
			return true
		}
	}
	return false
}
