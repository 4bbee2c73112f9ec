package platform

import (
	"net/netip"
	"sort"
	"sync"
)

// Fake is a pure in-memory Platform. It satisfies the same synchronous
// visibility and event semantics as the Linux implementation, so the
// reconciliation engine can be tested without touching the kernel.
type Fake struct {
	mu sync.Mutex
	fanout
	errslot

	nextIndex int
	links     map[int]Link
	addrs4    map[int][]IP4Address
	addrs6    map[int][]IP6Address
	routes4   map[int][]IP4Route
	routes6   map[int][]IP6Route
}

// NewFake creates a fake platform seeded with a loopback link, the way
// a fresh network namespace looks.
func NewFake() *Fake {
	f := &Fake{
		nextIndex: 1,
		links:     map[int]Link{},
		addrs4:    map[int][]IP4Address{},
		addrs6:    map[int][]IP6Address{},
		routes4:   map[int][]IP4Route{},
		routes6:   map[int][]IP6Route{},
	}
	f.LinkAdd("lo", LinkKindLoopback)
	f.ClearLastError()
	return f
}

func (f *Fake) LinkGetAll() []Link {
	f.mu.Lock()
	defer f.mu.Unlock()

	links := make([]Link, 0, len(f.links))
	for _, l := range f.links {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Index < links[j].Index })
	return links
}

func (f *Fake) LinkAdd(name string, kind LinkKind) bool {
	f.mu.Lock()
	f.ClearLastError()
	if f.lookupIfindex(name) != 0 {
		f.setError(ErrnoExists, "link %q already exists", name)
		f.mu.Unlock()
		return false
	}

	link := Link{
		Index: f.nextIndex,
		Name:  name,
		Kind:  kind,
		ARP:   kind != LinkKindLoopback,
		MTU:   1500,
		// New links come up with carrier, as if the cable were already
		// plugged. Tests pull it with LinkSetCarrier.
		Carrier: true,
	}
	f.nextIndex++
	f.links[link.Index] = link
	f.mu.Unlock()

	f.emit(LinkEvent{Change: Added, Link: link})
	return true
}

func (f *Fake) LinkDelete(ifindex int) bool {
	f.mu.Lock()
	f.ClearLastError()
	link, ok := f.links[ifindex]
	if !ok {
		f.setError(ErrnoNotFound, "link %d not found", ifindex)
		f.mu.Unlock()
		return false
	}

	delete(f.links, ifindex)
	delete(f.addrs4, ifindex)
	delete(f.addrs6, ifindex)
	delete(f.routes4, ifindex)
	delete(f.routes6, ifindex)
	f.mu.Unlock()

	f.emit(LinkEvent{Change: Removed, Link: link})
	return true
}

func (f *Fake) LinkGetIfindex(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookupIfindex(name)
}

func (f *Fake) lookupIfindex(name string) int {
	for _, l := range f.links {
		if l.Name == name {
			return l.Index
		}
	}
	return 0
}

func (f *Fake) LinkGetName(ifindex int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.links[ifindex].Name
}

func (f *Fake) LinkGetKind(ifindex int) LinkKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.links[ifindex]; ok {
		return l.Kind
	}
	return LinkKindUnknown
}

func (f *Fake) LinkExists(name string) bool {
	return f.LinkGetIfindex(name) != 0
}

func (f *Fake) LinkSetUp(ifindex int) bool {
	return f.updateLink(ifindex, func(l *Link) { l.Up = true })
}

func (f *Fake) LinkSetDown(ifindex int) bool {
	return f.updateLink(ifindex, func(l *Link) { l.Up = false })
}

func (f *Fake) LinkSetARP(ifindex int) bool {
	return f.updateLink(ifindex, func(l *Link) { l.ARP = true })
}

func (f *Fake) LinkSetNoARP(ifindex int) bool {
	return f.updateLink(ifindex, func(l *Link) { l.ARP = false })
}

func (f *Fake) LinkSetMTU(ifindex int, mtu int) bool {
	return f.updateLink(ifindex, func(l *Link) { l.MTU = mtu })
}

// LinkSetMaster enslaves a link. Only used by tests; the real system
// learns about enslavement from the kernel.
func (f *Fake) LinkSetMaster(ifindex, master int) bool {
	return f.updateLink(ifindex, func(l *Link) { l.Master = master })
}

// LinkSetCarrier flips the carrier flag; the fake's stand-in for a
// cable being plugged or pulled.
func (f *Fake) LinkSetCarrier(ifindex int, carrier bool) bool {
	return f.updateLink(ifindex, func(l *Link) { l.Carrier = carrier })
}

func (f *Fake) updateLink(ifindex int, change func(*Link)) bool {
	f.mu.Lock()
	f.ClearLastError()
	link, ok := f.links[ifindex]
	if !ok {
		f.setError(ErrnoNotFound, "link %d not found", ifindex)
		f.mu.Unlock()
		return false
	}

	old := link
	change(&link)
	f.links[ifindex] = link
	f.mu.Unlock()

	if old != link {
		f.emit(LinkEvent{Change: Changed, Link: link})
	}
	return true
}

func (f *Fake) LinkIsUp(ifindex int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.links[ifindex].Up
}

func (f *Fake) LinkIsConnected(ifindex int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.links[ifindex]
	return l.Up && l.Carrier
}

func (f *Fake) LinkUsesARP(ifindex int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.links[ifindex].ARP
}

func (f *Fake) LinkGetMaster(ifindex int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.links[ifindex].Master
}

func (f *Fake) LinkGetMTU(ifindex int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.links[ifindex].MTU
}

func (f *Fake) IP4AddressGetAll(ifindex int) []IP4Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]IP4Address, len(f.addrs4[ifindex]))
	copy(out, f.addrs4[ifindex])
	return out
}

func (f *Fake) IP4AddressAdd(ifindex int, address IP4Address) bool {
	f.mu.Lock()
	f.ClearLastError()
	if _, ok := f.links[ifindex]; !ok {
		f.setError(ErrnoNotFound, "link %d not found", ifindex)
		f.mu.Unlock()
		return false
	}

	address.Ifindex = ifindex
	address.Address = address.Address.Unmap()
	change := Added
	list := f.addrs4[ifindex]
	for i, a := range list {
		if a.SameIdentity(address) {
			if a == address {
				f.mu.Unlock()
				return true
			}
			list[i] = address
			change = Changed
		}
	}
	if change == Added {
		f.addrs4[ifindex] = append(list, address)
	}
	f.mu.Unlock()

	f.emit(IP4AddressEvent{Change: change, Address: address})
	return true
}

func (f *Fake) IP4AddressDelete(ifindex int, address netip.Addr, prefixLen int) bool {
	f.mu.Lock()
	f.ClearLastError()
	list := f.addrs4[ifindex]
	for i, a := range list {
		if a.Address == address.Unmap() && a.PrefixLen == prefixLen {
			f.addrs4[ifindex] = append(list[:i:i], list[i+1:]...)
			f.mu.Unlock()
			f.emit(IP4AddressEvent{Change: Removed, Address: a})
			return true
		}
	}
	f.setError(ErrnoNotFound, "address %s/%d not found on link %d", address, prefixLen, ifindex)
	f.mu.Unlock()
	return false
}

func (f *Fake) IP4AddressExists(ifindex int, address netip.Addr, prefixLen int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.addrs4[ifindex] {
		if a.Address == address.Unmap() && a.PrefixLen == prefixLen {
			return true
		}
	}
	return false
}

func (f *Fake) IP6AddressGetAll(ifindex int) []IP6Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]IP6Address, len(f.addrs6[ifindex]))
	copy(out, f.addrs6[ifindex])
	return out
}

func (f *Fake) IP6AddressAdd(ifindex int, address IP6Address) bool {
	f.mu.Lock()
	f.ClearLastError()
	if _, ok := f.links[ifindex]; !ok {
		f.setError(ErrnoNotFound, "link %d not found", ifindex)
		f.mu.Unlock()
		return false
	}

	address.Ifindex = ifindex
	change := Added
	list := f.addrs6[ifindex]
	for i, a := range list {
		if a.SameIdentity(address) {
			if a == address {
				f.mu.Unlock()
				return true
			}
			list[i] = address
			change = Changed
		}
	}
	if change == Added {
		f.addrs6[ifindex] = append(list, address)
	}
	f.mu.Unlock()

	f.emit(IP6AddressEvent{Change: change, Address: address})
	return true
}

func (f *Fake) IP6AddressDelete(ifindex int, address netip.Addr, prefixLen int) bool {
	f.mu.Lock()
	f.ClearLastError()
	list := f.addrs6[ifindex]
	for i, a := range list {
		if a.Address == address && a.PrefixLen == prefixLen {
			f.addrs6[ifindex] = append(list[:i:i], list[i+1:]...)
			f.mu.Unlock()
			f.emit(IP6AddressEvent{Change: Removed, Address: a})
			return true
		}
	}
	f.setError(ErrnoNotFound, "address %s/%d not found on link %d", address, prefixLen, ifindex)
	f.mu.Unlock()
	return false
}

func (f *Fake) IP6AddressExists(ifindex int, address netip.Addr, prefixLen int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.addrs6[ifindex] {
		if a.Address == address && a.PrefixLen == prefixLen {
			return true
		}
	}
	return false
}

func (f *Fake) IP4RouteGetAll(ifindex int) []IP4Route {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]IP4Route, len(f.routes4[ifindex]))
	copy(out, f.routes4[ifindex])
	return out
}

func (f *Fake) IP4RouteAdd(ifindex int, route IP4Route, mss uint32) bool {
	_ = mss // the fake keeps no TCP metrics

	f.mu.Lock()
	f.ClearLastError()
	if _, ok := f.links[ifindex]; !ok {
		f.setError(ErrnoNotFound, "link %d not found", ifindex)
		f.mu.Unlock()
		return false
	}

	route.Ifindex = ifindex
	route.Gateway = NormalizeGateway4(route.Gateway)
	change := Added
	list := f.routes4[ifindex]
	for i, r := range list {
		if r.SameIdentity(route) && r.Metric == route.Metric {
			if r == route {
				f.mu.Unlock()
				return true
			}
			list[i] = route
			change = Changed
		}
	}
	if change == Added {
		f.routes4[ifindex] = append(list, route)
	}
	f.mu.Unlock()

	f.emit(IP4RouteEvent{Change: change, Route: route})
	return true
}

func (f *Fake) IP4RouteDelete(ifindex int, network netip.Addr, prefixLen int, metric uint32) bool {
	f.mu.Lock()
	f.ClearLastError()
	list := f.routes4[ifindex]
	for i, r := range list {
		if r.Network == network.Unmap() && r.PrefixLen == prefixLen && r.Metric == metric {
			f.routes4[ifindex] = append(list[:i:i], list[i+1:]...)
			f.mu.Unlock()
			f.emit(IP4RouteEvent{Change: Removed, Route: r})
			return true
		}
	}
	f.setError(ErrnoNotFound, "route %s/%d metric %d not found on link %d", network, prefixLen, metric, ifindex)
	f.mu.Unlock()
	return false
}

func (f *Fake) IP4RouteExists(ifindex int, network netip.Addr, prefixLen int, metric uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.routes4[ifindex] {
		if r.Network == network.Unmap() && r.PrefixLen == prefixLen && r.Metric == metric {
			return true
		}
	}
	return false
}

func (f *Fake) IP6RouteGetAll(ifindex int) []IP6Route {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]IP6Route, len(f.routes6[ifindex]))
	copy(out, f.routes6[ifindex])
	return out
}

func (f *Fake) IP6RouteAdd(ifindex int, route IP6Route, mss uint32) bool {
	_ = mss

	f.mu.Lock()
	f.ClearLastError()
	if _, ok := f.links[ifindex]; !ok {
		f.setError(ErrnoNotFound, "link %d not found", ifindex)
		f.mu.Unlock()
		return false
	}

	route.Ifindex = ifindex
	route.Gateway = NormalizeGateway6(route.Gateway)
	change := Added
	list := f.routes6[ifindex]
	for i, r := range list {
		if r.SameIdentity(route) && r.Metric == route.Metric {
			if r == route {
				f.mu.Unlock()
				return true
			}
			list[i] = route
			change = Changed
		}
	}
	if change == Added {
		f.routes6[ifindex] = append(list, route)
	}
	f.mu.Unlock()

	f.emit(IP6RouteEvent{Change: change, Route: route})
	return true
}

func (f *Fake) IP6RouteDelete(ifindex int, network netip.Addr, prefixLen int, metric uint32) bool {
	f.mu.Lock()
	f.ClearLastError()
	list := f.routes6[ifindex]
	for i, r := range list {
		if r.Network == network && r.PrefixLen == prefixLen && r.Metric == metric {
			f.routes6[ifindex] = append(list[:i:i], list[i+1:]...)
			f.mu.Unlock()
			f.emit(IP6RouteEvent{Change: Removed, Route: r})
			return true
		}
	}
	f.setError(ErrnoNotFound, "route %s/%d metric %d not found on link %d", network, prefixLen, metric, ifindex)
	f.mu.Unlock()
	return false
}

func (f *Fake) IP6RouteExists(ifindex int, network netip.Addr, prefixLen int, metric uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.routes6[ifindex] {
		if r.Network == network && r.PrefixLen == prefixLen && r.Metric == metric {
			return true
		}
	}
	return false
}
