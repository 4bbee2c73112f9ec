package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/vishvananda/netlink"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/netconfd/netconfd/internal/log"
)

// Linux talks to the kernel network stack over rtnetlink. All mutations
// are serialized on a single mutex; after a successful kernel call the
// resulting state is re-read and the change event is dispatched before
// the method returns, so callers always observe their own writes.
type Linux struct {
	mu sync.Mutex
	fanout
	errslot
}

// NewLinux returns a Platform backed by the running kernel.
func NewLinux() *Linux {
	return &Linux{}
}

// Run pumps kernel notifications into subscribed handlers until the
// context is cancelled. Mutations performed through this Platform also
// show up here as a second notification; consumers are expected to
// treat events as hints and re-read state.
func (p *Linux) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	done := ctx.Done()

	linkCh := make(chan netlink.LinkUpdate, 64)
	if err := netlink.LinkSubscribeWithOptions(linkCh, done, netlink.LinkSubscribeOptions{
		ListExisting:  false,
		ErrorCallback: func(err error) { log.Errorf("link subscription: %v", err) },
	}); err != nil {
		return fmt.Errorf("subscribing to link updates: %w", err)
	}

	addrCh := make(chan netlink.AddrUpdate, 64)
	if err := netlink.AddrSubscribeWithOptions(addrCh, done, netlink.AddrSubscribeOptions{
		ListExisting:  false,
		ErrorCallback: func(err error) { log.Errorf("address subscription: %v", err) },
	}); err != nil {
		return fmt.Errorf("subscribing to address updates: %w", err)
	}

	routeCh := make(chan netlink.RouteUpdate, 64)
	if err := netlink.RouteSubscribeWithOptions(routeCh, done, netlink.RouteSubscribeOptions{
		ListExisting:  false,
		ErrorCallback: func(err error) { log.Errorf("route subscription: %v", err) },
	}); err != nil {
		return fmt.Errorf("subscribing to route updates: %w", err)
	}

	g.Go(func() error {
		known := map[int]bool{}
		for _, l := range p.LinkGetAll() {
			known[l.Index] = true
		}
		for {
			select {
			case <-done:
				return ctx.Err()
			case u, ok := <-linkCh:
				if !ok {
					return nil
				}
				link := linkFromNetlink(u.Link)
				switch u.Header.Type {
				case unix.RTM_DELLINK:
					delete(known, link.Index)
					p.emit(LinkEvent{Change: Removed, Link: link})
				default:
					change := Changed
					if !known[link.Index] {
						known[link.Index] = true
						change = Added
					}
					p.emit(LinkEvent{Change: change, Link: link})
				}
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-done:
				return ctx.Err()
			case u, ok := <-addrCh:
				if !ok {
					return nil
				}
				change := Added
				if !u.NewAddr {
					change = Removed
				}
				addr, k := netip.AddrFromSlice(u.LinkAddress.IP)
				if !k {
					continue
				}
				addr = addr.Unmap()
				prefixLen, _ := u.LinkAddress.Mask.Size()
				if addr.Is4() {
					p.emit(IP4AddressEvent{Change: change, Address: IP4Address{
						Ifindex:   u.LinkIndex,
						Address:   addr,
						PrefixLen: prefixLen,
						Lifetime:  lifetimeFromNetlink(u.ValidLft),
						Preferred: lifetimeFromNetlink(u.PreferedLft),
						Timestamp: nowSeconds(),
						Source:    SourceKernel,
					}})
				} else {
					p.emit(IP6AddressEvent{Change: change, Address: IP6Address{
						Ifindex:   u.LinkIndex,
						Address:   addr,
						PrefixLen: prefixLen,
						Lifetime:  lifetimeFromNetlink(u.ValidLft),
						Preferred: lifetimeFromNetlink(u.PreferedLft),
						Timestamp: nowSeconds(),
						Source:    SourceKernel,
					}})
				}
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-done:
				return ctx.Err()
			case u, ok := <-routeCh:
				if !ok {
					return nil
				}
				change := Added
				if u.Type == unix.RTM_DELROUTE {
					change = Removed
				}
				switch u.Route.Family {
				case unix.AF_INET:
					if r, ok := route4FromNetlink(u.Route); ok {
						p.emit(IP4RouteEvent{Change: change, Route: r})
					}
				case unix.AF_INET6:
					if r, ok := route6FromNetlink(u.Route); ok {
						p.emit(IP6RouteEvent{Change: change, Route: r})
					}
				}
			}
		}
	})

	return g.Wait()
}

func (p *Linux) LinkGetAll() []Link {
	links, err := netlink.LinkList()
	if err != nil {
		log.Errorf("listing links: %v", err)
		return nil
	}

	out := make([]Link, 0, len(links))
	for _, l := range links {
		out = append(out, linkFromNetlink(l))
	}
	return out
}

func (p *Linux) LinkAdd(name string, kind LinkKind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClearLastError()

	attrs := netlink.NewLinkAttrs()
	attrs.Name = name

	var link netlink.Link
	switch kind {
	case LinkKindDummy:
		link = &netlink.Dummy{LinkAttrs: attrs}
	case LinkKindBridge:
		link = &netlink.Bridge{LinkAttrs: attrs}
	default:
		p.setError(ErrnoNone, "cannot create %s links", kind)
		return false
	}

	if err := netlink.LinkAdd(link); err != nil {
		p.fail("adding link %q", err, name)
		return false
	}

	created, err := netlink.LinkByName(name)
	if err != nil {
		p.fail("reading back link %q", err, name)
		return false
	}
	p.emit(LinkEvent{Change: Added, Link: linkFromNetlink(created)})
	return true
}

func (p *Linux) LinkDelete(ifindex int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClearLastError()

	link, err := netlink.LinkByIndex(ifindex)
	if err != nil {
		p.fail("looking up link %d", err, ifindex)
		return false
	}
	gone := linkFromNetlink(link)

	if err := netlink.LinkDel(link); err != nil {
		p.fail("deleting link %d", err, ifindex)
		return false
	}
	p.emit(LinkEvent{Change: Removed, Link: gone})
	return true
}

func (p *Linux) LinkGetIfindex(name string) int {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return 0
	}
	return link.Attrs().Index
}

func (p *Linux) LinkGetName(ifindex int) string {
	link, err := netlink.LinkByIndex(ifindex)
	if err != nil {
		return ""
	}
	return link.Attrs().Name
}

func (p *Linux) LinkGetKind(ifindex int) LinkKind {
	link, err := netlink.LinkByIndex(ifindex)
	if err != nil {
		return LinkKindUnknown
	}
	return linkFromNetlink(link).Kind
}

func (p *Linux) LinkExists(name string) bool {
	return p.LinkGetIfindex(name) != 0
}

func (p *Linux) LinkSetUp(ifindex int) bool {
	return p.changeLink(ifindex, netlink.LinkSetUp)
}

func (p *Linux) LinkSetDown(ifindex int) bool {
	return p.changeLink(ifindex, netlink.LinkSetDown)
}

func (p *Linux) LinkSetARP(ifindex int) bool {
	return p.changeLink(ifindex, netlink.LinkSetARPOn)
}

func (p *Linux) LinkSetNoARP(ifindex int) bool {
	return p.changeLink(ifindex, netlink.LinkSetARPOff)
}

func (p *Linux) LinkSetMTU(ifindex int, mtu int) bool {
	return p.changeLink(ifindex, func(l netlink.Link) error {
		return netlink.LinkSetMTU(l, mtu)
	})
}

func (p *Linux) changeLink(ifindex int, op func(netlink.Link) error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClearLastError()

	link, err := netlink.LinkByIndex(ifindex)
	if err != nil {
		p.fail("looking up link %d", err, ifindex)
		return false
	}
	if err := op(link); err != nil {
		p.fail("changing link %d", err, ifindex)
		return false
	}

	changed, err := netlink.LinkByIndex(ifindex)
	if err != nil {
		p.fail("reading back link %d", err, ifindex)
		return false
	}
	p.emit(LinkEvent{Change: Changed, Link: linkFromNetlink(changed)})
	return true
}

func (p *Linux) LinkIsUp(ifindex int) bool {
	link, err := netlink.LinkByIndex(ifindex)
	if err != nil {
		return false
	}
	return link.Attrs().Flags&net.FlagUp != 0
}

func (p *Linux) LinkIsConnected(ifindex int) bool {
	link, err := netlink.LinkByIndex(ifindex)
	if err != nil {
		return false
	}
	l := linkFromNetlink(link)
	return l.Up && l.Carrier
}

func (p *Linux) LinkUsesARP(ifindex int) bool {
	link, err := netlink.LinkByIndex(ifindex)
	if err != nil {
		return false
	}
	return link.Attrs().RawFlags&unix.IFF_NOARP == 0
}

func (p *Linux) LinkGetMaster(ifindex int) int {
	link, err := netlink.LinkByIndex(ifindex)
	if err != nil {
		return 0
	}
	return link.Attrs().MasterIndex
}

func (p *Linux) LinkGetMTU(ifindex int) int {
	link, err := netlink.LinkByIndex(ifindex)
	if err != nil {
		return 0
	}
	return link.Attrs().MTU
}

func (p *Linux) IP4AddressGetAll(ifindex int) []IP4Address {
	return addrGetAll4(ifindex)
}

func (p *Linux) IP4AddressAdd(ifindex int, address IP4Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClearLastError()

	change := Added
	if addrExists(ifindex, address.Address, address.PrefixLen, netlink.FAMILY_V4) {
		change = Changed
	}

	nla := addrToNetlink4(address)
	if err := netlink.AddrReplace(mustLinkStub(ifindex), nla); err != nil {
		p.fail("adding address %s to link %d", err, address.String(), ifindex)
		return false
	}

	address.Ifindex = ifindex
	address.Address = address.Address.Unmap()
	p.emit(IP4AddressEvent{Change: change, Address: address})
	return true
}

func (p *Linux) IP4AddressDelete(ifindex int, address netip.Addr, prefixLen int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClearLastError()

	if !addrExists(ifindex, address, prefixLen, netlink.FAMILY_V4) {
		p.setError(ErrnoNotFound, "address %s/%d not found on link %d", address, prefixLen, ifindex)
		return false
	}

	nla := &netlink.Addr{IPNet: ipNetFrom(address, prefixLen)}
	if err := netlink.AddrDel(mustLinkStub(ifindex), nla); err != nil {
		p.fail("deleting address %s/%d from link %d", err, address, prefixLen, ifindex)
		return false
	}
	p.emit(IP4AddressEvent{Change: Removed, Address: IP4Address{
		Ifindex:   ifindex,
		Address:   address.Unmap(),
		PrefixLen: prefixLen,
	}})
	return true
}

func (p *Linux) IP4AddressExists(ifindex int, address netip.Addr, prefixLen int) bool {
	return addrExists(ifindex, address, prefixLen, netlink.FAMILY_V4)
}

func (p *Linux) IP6AddressGetAll(ifindex int) []IP6Address {
	return addrGetAll6(ifindex)
}

func (p *Linux) IP6AddressAdd(ifindex int, address IP6Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClearLastError()

	change := Added
	if addrExists(ifindex, address.Address, address.PrefixLen, netlink.FAMILY_V6) {
		change = Changed
	}

	nla := addrToNetlink6(address)
	if err := netlink.AddrReplace(mustLinkStub(ifindex), nla); err != nil {
		p.fail("adding address %s to link %d", err, address.String(), ifindex)
		return false
	}

	address.Ifindex = ifindex
	p.emit(IP6AddressEvent{Change: change, Address: address})
	return true
}

func (p *Linux) IP6AddressDelete(ifindex int, address netip.Addr, prefixLen int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClearLastError()

	if !addrExists(ifindex, address, prefixLen, netlink.FAMILY_V6) {
		p.setError(ErrnoNotFound, "address %s/%d not found on link %d", address, prefixLen, ifindex)
		return false
	}

	nla := &netlink.Addr{IPNet: ipNetFrom(address, prefixLen)}
	if err := netlink.AddrDel(mustLinkStub(ifindex), nla); err != nil {
		p.fail("deleting address %s/%d from link %d", err, address, prefixLen, ifindex)
		return false
	}
	p.emit(IP6AddressEvent{Change: Removed, Address: IP6Address{
		Ifindex:   ifindex,
		Address:   address,
		PrefixLen: prefixLen,
	}})
	return true
}

func (p *Linux) IP6AddressExists(ifindex int, address netip.Addr, prefixLen int) bool {
	return addrExists(ifindex, address, prefixLen, netlink.FAMILY_V6)
}

func (p *Linux) IP4RouteGetAll(ifindex int) []IP4Route {
	routes, err := routeList(ifindex, netlink.FAMILY_V4)
	if err != nil {
		log.Errorf("listing IPv4 routes on link %d: %v", ifindex, err)
		return nil
	}

	var out []IP4Route
	for _, nlr := range routes {
		if r, ok := route4FromNetlink(nlr); ok {
			out = append(out, r)
		}
	}
	return out
}

func (p *Linux) IP4RouteAdd(ifindex int, route IP4Route, mss uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClearLastError()

	route.Ifindex = ifindex
	route.Gateway = NormalizeGateway4(route.Gateway)

	change := Added
	if p.IP4RouteExists(ifindex, route.Network, route.PrefixLen, route.Metric) {
		change = Changed
	}

	nlr := routeToNetlink(ifindex, route.Network, route.PrefixLen, route.Gateway, route.Metric, route.Source, mss)
	if err := netlink.RouteReplace(nlr); err != nil {
		p.fail("adding route %s to link %d", err, route.String(), ifindex)
		return false
	}
	p.emit(IP4RouteEvent{Change: change, Route: route})
	return true
}

func (p *Linux) IP4RouteDelete(ifindex int, network netip.Addr, prefixLen int, metric uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClearLastError()

	nlr := &netlink.Route{
		LinkIndex: ifindex,
		Dst:       ipNetFrom(network, prefixLen),
		Priority:  int(metric),
	}
	if err := netlink.RouteDel(nlr); err != nil {
		p.fail("deleting route %s/%d metric %d from link %d", err, network, prefixLen, metric, ifindex)
		return false
	}
	p.emit(IP4RouteEvent{Change: Removed, Route: IP4Route{
		Ifindex:   ifindex,
		Network:   network.Unmap(),
		PrefixLen: prefixLen,
		Gateway:   Unspecified4,
		Metric:    metric,
	}})
	return true
}

func (p *Linux) IP4RouteExists(ifindex int, network netip.Addr, prefixLen int, metric uint32) bool {
	for _, r := range p.IP4RouteGetAll(ifindex) {
		if r.Network == network.Unmap() && r.PrefixLen == prefixLen && r.Metric == metric {
			return true
		}
	}
	return false
}

func (p *Linux) IP6RouteGetAll(ifindex int) []IP6Route {
	routes, err := routeList(ifindex, netlink.FAMILY_V6)
	if err != nil {
		log.Errorf("listing IPv6 routes on link %d: %v", ifindex, err)
		return nil
	}

	var out []IP6Route
	for _, nlr := range routes {
		if r, ok := route6FromNetlink(nlr); ok {
			out = append(out, r)
		}
	}
	return out
}

func (p *Linux) IP6RouteAdd(ifindex int, route IP6Route, mss uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClearLastError()

	route.Ifindex = ifindex
	route.Gateway = NormalizeGateway6(route.Gateway)

	change := Added
	if p.IP6RouteExists(ifindex, route.Network, route.PrefixLen, route.Metric) {
		change = Changed
	}

	nlr := routeToNetlink(ifindex, route.Network, route.PrefixLen, route.Gateway, route.Metric, route.Source, mss)
	if err := netlink.RouteReplace(nlr); err != nil {
		p.fail("adding route %s to link %d", err, route.String(), ifindex)
		return false
	}
	p.emit(IP6RouteEvent{Change: change, Route: route})
	return true
}

func (p *Linux) IP6RouteDelete(ifindex int, network netip.Addr, prefixLen int, metric uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClearLastError()

	nlr := &netlink.Route{
		LinkIndex: ifindex,
		Dst:       ipNetFrom(network, prefixLen),
		Priority:  int(metric),
	}
	if err := netlink.RouteDel(nlr); err != nil {
		p.fail("deleting route %s/%d metric %d from link %d", err, network, prefixLen, metric, ifindex)
		return false
	}
	p.emit(IP6RouteEvent{Change: Removed, Route: IP6Route{
		Ifindex:   ifindex,
		Network:   network,
		PrefixLen: prefixLen,
		Gateway:   Unspecified6,
		Metric:    metric,
	}})
	return true
}

func (p *Linux) IP6RouteExists(ifindex int, network netip.Addr, prefixLen int, metric uint32) bool {
	for _, r := range p.IP6RouteGetAll(ifindex) {
		if r.Network == network && r.PrefixLen == prefixLen && r.Metric == metric {
			return true
		}
	}
	return false
}

// fail records the kernel error in the out-of-band slot and logs it.
func (p *Linux) fail(format string, err error, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.setError(errnoFromError(err), "%s: %v", msg, err)
	log.Debugf("platform: %s: %v", msg, err)
}

func errnoFromError(err error) Errno {
	var notFound netlink.LinkNotFoundError
	switch {
	case errors.Is(err, unix.EEXIST):
		return ErrnoExists
	case errors.Is(err, unix.ENOENT),
		errors.Is(err, unix.ESRCH),
		errors.Is(err, unix.EADDRNOTAVAIL),
		errors.Is(err, unix.ENODEV),
		errors.As(err, &notFound):
		return ErrnoNotFound
	default:
		return ErrnoNone
	}
}

// mustLinkStub builds a minimal netlink.Link carrying only the index,
// which is all AddrReplace/AddrDel need.
func mustLinkStub(ifindex int) netlink.Link {
	return &netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Index: ifindex}}
}

func linkFromNetlink(l netlink.Link) Link {
	attrs := l.Attrs()

	kind := LinkKindGeneric
	switch l.(type) {
	case *netlink.Dummy:
		kind = LinkKindDummy
	case *netlink.Bridge:
		kind = LinkKindBridge
	case *netlink.Device:
		if attrs.Flags&net.FlagLoopback != 0 {
			kind = LinkKindLoopback
		} else {
			kind = LinkKindEthernet
		}
	default:
		if attrs.Flags&net.FlagLoopback != 0 {
			kind = LinkKindLoopback
		}
	}

	return Link{
		Index:   attrs.Index,
		Name:    attrs.Name,
		Kind:    kind,
		Up:      attrs.Flags&net.FlagUp != 0,
		Carrier: attrs.RawFlags&unix.IFF_RUNNING != 0,
		ARP:     attrs.RawFlags&unix.IFF_NOARP == 0,
		Master:  attrs.MasterIndex,
		MTU:     attrs.MTU,
	}
}

func addrGetAll4(ifindex int) []IP4Address {
	nlas, err := netlink.AddrList(mustLinkStub(ifindex), netlink.FAMILY_V4)
	if err != nil {
		log.Errorf("listing IPv4 addresses on link %d: %v", ifindex, err)
		return nil
	}

	out := make([]IP4Address, 0, len(nlas))
	for _, nla := range nlas {
		addr, ok := netip.AddrFromSlice(nla.IPNet.IP)
		if !ok {
			continue
		}
		prefixLen, _ := nla.IPNet.Mask.Size()
		out = append(out, IP4Address{
			Ifindex:   ifindex,
			Address:   addr.Unmap(),
			PrefixLen: prefixLen,
			Label:     nla.Label,
			Lifetime:  lifetimeFromNetlink(nla.ValidLft),
			Preferred: lifetimeFromNetlink(nla.PreferedLft),
			Timestamp: nowSeconds(),
			Source:    SourceKernel,
		})
	}
	return out
}

func addrGetAll6(ifindex int) []IP6Address {
	nlas, err := netlink.AddrList(mustLinkStub(ifindex), netlink.FAMILY_V6)
	if err != nil {
		log.Errorf("listing IPv6 addresses on link %d: %v", ifindex, err)
		return nil
	}

	out := make([]IP6Address, 0, len(nlas))
	for _, nla := range nlas {
		addr, ok := netip.AddrFromSlice(nla.IPNet.IP)
		if !ok {
			continue
		}
		prefixLen, _ := nla.IPNet.Mask.Size()
		out = append(out, IP6Address{
			Ifindex:   ifindex,
			Address:   addr,
			PrefixLen: prefixLen,
			Lifetime:  lifetimeFromNetlink(nla.ValidLft),
			Preferred: lifetimeFromNetlink(nla.PreferedLft),
			Timestamp: nowSeconds(),
			Source:    SourceKernel,
		})
	}
	return out
}

func addrExists(ifindex int, address netip.Addr, prefixLen int, family int) bool {
	nlas, err := netlink.AddrList(mustLinkStub(ifindex), family)
	if err != nil {
		return false
	}
	for _, nla := range nlas {
		got, ok := netip.AddrFromSlice(nla.IPNet.IP)
		if !ok {
			continue
		}
		gotLen, _ := nla.IPNet.Mask.Size()
		if got.Unmap() == address.Unmap() && gotLen == prefixLen {
			return true
		}
	}
	return false
}

func addrToNetlink4(a IP4Address) *netlink.Addr {
	return &netlink.Addr{
		IPNet:       ipNetFrom(a.Address, a.PrefixLen),
		Label:       a.Label,
		ValidLft:    lifetimeToNetlink(a.Lifetime),
		PreferedLft: lifetimeToNetlink(a.Preferred),
	}
}

func addrToNetlink6(a IP6Address) *netlink.Addr {
	return &netlink.Addr{
		IPNet:       ipNetFrom(a.Address, a.PrefixLen),
		ValidLft:    lifetimeToNetlink(a.Lifetime),
		PreferedLft: lifetimeToNetlink(a.Preferred),
	}
}

func routeList(ifindex, family int) ([]netlink.Route, error) {
	filter := &netlink.Route{LinkIndex: ifindex, Table: unix.RT_TABLE_MAIN}
	return netlink.RouteListFiltered(family, filter, netlink.RT_FILTER_OIF|netlink.RT_FILTER_TABLE)
}

func route4FromNetlink(nlr netlink.Route) (IP4Route, bool) {
	network := Unspecified4
	prefixLen := 0
	if nlr.Dst != nil {
		addr, ok := netip.AddrFromSlice(nlr.Dst.IP)
		if !ok || !addr.Unmap().Is4() {
			return IP4Route{}, false
		}
		network = addr.Unmap()
		prefixLen, _ = nlr.Dst.Mask.Size()
	}

	gateway := Unspecified4
	if len(nlr.Gw) > 0 {
		if gw, ok := netip.AddrFromSlice(nlr.Gw); ok {
			gateway = gw.Unmap()
		}
	}

	return IP4Route{
		Ifindex:   nlr.LinkIndex,
		Network:   network,
		PrefixLen: prefixLen,
		Gateway:   gateway,
		Metric:    uint32(nlr.Priority),
		Source:    sourceFromProtocol(nlr.Protocol),
	}, true
}

func route6FromNetlink(nlr netlink.Route) (IP6Route, bool) {
	network := Unspecified6
	prefixLen := 0
	if nlr.Dst != nil {
		addr, ok := netip.AddrFromSlice(nlr.Dst.IP)
		if !ok || !addr.Is6() || addr.Is4In6() {
			return IP6Route{}, false
		}
		network = addr
		prefixLen, _ = nlr.Dst.Mask.Size()
	}

	gateway := Unspecified6
	if len(nlr.Gw) > 0 {
		if gw, ok := netip.AddrFromSlice(nlr.Gw); ok {
			gateway = gw
		}
	}

	return IP6Route{
		Ifindex:   nlr.LinkIndex,
		Network:   network,
		PrefixLen: prefixLen,
		Gateway:   gateway,
		Metric:    uint32(nlr.Priority),
		Source:    sourceFromProtocol(nlr.Protocol),
	}, true
}

func routeToNetlink(ifindex int, network netip.Addr, prefixLen int, gateway netip.Addr, metric uint32, source Source, mss uint32) *netlink.Route {
	nlr := &netlink.Route{
		LinkIndex: ifindex,
		Dst:       ipNetFrom(network, prefixLen),
		Priority:  int(metric),
		Protocol:  protocolFromSource(source),
		Table:     unix.RT_TABLE_MAIN,
		AdvMSS:    int(mss),
	}
	if !gateway.IsUnspecified() {
		nlr.Gw = gateway.AsSlice()
	} else if prefixLen > 0 {
		nlr.Scope = netlink.SCOPE_LINK
	}
	return nlr
}

func sourceFromProtocol(proto netlink.RouteProtocol) Source {
	switch int(proto) {
	case unix.RTPROT_STATIC:
		return SourceUser
	case unix.RTPROT_DHCP:
		return SourceDHCP
	case unix.RTPROT_RA:
		return SourceLinkLocal
	default:
		return SourceKernel
	}
}

func protocolFromSource(source Source) netlink.RouteProtocol {
	switch source {
	case SourceUser:
		return netlink.RouteProtocol(unix.RTPROT_STATIC)
	case SourceDHCP:
		return netlink.RouteProtocol(unix.RTPROT_DHCP)
	case SourceLinkLocal:
		return netlink.RouteProtocol(unix.RTPROT_RA)
	default:
		return netlink.RouteProtocol(unix.RTPROT_BOOT)
	}
}

func ipNetFrom(addr netip.Addr, prefixLen int) *net.IPNet {
	a := addr.Unmap()
	return &net.IPNet{
		IP:   a.AsSlice(),
		Mask: net.CIDRMask(prefixLen, a.BitLen()),
	}
}

func lifetimeFromNetlink(lft int) uint32 {
	if lft <= 0 || uint64(lft) >= uint64(LifetimePermanent) {
		return LifetimePermanent
	}
	return uint32(lft)
}

func lifetimeToNetlink(lft uint32) int {
	return int(lft)
}

func nowSeconds() uint32 {
	return uint32(time.Now().Unix())
}
