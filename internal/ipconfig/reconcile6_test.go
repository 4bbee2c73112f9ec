package ipconfig

import (
	"net/netip"
	"testing"

	"github.com/netconfd/netconfd/internal/platform"
)

func addr6(s string, prefixLen int) platform.IP6Address {
	return platform.IP6Address{
		Address:   netip.MustParseAddr(s),
		PrefixLen: prefixLen,
		Lifetime:  platform.LifetimePermanent,
		Preferred: platform.LifetimePermanent,
		Source:    platform.SourceUser,
	}
}

func route6(network string, prefixLen int, gateway string, metric uint32) platform.IP6Route {
	gw := platform.Unspecified6
	if gateway != "" {
		gw = netip.MustParseAddr(gateway)
	}
	return platform.IP6Route{
		Network:   netip.MustParseAddr(network),
		PrefixLen: prefixLen,
		Gateway:   gw,
		Metric:    metric,
		Source:    platform.SourceUser,
	}
}

func TestCapture6ExtractsDefaultRoute(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("eth0", platform.LinkKindEthernet)
	ifindex := p.LinkGetIfindex("eth0")

	p.IP6RouteAdd(ifindex, platform.IP6Route{
		Network: platform.Unspecified6, PrefixLen: 0,
		Gateway: netip.MustParseAddr("fe80::1"), Metric: 1024,
	}, 0)
	p.IP6RouteAdd(ifindex, route6("2001:db8:1::", 48, "fe80::1", 100), 0)

	c := Capture6(p, ifindex, nil)
	if c == nil {
		t.Fatal("capture returned nil")
	}
	if c.Gateway() != netip.MustParseAddr("fe80::1") {
		t.Errorf("gateway = %s", c.Gateway())
	}
	if len(c.Routes()) != 1 || c.Routes()[0].PrefixLen != 48 {
		t.Errorf("routes = %v", c.Routes())
	}
}

func TestCapture6PrefersOnLinkDefaultByMetric(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("ppp0", platform.LinkKindGeneric)
	ifindex := p.LinkGetIfindex("ppp0")

	p.IP6RouteAdd(ifindex, platform.IP6Route{
		Network: platform.Unspecified6, PrefixLen: 0,
		Gateway: platform.Unspecified6, Metric: 50,
	}, 0)
	p.IP6RouteAdd(ifindex, platform.IP6Route{
		Network: platform.Unspecified6, PrefixLen: 0,
		Gateway: netip.MustParseAddr("fe80::1"), Metric: 200,
	}, 0)

	c := Capture6(p, ifindex, nil)
	if c.HasGateway() {
		t.Errorf("the metric-50 on-link default should win, got gateway %s", c.Gateway())
	}
}

func TestCapture6StripsGatewayHostRoute(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("eth0", platform.LinkKindEthernet)
	ifindex := p.LinkGetIfindex("eth0")

	gw := netip.MustParseAddr("2001:db8::1")
	p.IP6RouteAdd(ifindex, platform.IP6Route{
		Network: platform.Unspecified6, PrefixLen: 0, Gateway: gw, Metric: 1024,
	}, 0)
	p.IP6RouteAdd(ifindex, platform.IP6Route{
		Network: gw, PrefixLen: 128, Gateway: platform.Unspecified6, Metric: 0,
	}, 0)

	c := Capture6(p, ifindex, nil)
	if len(c.Routes()) != 0 {
		t.Errorf("gateway host route not stripped: %v", c.Routes())
	}
}

func TestReplace6MinorVsRelevant(t *testing.T) {
	dst := NewIP6Config()
	d := addr6("2001:db8::5", 64)
	d.Lifetime = 3600
	dst.AddAddress(d)

	src := NewIP6Config()
	s := addr6("2001:db8::5", 64)
	s.Lifetime = 7200
	src.AddAddress(s)

	changed, relevant := Replace6(dst, src)
	if !changed || relevant {
		t.Errorf("changed=%v relevant=%v, want changed-only", changed, relevant)
	}

	src.AddAddress(addr6("2001:db8::6", 64))
	_, relevant = Replace6(dst, src)
	if !relevant {
		t.Error("count mismatch must be relevant")
	}
}

func TestEqual6MatchesReplace6(t *testing.T) {
	a := NewIP6Config()
	a.AddAddress(addr6("2001:db8::5", 64))
	a.SetGateway(netip.MustParseAddr("fe80::1"))

	b := NewIP6Config()
	b.AddAddress(addr6("2001:db8::5", 64))
	b.SetGateway(netip.MustParseAddr("fe80::1"))
	b.SetMSS(1220) // minor only

	if !Equal6(a, b) {
		t.Error("MSS must not affect equality")
	}

	b.SetGateway(netip.MustParseAddr("fe80::2"))
	if Equal6(a, b) {
		t.Error("gateway difference must break equality")
	}
}

func TestCommit6(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("eth0", platform.LinkKindEthernet)
	ifindex := p.LinkGetIfindex("eth0")

	c := NewIP6Config()
	c.AddAddress(addr6("2001:db8::5", 64))
	// Covered by the on-link /64: skipped at commit.
	c.AddRoute(route6("2001:db8::", 64, "", 100))
	c.AddRoute(route6("2001:db8:99::", 48, "fe80::1", 200))

	if err := Commit6(p, c, ifindex, 1024); err != nil {
		t.Fatalf("Commit6() error: %v", err)
	}

	if p.IP6RouteExists(ifindex, netip.MustParseAddr("2001:db8::"), 64, 100) {
		t.Error("redundant on-link route was pushed")
	}
	if !p.IP6RouteExists(ifindex, netip.MustParseAddr("2001:db8:99::"), 48, 200) {
		t.Error("gatewayed route missing after commit")
	}
	if !p.IP6AddressExists(ifindex, netip.MustParseAddr("2001:db8::5"), 64) {
		t.Error("address missing after commit")
	}
}

func TestSubtract6CancelsMerge(t *testing.T) {
	a := NewIP6Config()
	a.AddAddress(addr6("2001:db8::1", 64))
	a.SetGateway(netip.MustParseAddr("fe80::1"))

	b := NewIP6Config()
	b.AddAddress(addr6("2001:db8:2::1", 64))
	b.AddRoute(route6("2001:db8:3::", 48, "fe80::2", 100))
	b.AddSearch("v6.example")

	merged := NewIP6Config()
	Merge6(merged, a)
	Merge6(merged, b)
	Subtract6(merged, b)

	if !Equal6(merged, a) {
		t.Errorf("subtract(merge(A,B), B) != A:\n%s\nvs\n%s", merged.Dump("got"), a.Dump("want"))
	}
}
