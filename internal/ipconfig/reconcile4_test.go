package ipconfig

import (
	"net/netip"
	"testing"

	"github.com/netconfd/netconfd/internal/platform"
	"github.com/netconfd/netconfd/internal/resolvconf"
)

func TestCaptureExtractsLowestMetricDefaultRoute(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("eth0", platform.LinkKindEthernet)
	ifindex := p.LinkGetIfindex("eth0")

	p.IP4RouteAdd(ifindex, platform.IP4Route{
		Network: platform.Unspecified4, PrefixLen: 0,
		Gateway: netip.MustParseAddr("192.168.1.1"), Metric: 100,
	}, 0)
	p.IP4RouteAdd(ifindex, platform.IP4Route{
		Network: platform.Unspecified4, PrefixLen: 0,
		Gateway: netip.MustParseAddr("192.168.1.254"), Metric: 50,
	}, 0)
	p.IP4RouteAdd(ifindex, platform.IP4Route{
		Network: netip.MustParseAddr("10.0.0.0"), PrefixLen: 8,
		Gateway: netip.MustParseAddr("192.168.1.1"), Metric: 10,
	}, 0)

	c := Capture4(p, ifindex, nil)
	if c == nil {
		t.Fatal("capture returned nil for a plain link")
	}

	if c.Gateway() != netip.MustParseAddr("192.168.1.254") {
		t.Errorf("gateway should come from the metric-50 default route, got %s", c.Gateway())
	}
	if len(c.Routes()) != 1 {
		t.Fatalf("default routes leaked into the route set: %v", c.Routes())
	}
	if c.Routes()[0].PrefixLen == 0 {
		t.Error("stored route has prefix length 0")
	}
}

func TestCapturePrefersOnLinkDefaultByMetric(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("ppp0", platform.LinkKindGeneric)
	ifindex := p.LinkGetIfindex("ppp0")

	p.IP4AddressAdd(ifindex, addr4("10.64.0.1", 32))
	// A point-to-point default route has no next hop at all.
	p.IP4RouteAdd(ifindex, platform.IP4Route{
		Network: platform.Unspecified4, PrefixLen: 0,
		Gateway: platform.Unspecified4, Metric: 50,
	}, 0)
	p.IP4RouteAdd(ifindex, platform.IP4Route{
		Network: platform.Unspecified4, PrefixLen: 0,
		Gateway: netip.MustParseAddr("192.168.1.1"), Metric: 200,
	}, 0)

	resolv := &resolvconf.Config{Nameservers: []netip.Addr{
		netip.MustParseAddr("9.9.9.9"),
	}}
	c := Capture4(p, ifindex, resolv)

	if c.HasGateway() {
		t.Errorf("the metric-50 on-link default should win, got gateway %s", c.Gateway())
	}
	if len(c.Routes()) != 0 {
		t.Errorf("default routes leaked into the route set: %v", c.Routes())
	}
	if len(c.Nameservers()) != 1 {
		t.Errorf("on-link default route should still capture DNS, got %v", c.Nameservers())
	}
}

func TestCaptureStripsGatewayHostRoute(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("eth0", platform.LinkKindEthernet)
	ifindex := p.LinkGetIfindex("eth0")

	gw := netip.MustParseAddr("192.168.1.1")
	p.IP4RouteAdd(ifindex, platform.IP4Route{
		Network: platform.Unspecified4, PrefixLen: 0, Gateway: gw, Metric: 100,
	}, 0)
	// The implicit on-link host route the kernel creates for the gateway.
	p.IP4RouteAdd(ifindex, platform.IP4Route{
		Network: gw, PrefixLen: 32, Gateway: platform.Unspecified4, Metric: 0,
	}, 0)

	c := Capture4(p, ifindex, nil)
	if len(c.Routes()) != 0 {
		t.Errorf("gateway host route not stripped: %v", c.Routes())
	}
	if c.Gateway() != gw {
		t.Errorf("gateway = %s, want %s", c.Gateway(), gw)
	}
}

func TestCaptureReturnsNilForEnslavedLink(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("br0", platform.LinkKindBridge)
	p.LinkAdd("eth0", platform.LinkKindEthernet)
	master := p.LinkGetIfindex("br0")
	slave := p.LinkGetIfindex("eth0")
	p.LinkSetMaster(slave, master)

	if c := Capture4(p, slave, nil); c != nil {
		t.Error("capture of an enslaved link should return nil")
	}
}

func TestCaptureAppendsResolvConfNameservers(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("eth0", platform.LinkKindEthernet)
	ifindex := p.LinkGetIfindex("eth0")

	p.IP4AddressAdd(ifindex, addr4("192.168.1.10", 24))
	p.IP4RouteAdd(ifindex, platform.IP4Route{
		Network: platform.Unspecified4, PrefixLen: 0,
		Gateway: netip.MustParseAddr("192.168.1.1"), Metric: 100,
	}, 0)

	resolv := &resolvconf.Config{Nameservers: []netip.Addr{
		netip.MustParseAddr("8.8.8.8"),
		netip.MustParseAddr("2001:4860:4860::8888"),
	}}

	c := Capture4(p, ifindex, resolv)
	if len(c.Nameservers()) != 1 || c.Nameservers()[0] != netip.MustParseAddr("8.8.8.8") {
		t.Errorf("expected the IPv4 resolver entry, got %v", c.Nameservers())
	}

	// No gateway means no DNS capture.
	p2 := platform.NewFake()
	p2.LinkAdd("eth1", platform.LinkKindEthernet)
	i2 := p2.LinkGetIfindex("eth1")
	p2.IP4AddressAdd(i2, addr4("10.0.0.1", 24))
	if c2 := Capture4(p2, i2, resolv); len(c2.Nameservers()) != 0 {
		t.Errorf("DNS captured without a gateway: %v", c2.Nameservers())
	}
}

func TestMergeIsAdditiveAndScalarsFillZeroOnly(t *testing.T) {
	dst := NewIP4Config()
	dst.AddAddress(addr4("10.0.0.1", 24))
	dst.SetGateway(netip.MustParseAddr("10.0.0.254"))
	dst.SetMTU(1400, platform.SourceUser)

	src := NewIP4Config()
	src.AddAddress(addr4("10.0.0.1", 24)) // already present
	src.AddAddress(addr4("10.0.0.2", 24))
	src.SetGateway(netip.MustParseAddr("10.0.0.1"))
	src.SetMSS(536)
	src.SetMTU(1500, platform.SourceDHCP)
	src.AddNameserver(netip.MustParseAddr("8.8.8.8"))
	src.SetNISDomain("nis.example")

	Merge4(dst, src)

	if len(dst.Addresses()) != 2 {
		t.Errorf("expected 2 addresses, got %d", len(dst.Addresses()))
	}
	if dst.Gateway() != netip.MustParseAddr("10.0.0.254") {
		t.Errorf("merge must not overwrite a set gateway: %s", dst.Gateway())
	}
	if dst.MTU() != 1400 {
		t.Errorf("merge must not overwrite a set MTU: %d", dst.MTU())
	}
	if dst.MSS() != 536 {
		t.Errorf("merge should fill the zero MSS: %d", dst.MSS())
	}
	if dst.NISDomain() != "nis.example" {
		t.Errorf("merge should fill the empty NIS domain: %q", dst.NISDomain())
	}
	if len(dst.Nameservers()) != 1 {
		t.Errorf("nameserver not merged: %v", dst.Nameservers())
	}
}

func TestSubtractCancelsMerge(t *testing.T) {
	a := NewIP4Config()
	a.AddAddress(addr4("10.0.0.1", 24))
	a.AddRoute(route4("10.1.0.0", 16, "10.0.0.254", 100))
	a.SetGateway(netip.MustParseAddr("10.0.0.254"))
	a.AddNameserver(netip.MustParseAddr("1.1.1.1"))
	a.AddDomain("a.example")

	b := NewIP4Config()
	b.AddAddress(addr4("192.168.1.1", 24))
	b.AddRoute(route4("192.168.2.0", 24, "192.168.1.254", 50))
	b.AddNameserver(netip.MustParseAddr("8.8.8.8"))
	b.AddSearch("b.example")
	b.SetMSS(536)

	merged := NewIP4Config()
	Merge4(merged, a)
	Merge4(merged, b)
	Subtract4(merged, b)

	if !Equal4(merged, a) {
		t.Errorf("subtract(merge(A,B), B) != A:\n%s\nvs\n%s", merged.Dump("got"), a.Dump("want"))
	}
}

func TestSubtractClearsGatewayWithoutAddresses(t *testing.T) {
	dst := NewIP4Config()
	dst.AddAddress(addr4("10.0.0.1", 24))
	dst.SetGateway(netip.MustParseAddr("10.0.0.254"))

	src := NewIP4Config()
	src.AddAddress(addr4("10.0.0.1", 24))

	Subtract4(dst, src)
	if dst.HasGateway() {
		t.Errorf("gateway survives with zero addresses: %s", dst.Gateway())
	}
}

func TestReplaceMinorLifetimeDifference(t *testing.T) {
	dst := NewIP4Config()
	d := addr4("10.0.0.5", 24)
	d.Lifetime = 3600
	dst.AddAddress(d)

	src := NewIP4Config()
	s := addr4("10.0.0.5", 24)
	s.Lifetime = 7200
	src.AddAddress(s)

	changed, relevant := Replace4(dst, src)
	if !changed {
		t.Error("lifetime difference should report changed")
	}
	if relevant {
		t.Error("lifetime-only difference must be minor")
	}
	if dst.Addresses()[0].Lifetime != 7200 {
		t.Error("destination field not replaced")
	}
}

func TestReplaceIntoEmpty(t *testing.T) {
	dst := NewIP4Config()

	src := NewIP4Config()
	src.AddAddress(addr4("192.168.1.10", 24))
	src.SetGateway(netip.MustParseAddr("192.168.1.1"))
	src.AddNameserver(netip.MustParseAddr("8.8.8.8"))

	changed, relevant := Replace4(dst, src)
	if !changed || !relevant {
		t.Fatalf("changed=%v relevant=%v, want both true", changed, relevant)
	}
	if len(dst.Addresses()) != 1 || dst.Addresses()[0].Address != netip.MustParseAddr("192.168.1.10") {
		t.Errorf("addresses not replaced: %v", dst.Addresses())
	}
	if dst.Gateway() != netip.MustParseAddr("192.168.1.1") {
		t.Errorf("gateway not replaced: %s", dst.Gateway())
	}
	if len(dst.Nameservers()) != 1 || dst.Nameservers()[0] != netip.MustParseAddr("8.8.8.8") {
		t.Errorf("nameservers not replaced: %v", dst.Nameservers())
	}
}

func TestReplaceCountMismatchIsRelevant(t *testing.T) {
	dst := NewIP4Config()
	dst.AddAddress(addr4("10.0.0.1", 24))
	dst.AddAddress(addr4("10.0.0.2", 24))

	src := NewIP4Config()
	src.AddAddress(addr4("10.0.0.1", 24))

	_, relevant := Replace4(dst, src)
	if !relevant {
		t.Error("count mismatch must be relevant")
	}
}

func TestReplaceNoChange(t *testing.T) {
	dst := NewIP4Config()
	dst.AddAddress(addr4("10.0.0.1", 24))
	src := NewIP4Config()
	src.AddAddress(addr4("10.0.0.1", 24))

	changed, relevant := Replace4(dst, src)
	if changed || relevant {
		t.Errorf("identical aggregates reported changed=%v relevant=%v", changed, relevant)
	}
}

func TestEqualMatchesReplaceRelevance(t *testing.T) {
	build := func(mutate func(*IP4Config)) *IP4Config {
		c := NewIP4Config()
		c.AddAddress(addr4("10.0.0.1", 24))
		c.AddRoute(route4("10.1.0.0", 16, "10.0.0.254", 100))
		c.SetGateway(netip.MustParseAddr("10.0.0.254"))
		c.AddNameserver(netip.MustParseAddr("8.8.8.8"))
		if mutate != nil {
			mutate(c)
		}
		return c
	}

	tests := []struct {
		name   string
		mutate func(*IP4Config)
	}{
		{"identical", nil},
		{"lifetime only", func(c *IP4Config) {
			a := c.addresses[0]
			a.Lifetime = 123
			c.addresses[0] = a
		}},
		{"mss only", func(c *IP4Config) { c.SetMSS(536) }},
		{"never-default only", func(c *IP4Config) { c.SetNeverDefault(true) }},
		{"extra nameserver", func(c *IP4Config) { c.AddNameserver(netip.MustParseAddr("1.1.1.1")) }},
		{"different gateway", func(c *IP4Config) { c.SetGateway(netip.MustParseAddr("10.0.0.1")) }},
		{"extra address", func(c *IP4Config) { c.AddAddress(addr4("10.0.0.9", 24)) }},
		{"route metric", func(c *IP4Config) {
			r := c.routes[0]
			r.Metric = 999
			c.routes[0] = r
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := build(nil)
			b := build(tt.mutate)

			eq := Equal4(a, b)
			dst := build(nil)
			_, relevant := Replace4(dst, b)

			if eq != !relevant {
				t.Errorf("Equal4=%v but Replace4 relevant=%v; they must agree", eq, relevant)
			}
		})
	}
}

func TestCommitSkipsOnLinkCoveredRoute(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("eth0", platform.LinkKindEthernet)
	ifindex := p.LinkGetIfindex("eth0")

	c := NewIP4Config()
	c.AddAddress(addr4("10.0.0.5", 24))
	// Covered by the on-link /24 above: must never reach the platform.
	c.AddRoute(route4("10.0.0.0", 24, "", 100))
	c.AddRoute(route4("10.99.0.0", 16, "10.0.0.1", 50))

	if err := Commit4(p, c, ifindex, 1024); err != nil {
		t.Fatalf("Commit4() error: %v", err)
	}

	if p.IP4RouteExists(ifindex, netip.MustParseAddr("10.0.0.0"), 24, 100) {
		t.Error("redundant on-link route was pushed to the platform")
	}
	if !p.IP4RouteExists(ifindex, netip.MustParseAddr("10.99.0.0"), 16, 50) {
		t.Error("gatewayed route missing after commit")
	}
	if !p.IP4AddressExists(ifindex, netip.MustParseAddr("10.0.0.5"), 24) {
		t.Error("address missing after commit")
	}
}

func TestCommitResolvesAutoMetric(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("eth0", platform.LinkKindEthernet)
	ifindex := p.LinkGetIfindex("eth0")

	c := NewIP4Config()
	c.AddAddress(addr4("10.0.0.5", 24))
	c.AddRoute(route4("10.99.0.0", 16, "10.0.0.1", MetricAuto))

	if err := Commit4(p, c, ifindex, 777); err != nil {
		t.Fatalf("Commit4() error: %v", err)
	}
	if !p.IP4RouteExists(ifindex, netip.MustParseAddr("10.99.0.0"), 16, 777) {
		t.Error("auto metric not resolved to the default route metric")
	}
}

func TestCommitSetsMTU(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("eth0", platform.LinkKindEthernet)
	ifindex := p.LinkGetIfindex("eth0")

	c := NewIP4Config()
	c.AddAddress(addr4("10.0.0.5", 24))
	c.SetMTU(1400, platform.SourceUser)

	if err := Commit4(p, c, ifindex, 1024); err != nil {
		t.Fatalf("Commit4() error: %v", err)
	}
	if p.LinkGetMTU(ifindex) != 1400 {
		t.Errorf("MTU = %d, want 1400", p.LinkGetMTU(ifindex))
	}
}

func TestCommitPropagatesAddressSyncFailure(t *testing.T) {
	p := platform.NewFake()
	// No link: every platform mutation fails with NotFound.
	c := NewIP4Config()
	c.AddAddress(addr4("10.0.0.5", 24))

	if err := Commit4(p, c, 42, 1024); err == nil {
		t.Error("commit against a missing link should fail")
	}
}

func TestCommitIdempotent(t *testing.T) {
	p := platform.NewFake()
	p.LinkAdd("eth0", platform.LinkKindEthernet)
	ifindex := p.LinkGetIfindex("eth0")

	c := NewIP4Config()
	c.AddAddress(addr4("10.0.0.5", 24))
	c.AddRoute(route4("10.99.0.0", 16, "10.0.0.1", 50))

	if err := Commit4(p, c, ifindex, 1024); err != nil {
		t.Fatal(err)
	}

	var events int
	p.Subscribe(func(platform.Event) { events++ })
	if err := Commit4(p, c, ifindex, 1024); err != nil {
		t.Fatal(err)
	}
	if events != 0 {
		t.Errorf("re-committing identical state caused %d platform events", events)
	}
}
