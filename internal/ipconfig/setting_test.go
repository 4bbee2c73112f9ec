package ipconfig

import (
	"net/netip"
	"testing"

	"github.com/netconfd/netconfd/internal/platform"
)

func TestMergeSetting4(t *testing.T) {
	c := NewIP4Config()
	// Auto-learned state that the profile flags should clear.
	c.AddRoute(route4("172.16.0.0", 12, "10.0.0.1", 100))
	c.AddNameserver(netip.MustParseAddr("10.0.0.1"))

	s := &Setting{
		Method:  MethodManual,
		Gateway: netip.MustParseAddr("192.168.1.1"),
		Addresses: []SettingAddress{
			{Address: netip.MustParseAddr("192.168.1.10"), PrefixLen: 24, Label: "eth0:0"},
		},
		Routes: []SettingRoute{
			{Network: netip.MustParseAddr("10.1.0.0"), PrefixLen: 16, Gateway: netip.MustParseAddr("192.168.1.254"), Metric: -1},
			{Network: netip.MustParseAddr("10.2.0.0"), PrefixLen: 16, Metric: 50},
		},
		Nameservers:      []netip.Addr{netip.MustParseAddr("8.8.8.8")},
		Searches:         []string{"example.org"},
		NeverDefault:     true,
		IgnoreAutoRoutes: true,
		IgnoreAutoDNS:    true,
	}

	MergeSetting4(c, s, 1024)

	if len(c.Addresses()) != 1 {
		t.Fatalf("expected 1 address, got %d", len(c.Addresses()))
	}
	a := c.Addresses()[0]
	if a.Source != platform.SourceUser || a.Lifetime != platform.LifetimePermanent || a.Label != "eth0:0" {
		t.Errorf("profile address not imported correctly: %+v", a)
	}

	if len(c.Routes()) != 2 {
		t.Fatalf("auto routes not cleared or profile routes missing: %v", c.Routes())
	}
	for _, r := range c.Routes() {
		switch r.Network {
		case netip.MustParseAddr("10.1.0.0"):
			if r.Metric != 1024 {
				t.Errorf("negative metric should resolve to the default route metric, got %d", r.Metric)
			}
		case netip.MustParseAddr("10.2.0.0"):
			if r.Metric != 50 {
				t.Errorf("explicit metric mangled: %d", r.Metric)
			}
		default:
			t.Errorf("unexpected route %s", r.String())
		}
	}

	if len(c.Nameservers()) != 1 || c.Nameservers()[0] != netip.MustParseAddr("8.8.8.8") {
		t.Errorf("auto DNS not cleared or profile DNS missing: %v", c.Nameservers())
	}
	if c.Gateway() != netip.MustParseAddr("192.168.1.1") {
		t.Errorf("gateway = %s", c.Gateway())
	}
	if !c.NeverDefault() {
		t.Error("never-default flag not carried over")
	}
}

func TestMergeSettingNil(t *testing.T) {
	c := NewIP4Config()
	c.AddAddress(addr4("10.0.0.1", 24))
	MergeSetting4(c, nil, 1024)
	if len(c.Addresses()) != 1 {
		t.Error("nil setting must be a no-op")
	}
}

func TestCreateSetting4Method(t *testing.T) {
	if m := CreateSetting4(nil).Method; m != MethodDisabled {
		t.Errorf("nil aggregate should map to disabled, got %s", m)
	}
	if m := CreateSetting4(NewIP4Config()).Method; m != MethodDisabled {
		t.Errorf("empty aggregate should map to disabled, got %s", m)
	}

	static := NewIP4Config()
	static.AddAddress(addr4("10.0.0.1", 24))
	if m := CreateSetting4(static).Method; m != MethodManual {
		t.Errorf("all-permanent lifetimes should map to manual, got %s", m)
	}

	dynamic := NewIP4Config()
	leased := addr4("10.0.0.1", 24)
	leased.Lifetime = 3600
	dynamic.AddAddress(leased)
	if m := CreateSetting4(dynamic).Method; m != MethodAuto {
		t.Errorf("non-permanent lifetime should map to auto, got %s", m)
	}
}

func TestCreateSetting4KeepsUserRoutesOnly(t *testing.T) {
	c := NewIP4Config()
	c.AddAddress(addr4("10.0.0.1", 24))
	c.SetGateway(netip.MustParseAddr("10.0.0.254"))

	user := route4("10.1.0.0", 16, "10.0.0.254", 100)
	user.Source = platform.SourceUser
	c.AddRoute(user)

	auto := route4("10.2.0.0", 16, "10.0.0.254", 100)
	auto.Source = platform.SourceDHCP
	c.AddRoute(auto)

	s := CreateSetting4(c)
	if len(s.Routes) != 1 || s.Routes[0].Network != netip.MustParseAddr("10.1.0.0") {
		t.Errorf("only user routes should survive: %+v", s.Routes)
	}
	if s.Gateway != netip.MustParseAddr("10.0.0.254") {
		t.Errorf("gateway = %s", s.Gateway)
	}
}

func TestSettingRoundTrip(t *testing.T) {
	orig := &Setting{
		Method:  MethodManual,
		Gateway: netip.MustParseAddr("192.168.1.1"),
		Addresses: []SettingAddress{
			{Address: netip.MustParseAddr("192.168.1.10"), PrefixLen: 24},
		},
		Routes: []SettingRoute{
			{Network: netip.MustParseAddr("10.1.0.0"), PrefixLen: 16, Gateway: netip.MustParseAddr("192.168.1.254"), Metric: 100},
		},
		Nameservers: []netip.Addr{netip.MustParseAddr("8.8.8.8")},
		Searches:    []string{"example.org"},
	}

	c := NewIP4Config()
	MergeSetting4(c, orig, 1024)
	back := CreateSetting4(c)

	if back.Method != MethodManual {
		t.Errorf("method = %s", back.Method)
	}
	if len(back.Addresses) != 1 || back.Addresses[0].Address != orig.Addresses[0].Address {
		t.Errorf("addresses did not round-trip: %+v", back.Addresses)
	}
	if len(back.Routes) != 1 || back.Routes[0].Metric != 100 {
		t.Errorf("routes did not round-trip: %+v", back.Routes)
	}
	if back.Gateway != orig.Gateway {
		t.Errorf("gateway did not round-trip: %s", back.Gateway)
	}
}

func TestMergeSetting6(t *testing.T) {
	c := NewIP6Config()
	s := &Setting{
		Method:  MethodManual,
		Gateway: netip.MustParseAddr("fe80::1"),
		Addresses: []SettingAddress{
			{Address: netip.MustParseAddr("2001:db8::10"), PrefixLen: 64},
		},
		Nameservers: []netip.Addr{netip.MustParseAddr("2001:4860:4860::8888")},
	}

	MergeSetting6(c, s, 1024)

	if len(c.Addresses()) != 1 || c.Addresses()[0].Source != platform.SourceUser {
		t.Errorf("address not imported: %+v", c.Addresses())
	}
	if c.Gateway() != netip.MustParseAddr("fe80::1") {
		t.Errorf("gateway = %s", c.Gateway())
	}
	if len(c.Nameservers()) != 1 {
		t.Errorf("nameservers = %v", c.Nameservers())
	}
}
