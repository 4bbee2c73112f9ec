package platform

import (
	"net/netip"
	"testing"
)

func TestSourceOrdering(t *testing.T) {
	order := []Source{SourceUnknown, SourceKernel, SourceDHCP, SourceLinkLocal, SourceUser}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Errorf("%s should rank below %s", order[i-1], order[i])
		}
	}

	if got := MaxSource(SourceKernel, SourceUser); got != SourceUser {
		t.Errorf("MaxSource(kernel, user) = %s", got)
	}
	if got := MaxSource(SourceDHCP, SourceKernel); got != SourceDHCP {
		t.Errorf("MaxSource(dhcp, kernel) = %s", got)
	}
}

func TestCompareExpiry(t *testing.T) {
	tests := []struct {
		name                   string
		aTs, bTs               uint32
		aLifetime, bLifetime   uint32
		want                   int
	}{
		{"equal finite", 100, 100, 50, 50, 0},
		{"a later", 100, 100, 60, 50, 1},
		{"b later", 100, 100, 50, 60, -1},
		{"permanent beats finite", 100, 100, LifetimePermanent, 50, 1},
		{"finite loses to permanent", 100, 100, 50, LifetimePermanent, -1},
		{"both permanent", 100, 200, LifetimePermanent, LifetimePermanent, 0},
		{"timestamp shifts expiry", 200, 100, 50, 50, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareExpiry(tt.aTs, tt.aLifetime, tt.bTs, tt.bLifetime)
			if got != tt.want {
				t.Errorf("CompareExpiry() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClearHostBits(t *testing.T) {
	tests := []struct {
		addr      string
		prefixLen int
		want      string
	}{
		{"192.168.1.77", 24, "192.168.1.0"},
		{"10.11.12.13", 8, "10.0.0.0"},
		{"10.11.12.13", 32, "10.11.12.13"},
		{"0.0.0.0", 0, "0.0.0.0"},
		{"2001:db8::dead:beef", 64, "2001:db8::"},
		{"2001:db8:1:2:3:4:5:6", 48, "2001:db8:1::"},
	}

	for _, tt := range tests {
		got := ClearHostBits(netip.MustParseAddr(tt.addr), tt.prefixLen)
		if got != netip.MustParseAddr(tt.want) {
			t.Errorf("ClearHostBits(%s, %d) = %s, want %s", tt.addr, tt.prefixLen, got, tt.want)
		}
	}
}

func TestSamePrefix(t *testing.T) {
	tests := []struct {
		a, b      string
		prefixLen int
		want      bool
	}{
		{"192.168.1.1", "192.168.1.254", 24, true},
		{"192.168.1.1", "192.168.2.1", 24, false},
		{"192.168.1.1", "192.168.2.1", 16, true},
		{"10.0.0.1", "172.16.0.1", 0, true},
		{"2001:db8::1", "2001:db8::ffff", 64, true},
		{"2001:db8::1", "2001:db9::1", 64, false},
	}

	for _, tt := range tests {
		a := netip.MustParseAddr(tt.a)
		b := netip.MustParseAddr(tt.b)
		if got := SamePrefix(a, b, tt.prefixLen); got != tt.want {
			t.Errorf("SamePrefix(%s, %s, %d) = %v, want %v", tt.a, tt.b, tt.prefixLen, got, tt.want)
		}
	}
}

func TestRouteIsDefault(t *testing.T) {
	def := IP4Route{Network: Unspecified4, PrefixLen: 0, Gateway: netip.MustParseAddr("10.0.0.1")}
	if !def.IsDefault() {
		t.Error("0.0.0.0/0 should be a default route")
	}
	host := IP4Route{Network: netip.MustParseAddr("10.0.0.1"), PrefixLen: 32}
	if host.IsDefault() {
		t.Error("host route is not a default route")
	}

	def6 := IP6Route{Network: Unspecified6, PrefixLen: 0, Gateway: netip.MustParseAddr("fe80::1")}
	if !def6.IsDefault() {
		t.Error("::/0 should be a default route")
	}
}

func TestNormalizeGateway(t *testing.T) {
	if got := NormalizeGateway4(netip.Addr{}); got != Unspecified4 {
		t.Errorf("NormalizeGateway4(zero) = %s", got)
	}
	gw := netip.MustParseAddr("192.168.1.1")
	if got := NormalizeGateway4(gw); got != gw {
		t.Errorf("NormalizeGateway4(%s) = %s", gw, got)
	}
	if got := NormalizeGateway6(netip.Addr{}); got != Unspecified6 {
		t.Errorf("NormalizeGateway6(zero) = %s", got)
	}
}

func TestAddressIdentityAndEquality(t *testing.T) {
	a := IP4Address{
		Address:   netip.MustParseAddr("10.0.0.1"),
		PrefixLen: 24,
		Lifetime:  LifetimePermanent,
		Source:    SourceUser,
	}
	b := a
	b.Lifetime = 3600
	b.Source = SourceDHCP

	if !a.SameIdentity(b) {
		t.Error("metadata must not affect identity")
	}
	if a.Equal(b) {
		t.Error("differing metadata must break equality")
	}

	c := a
	c.PrefixLen = 16
	if a.SameIdentity(c) {
		t.Error("prefix length is part of identity")
	}
}

func TestRouteHasGateway(t *testing.T) {
	onlink := IP4Route{Network: netip.MustParseAddr("10.0.0.0"), PrefixLen: 24, Gateway: Unspecified4}
	if onlink.HasGateway() {
		t.Error("unspecified gateway means on-link")
	}
	gw := onlink
	gw.Gateway = netip.MustParseAddr("10.0.0.1")
	if !gw.HasGateway() {
		t.Error("route with next hop should report a gateway")
	}
}
