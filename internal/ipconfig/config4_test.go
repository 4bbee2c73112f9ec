package ipconfig

import (
	"net/netip"
	"testing"

	stderrors "errors"

	"github.com/netconfd/netconfd/internal/errors"
	"github.com/netconfd/netconfd/internal/platform"
)

func addr4(s string, prefixLen int) platform.IP4Address {
	return platform.IP4Address{
		Address:   netip.MustParseAddr(s),
		PrefixLen: prefixLen,
		Lifetime:  platform.LifetimePermanent,
		Preferred: platform.LifetimePermanent,
		Source:    platform.SourceUser,
	}
}

func route4(network string, prefixLen int, gateway string, metric uint32) platform.IP4Route {
	gw := platform.Unspecified4
	if gateway != "" {
		gw = netip.MustParseAddr(gateway)
	}
	return platform.IP4Route{
		Network:   netip.MustParseAddr(network),
		PrefixLen: prefixLen,
		Gateway:   gw,
		Metric:    metric,
		Source:    platform.SourceUser,
	}
}

func TestAddAddressIdempotent(t *testing.T) {
	c := NewIP4Config()
	a := addr4("10.0.0.5", 24)

	var changes int
	c.OnChange(func(Field) { changes++ })

	c.AddAddress(a)
	c.AddAddress(a)

	if len(c.Addresses()) != 1 {
		t.Fatalf("expected 1 address, got %d", len(c.Addresses()))
	}
	if changes != 1 {
		t.Errorf("expected 1 change notification, got %d", changes)
	}
}

func TestAddAddressIdentityUniqueness(t *testing.T) {
	c := NewIP4Config()

	c.AddAddress(addr4("10.0.0.5", 24))
	updated := addr4("10.0.0.5", 24)
	updated.Label = "eth0:0"
	c.AddAddress(updated)
	c.AddAddress(addr4("10.0.0.5", 16)) // different prefix, new identity
	c.AddAddress(addr4("10.0.0.6", 24))

	seen := map[[2]interface{}]bool{}
	for _, a := range c.Addresses() {
		key := [2]interface{}{a.Address, a.PrefixLen}
		if seen[key] {
			t.Fatalf("duplicate identity %s/%d", a.Address, a.PrefixLen)
		}
		seen[key] = true
	}
	if len(c.Addresses()) != 3 {
		t.Errorf("expected 3 addresses, got %d", len(c.Addresses()))
	}
}

func TestAddAddressKernelSnapshotKeepsConfiguredLifetimes(t *testing.T) {
	c := NewIP4Config()

	// What the DHCP client asked for.
	requested := addr4("10.0.0.5", 24)
	requested.Lifetime = 7200
	requested.Preferred = 7200
	requested.Source = platform.SourceDHCP
	requested.Timestamp = 1000
	c.AddAddress(requested)

	// What a kernel re-capture reports afterwards: the configuring
	// source's lifetimes stay authoritative over the snapshot.
	observed := requested
	observed.Lifetime = 3600
	observed.Preferred = 1800
	observed.Timestamp = 1010
	observed.Source = platform.SourceKernel
	c.AddAddress(observed)

	got := c.Addresses()[0]
	if got.Lifetime != 7200 || got.Preferred != 7200 || got.Timestamp != 1000 {
		t.Errorf("kernel snapshot clobbered configured lifetimes: %+v", got)
	}
	if got.Source != platform.SourceDHCP {
		t.Errorf("surviving source should stay at the higher priority, got %s", got.Source)
	}
}

func TestAddAddressKeepsLaterExpiry(t *testing.T) {
	c := NewIP4Config()

	long := addr4("10.0.0.5", 24)
	long.Source = platform.SourceDHCP
	long.Timestamp = 1000
	long.Lifetime = 7200
	long.Preferred = 7200
	c.AddAddress(long)

	stale := long
	stale.Lifetime = 600
	stale.Preferred = 600
	stale.Timestamp = 1000
	c.AddAddress(stale)

	got := c.Addresses()[0]
	if got.Lifetime != 7200 {
		t.Errorf("a shorter stale report must not shorten a valid lease: lifetime=%d", got.Lifetime)
	}
}

func TestAddRouteRejectsDefaultRoute(t *testing.T) {
	c := NewIP4Config()

	err := c.AddRoute(platform.IP4Route{
		Network:   platform.Unspecified4,
		PrefixLen: 0,
		Gateway:   netip.MustParseAddr("10.0.0.1"),
	})
	if err == nil {
		t.Fatal("adding a default route should fail")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != errors.ErrCodeInvalidArgument {
		t.Errorf("expected an invalid-argument error, got %v", err)
	}
	if len(c.Routes()) != 0 {
		t.Error("failed add must leave the aggregate unmodified")
	}
}

func TestAddRouteReplaceOnCollision(t *testing.T) {
	c := NewIP4Config()

	first := route4("10.1.0.0", 16, "10.0.0.1", 100)
	first.Source = platform.SourceUser
	if err := c.AddRoute(first); err != nil {
		t.Fatal(err)
	}

	second := route4("10.1.0.0", 16, "10.0.0.2", 200)
	second.Source = platform.SourceDHCP
	if err := c.AddRoute(second); err != nil {
		t.Fatal(err)
	}

	if len(c.Routes()) != 1 {
		t.Fatalf("identity collision should replace, got %d routes", len(c.Routes()))
	}
	got := c.Routes()[0]
	if got.Gateway != second.Gateway || got.Metric != 200 {
		t.Errorf("record not replaced: %+v", got)
	}
	if got.Source != platform.SourceUser {
		t.Errorf("source should keep the higher priority, got %s", got.Source)
	}
}

func TestAddRouteClearsHostBits(t *testing.T) {
	c := NewIP4Config()
	if err := c.AddRoute(route4("10.1.2.3", 16, "", 100)); err != nil {
		t.Fatal(err)
	}
	if got := c.Routes()[0].Network; got != netip.MustParseAddr("10.1.0.0") {
		t.Errorf("host bits not cleared: %s", got)
	}
}

func TestResetNotifiesOnlyWhenNonEmpty(t *testing.T) {
	c := NewIP4Config()

	var changes int
	c.OnChange(func(Field) { changes++ })

	c.ResetAddresses()
	c.ResetRoutes()
	c.ResetNameservers()
	if changes != 0 {
		t.Errorf("resets of empty collections notified %d times", changes)
	}

	c.AddAddress(addr4("10.0.0.5", 24))
	changes = 0
	c.ResetAddresses()
	if changes != 1 {
		t.Errorf("expected 1 notification, got %d", changes)
	}
	if len(c.Addresses()) != 0 {
		t.Error("addresses survive reset")
	}
}

func TestNameserverDedup(t *testing.T) {
	c := NewIP4Config()
	ns := netip.MustParseAddr("8.8.8.8")

	c.AddNameserver(ns)
	c.AddNameserver(ns)
	c.AddNameserver(netip.MustParseAddr("1.1.1.1"))

	if len(c.Nameservers()) != 2 {
		t.Errorf("expected 2 nameservers, got %d", len(c.Nameservers()))
	}

	c.DelNameserver(0)
	if len(c.Nameservers()) != 1 || c.Nameservers()[0] != netip.MustParseAddr("1.1.1.1") {
		t.Errorf("index delete removed the wrong entry: %v", c.Nameservers())
	}
}

func TestSetMTUSourcePriority(t *testing.T) {
	c := NewIP4Config()

	c.SetMTU(1500, platform.SourceUser)
	c.SetMTU(1400, platform.SourceDHCP)
	if c.MTU() != 1500 {
		t.Errorf("lower-priority source overrode MTU: %d", c.MTU())
	}

	// Equal priority keeps the smaller non-zero value.
	c.SetMTU(1400, platform.SourceUser)
	if c.MTU() != 1400 {
		t.Errorf("equal-priority smaller MTU should win: %d", c.MTU())
	}
	c.SetMTU(9000, platform.SourceUser)
	if c.MTU() != 1400 {
		t.Errorf("equal-priority larger MTU should lose: %d", c.MTU())
	}
}
