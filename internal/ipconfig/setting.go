package ipconfig

import (
	"net/netip"
	"time"

	"github.com/netconfd/netconfd/internal/log"
	"github.com/netconfd/netconfd/internal/platform"
)

// Method classifies how an interface obtains its configuration.
type Method string

const (
	MethodDisabled Method = "disabled"
	MethodManual   Method = "manual"
	MethodAuto     Method = "auto"
)

// SettingAddress is one address entry in a connection profile.
type SettingAddress struct {
	Address   netip.Addr
	PrefixLen int
	Label     string
}

// SettingRoute is one route entry in a connection profile. A negative
// metric means "use the interface's default route metric".
type SettingRoute struct {
	Network   netip.Addr
	PrefixLen int
	Gateway   netip.Addr
	Metric    int64
}

// Setting is the profile-level view of one address family's
// configuration: what a user writes, as opposed to what the kernel
// holds.
type Setting struct {
	Method           Method
	Addresses        []SettingAddress
	Gateway          netip.Addr
	Routes           []SettingRoute
	Nameservers      []netip.Addr
	Domains          []string
	Searches         []string
	NeverDefault     bool
	IgnoreAutoRoutes bool
	IgnoreAutoDNS    bool
}

// MergeSetting4 folds a user profile into the aggregate. The ignore
// flags clear the corresponding auto-learned collections before the
// profile's own entries go in. Profile entries carry SourceUser and
// permanent lifetimes; a negative route metric resolves to
// defaultRouteMetric.
func MergeSetting4(c *IP4Config, s *Setting, defaultRouteMetric uint32) {
	if s == nil {
		return
	}

	if s.IgnoreAutoRoutes {
		c.ResetRoutes()
	}
	if s.IgnoreAutoDNS {
		c.ResetNameservers()
		c.ResetDomains()
		c.ResetSearches()
	}
	if s.NeverDefault {
		c.SetNeverDefault(true)
	}

	if !s.Gateway.IsUnspecified() && s.Gateway.IsValid() {
		c.SetGateway(s.Gateway)
	}

	now := uint32(time.Now().Unix())
	for _, sa := range s.Addresses {
		c.AddAddress(platform.IP4Address{
			Address:   sa.Address,
			PrefixLen: sa.PrefixLen,
			Label:     sa.Label,
			Lifetime:  platform.LifetimePermanent,
			Preferred: platform.LifetimePermanent,
			Timestamp: now,
			Source:    platform.SourceUser,
		})
	}

	for _, sr := range s.Routes {
		metric := defaultRouteMetric
		if sr.Metric >= 0 {
			metric = uint32(sr.Metric)
		}
		r := platform.IP4Route{
			Network:   sr.Network,
			PrefixLen: sr.PrefixLen,
			Gateway:   sr.Gateway,
			Metric:    metric,
			Source:    platform.SourceUser,
		}
		if err := c.AddRoute(r); err != nil {
			log.Warnf("profile route %s rejected: %v", r.String(), err)
		}
	}

	for _, ns := range s.Nameservers {
		c.AddNameserver(ns)
	}
	for _, d := range s.Domains {
		c.AddDomain(d)
	}
	for _, sr := range s.Searches {
		c.AddSearch(sr)
	}
}

// MergeSetting6 is the IPv6 mirror of MergeSetting4. IPv6 addresses
// carry no label.
func MergeSetting6(c *IP6Config, s *Setting, defaultRouteMetric uint32) {
	if s == nil {
		return
	}

	if s.IgnoreAutoRoutes {
		c.ResetRoutes()
	}
	if s.IgnoreAutoDNS {
		c.ResetNameservers()
		c.ResetDomains()
		c.ResetSearches()
	}
	if s.NeverDefault {
		c.SetNeverDefault(true)
	}

	if !s.Gateway.IsUnspecified() && s.Gateway.IsValid() {
		c.SetGateway(s.Gateway)
	}

	now := uint32(time.Now().Unix())
	for _, sa := range s.Addresses {
		c.AddAddress(platform.IP6Address{
			Address:   sa.Address,
			PrefixLen: sa.PrefixLen,
			Lifetime:  platform.LifetimePermanent,
			Preferred: platform.LifetimePermanent,
			Timestamp: now,
			Source:    platform.SourceUser,
		})
	}

	for _, sr := range s.Routes {
		metric := defaultRouteMetric
		if sr.Metric >= 0 {
			metric = uint32(sr.Metric)
		}
		r := platform.IP6Route{
			Network:   sr.Network,
			PrefixLen: sr.PrefixLen,
			Gateway:   sr.Gateway,
			Metric:    metric,
			Source:    platform.SourceUser,
		}
		if err := c.AddRoute(r); err != nil {
			log.Warnf("profile route %s rejected: %v", r.String(), err)
		}
	}

	for _, ns := range s.Nameservers {
		c.AddNameserver(ns)
	}
	for _, d := range s.Domains {
		c.AddDomain(d)
	}
	for _, sr := range s.Searches {
		c.AddSearch(sr)
	}
}

// CreateSetting4 synthesizes a profile fragment from a live aggregate,
// the inverse of MergeSetting4. An aggregate without addresses maps to
// the disabled method; one holding any non-permanent lifetime was
// populated by an automatic mechanism; all-permanent means manual.
// Only user-specified routes survive the round trip: automatic routes
// would be re-learned, not configured.
func CreateSetting4(c *IP4Config) *Setting {
	s := &Setting{Method: MethodDisabled, Gateway: platform.Unspecified4}
	if c == nil || len(c.addresses) == 0 {
		return s
	}

	s.Method = MethodManual
	for _, a := range c.addresses {
		if a.Lifetime != platform.LifetimePermanent {
			s.Method = MethodAuto
			break
		}
	}

	for _, a := range c.addresses {
		s.Addresses = append(s.Addresses, SettingAddress{
			Address:   a.Address,
			PrefixLen: a.PrefixLen,
			Label:     a.Label,
		})
	}
	s.Gateway = c.gateway
	for _, r := range c.routes {
		if r.Source != platform.SourceUser {
			continue
		}
		s.Routes = append(s.Routes, SettingRoute{
			Network:   r.Network,
			PrefixLen: r.PrefixLen,
			Gateway:   r.Gateway,
			Metric:    int64(r.Metric),
		})
	}
	s.Nameservers = append(s.Nameservers, c.nameservers...)
	s.Domains = append(s.Domains, c.domains...)
	s.Searches = append(s.Searches, c.searches...)
	s.NeverDefault = c.neverDefault

	return s
}

// CreateSetting6 is the IPv6 mirror of CreateSetting4.
func CreateSetting6(c *IP6Config) *Setting {
	s := &Setting{Method: MethodDisabled, Gateway: platform.Unspecified6}
	if c == nil || len(c.addresses) == 0 {
		return s
	}

	s.Method = MethodManual
	for _, a := range c.addresses {
		if a.Lifetime != platform.LifetimePermanent {
			s.Method = MethodAuto
			break
		}
	}

	for _, a := range c.addresses {
		s.Addresses = append(s.Addresses, SettingAddress{
			Address:   a.Address,
			PrefixLen: a.PrefixLen,
		})
	}
	s.Gateway = c.gateway
	for _, r := range c.routes {
		if r.Source != platform.SourceUser {
			continue
		}
		s.Routes = append(s.Routes, SettingRoute{
			Network:   r.Network,
			PrefixLen: r.PrefixLen,
			Gateway:   r.Gateway,
			Metric:    int64(r.Metric),
		})
	}
	s.Nameservers = append(s.Nameservers, c.nameservers...)
	s.Domains = append(s.Domains, c.domains...)
	s.Searches = append(s.Searches, c.searches...)
	s.NeverDefault = c.neverDefault

	return s
}
