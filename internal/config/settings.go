package config

import (
	"net/netip"

	"github.com/netconfd/netconfd/internal/errors"
	"github.com/netconfd/netconfd/internal/ipconfig"
)

// Setting converts the family configuration into the engine's profile
// form. Malformed text is rejected with INVALID_ARGUMENT; validation
// should have caught it earlier, so hitting this path means the caller
// skipped ValidateConfig.
func (fc *FamilyConfig) Setting() (*ipconfig.Setting, error) {
	if fc == nil {
		return nil, nil
	}

	s := &ipconfig.Setting{
		Method:           ipconfig.Method(fc.Method),
		NeverDefault:     fc.NeverDefault,
		IgnoreAutoRoutes: fc.IgnoreAutoRoutes,
		IgnoreAutoDNS:    fc.IgnoreAutoDNS,
		Domains:          fc.Domains,
		Searches:         fc.Searches,
	}
	if s.Method == "" {
		s.Method = ipconfig.MethodAuto
	}

	for _, spec := range fc.Addresses {
		prefix, label, err := splitAddressSpec(spec)
		if err != nil {
			return nil, errors.NewInvalidArgumentError("invalid address", err)
		}
		s.Addresses = append(s.Addresses, ipconfig.SettingAddress{
			Address:   prefix.Addr(),
			PrefixLen: prefix.Bits(),
			Label:     label,
		})
	}

	if fc.Gateway != "" {
		gw, err := netip.ParseAddr(fc.Gateway)
		if err != nil {
			return nil, errors.NewInvalidArgumentError("invalid gateway", err)
		}
		s.Gateway = gw
	}

	for _, rc := range fc.Routes {
		prefix, err := netip.ParsePrefix(rc.Network)
		if err != nil {
			return nil, errors.NewInvalidArgumentError("invalid route network", err)
		}
		gw := netip.Addr{}
		if rc.Gateway != "" {
			gw, err = netip.ParseAddr(rc.Gateway)
			if err != nil {
				return nil, errors.NewInvalidArgumentError("invalid route gateway", err)
			}
		}
		metric := rc.Metric
		if metric == 0 {
			metric = -1
		}
		s.Routes = append(s.Routes, ipconfig.SettingRoute{
			Network:   prefix.Addr(),
			PrefixLen: prefix.Bits(),
			Gateway:   gw,
			Metric:    metric,
		})
	}

	for _, ns := range fc.Nameservers {
		addr, err := netip.ParseAddr(ns)
		if err != nil {
			return nil, errors.NewInvalidArgumentError("invalid nameserver", err)
		}
		s.Nameservers = append(s.Nameservers, addr)
	}

	return s, nil
}
