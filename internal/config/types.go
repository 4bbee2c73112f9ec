package config

// Config is the top-level daemon configuration.
type Config struct {
	// ConfigVersion is the configuration file version.
	ConfigVersion uint8 `toml:"config_version" json:"config_version"`
	// General holds daemon-wide settings.
	General *GeneralConfig `toml:"general"`
	// Interfaces lists the managed interfaces. Interfaces not named here
	// are left alone.
	Interfaces []*InterfaceConfig `toml:"interface,omitempty"`

	_absConfigFilePath string
}

type GeneralConfig struct {
	// APIListen is the HTTP API listen address (default: 127.0.0.1:8999, empty = API disabled).
	APIListen string `toml:"api_listen" json:"api_listen" validate:"hostport_or_empty"`
	// ResolvConfPath is the resolver configuration consulted during capture (default: /etc/resolv.conf).
	ResolvConfPath string `toml:"resolvconf_path" json:"resolvconf_path"`
	// DefaultRouteMetric is applied to routes that do not carry an explicit metric (default: 1024).
	DefaultRouteMetric uint32 `toml:"default_route_metric" json:"default_route_metric"`
	// ResyncIntervalSeconds is the periodic full-reconcile interval
	// (0 = event-driven only, unset = 300).
	ResyncIntervalSeconds *int `toml:"resync_interval_seconds" json:"resync_interval_seconds" validate:"omitempty,gte=0"`
	// Verbose enables debug logging.
	Verbose bool `toml:"verbose" json:"verbose"`
}

type InterfaceConfig struct {
	// Name is the interface name as known to the kernel.
	Name string `toml:"name" json:"name" validate:"required"`
	// MTU is applied to the link when non-zero.
	MTU uint32 `toml:"mtu" json:"mtu" validate:"omitempty,gte=576"`
	// IPv4 configures the IPv4 family; nil leaves the family unmanaged.
	IPv4 *FamilyConfig `toml:"ipv4" json:"ipv4"`
	// IPv6 configures the IPv6 family; nil leaves the family unmanaged.
	IPv6 *FamilyConfig `toml:"ipv6" json:"ipv6"`
}

type FamilyConfig struct {
	// Method is one of disabled, manual, auto.
	Method string `toml:"method" json:"method" validate:"omitempty,oneof=disabled manual auto"`
	// Addresses in CIDR notation ("192.168.1.10/24"). An IPv4 address may
	// carry a label suffix after a space ("10.0.0.2/24 eth0:backup").
	Addresses []string `toml:"addresses" json:"addresses"`
	// Gateway is the default next hop.
	Gateway string `toml:"gateway" json:"gateway" validate:"ip_or_empty"`
	// Routes are static routes for this family.
	Routes []RouteConfig `toml:"route" json:"route,omitempty"`
	// Nameservers, Domains and Searches feed the DNS fields.
	Nameservers []string `toml:"nameservers" json:"nameservers"`
	Domains     []string `toml:"domains" json:"domains"`
	Searches    []string `toml:"searches" json:"searches"`
	// NeverDefault prevents this interface from carrying the default route.
	NeverDefault bool `toml:"never_default" json:"never_default"`
	// IgnoreAutoRoutes discards automatically learned routes before the
	// profile's own routes are applied.
	IgnoreAutoRoutes bool `toml:"ignore_auto_routes" json:"ignore_auto_routes"`
	// IgnoreAutoDNS discards automatically learned DNS configuration.
	IgnoreAutoDNS bool `toml:"ignore_auto_dns" json:"ignore_auto_dns"`
}

type RouteConfig struct {
	// Network is the destination in CIDR notation.
	Network string `toml:"network" json:"network" validate:"required,cidr_notation"`
	// Gateway is the next hop; empty means on-link.
	Gateway string `toml:"gateway" json:"gateway" validate:"ip_or_empty"`
	// Metric is the route metric; 0 or -1 picks the default route metric.
	Metric int64 `toml:"metric" json:"metric" validate:"gte=-1"`
}

const (
	DefaultAPIListen             = "127.0.0.1:8999"
	DefaultResolvConfPath        = "/etc/resolv.conf"
	DefaultRouteMetric           = 1024
	DefaultResyncIntervalSeconds = 300
)

// applyDefaults fills unset general settings with their defaults.
func (c *Config) applyDefaults() {
	if c.General == nil {
		c.General = &GeneralConfig{APIListen: DefaultAPIListen}
	}
	if c.General.ResolvConfPath == "" {
		c.General.ResolvConfPath = DefaultResolvConfPath
	}
	if c.General.DefaultRouteMetric == 0 {
		c.General.DefaultRouteMetric = DefaultRouteMetric
	}
	if c.General.ResyncIntervalSeconds == nil {
		interval := DefaultResyncIntervalSeconds
		c.General.ResyncIntervalSeconds = &interval
	}

	for _, iface := range c.Interfaces {
		for _, fam := range []*FamilyConfig{iface.IPv4, iface.IPv6} {
			if fam == nil {
				continue
			}
			if fam.Method == "" {
				if len(fam.Addresses) > 0 {
					fam.Method = "manual"
				} else {
					fam.Method = "auto"
				}
			}
			for i := range fam.Routes {
				if fam.Routes[i].Metric == 0 {
					fam.Routes[i].Metric = -1
				}
			}
		}
	}
}

// ConfigFilePath returns the absolute path the configuration was loaded
// from.
func (c *Config) ConfigFilePath() string {
	return c._absConfigFilePath
}
