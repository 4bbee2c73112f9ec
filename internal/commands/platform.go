package commands

import (
	"flag"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/netconfd/netconfd/internal/platform"
)

func CreatePlatformCommand() *PlatformCommand {
	pc := &PlatformCommand{
		fs: flag.NewFlagSet("platform", flag.ExitOnError),
	}
	return pc
}

// PlatformCommand exposes individual platform operations for
// inspection and scripting: `netconfd platform link-set-up eth0`.
type PlatformCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext

	platform platform.Platform
}

// platformOp is one entry of the operation table.
type platformOp struct {
	name    string
	help    string
	argc    int
	arghelp string
	handler func(p *PlatformCommand, args []string) error
}

var platformOps = []platformOp{
	{"link-get-all", "print all links", 0, "", doLinkGetAll},
	{"dummy-add", "add dummy interface", 1, "<ifname>", doDummyAdd},
	{"bridge-add", "add bridge interface", 1, "<ifname>", doBridgeAdd},
	{"link-exists", "check ifname for existence", 1, "<ifname>", doLinkExists},
	{"link-delete", "delete interface", 1, "<ifname>", doLinkDelete},
	{"link-set-up", "set interface up", 1, "<ifname>", doLinkSetUp},
	{"link-set-down", "set interface down", 1, "<ifname>", doLinkSetDown},
	{"link-is-up", "check if interface is up", 1, "<ifname>", doLinkIsUp},
	{"link-is-connected", "check interface carrier", 1, "<ifname>", doLinkIsConnected},
	{"link-set-mtu", "set interface MTU", 2, "<ifname> <mtu>", doLinkSetMTU},
	{"ip4-address-get-all", "print all IPv4 addresses", 1, "<ifname>", doIP4AddressGetAll},
	{"ip6-address-get-all", "print all IPv6 addresses", 1, "<ifname>", doIP6AddressGetAll},
	{"ip4-address-add", "add IPv4 address", 2, "<ifname> <address>/<plen>", doIP4AddressAdd},
	{"ip6-address-add", "add IPv6 address", 2, "<ifname> <address>/<plen>", doIP6AddressAdd},
	{"ip4-address-delete", "delete IPv4 address", 2, "<ifname> <address>/<plen>", doIP4AddressDelete},
	{"ip6-address-delete", "delete IPv6 address", 2, "<ifname> <address>/<plen>", doIP6AddressDelete},
	{"ip4-route-get-all", "print all IPv4 routes", 1, "<ifname>", doIP4RouteGetAll},
	{"ip6-route-get-all", "print all IPv6 routes", 1, "<ifname>", doIP6RouteGetAll},
	{"ip4-route-add", "add IPv4 route", 4, "<ifname> <network>/<plen> <gateway> <metric>", doIP4RouteAdd},
	{"ip6-route-add", "add IPv6 route", 4, "<ifname> <network>/<plen> <gateway> <metric>", doIP6RouteAdd},
	{"ip4-route-delete", "delete IPv4 route", 3, "<ifname> <network>/<plen> <metric>", doIP4RouteDelete},
	{"ip6-route-delete", "delete IPv6 route", 3, "<ifname> <network>/<plen> <metric>", doIP6RouteDelete},
}

func (c *PlatformCommand) Name() string {
	return c.fs.Name()
}

func (c *PlatformCommand) Init(args []string, ctx *AppContext) error {
	c.ctx = ctx

	c.fs.Usage = func() {
		fmt.Println("Usage: netconfd platform <operation> [args...]")
		fmt.Println("Operations:")
		for _, op := range platformOps {
			fmt.Printf("  %-22s %-28s %s\n", op.name, op.arghelp, op.help)
		}
	}

	if err := c.fs.Parse(args); err != nil {
		return err
	}

	c.platform = newPlatform(ctx)
	return nil
}

func (c *PlatformCommand) Run() error {
	args := c.fs.Args()
	if len(args) == 0 {
		c.fs.Usage()
		return fmt.Errorf("no operation given")
	}

	name := args[0]
	args = args[1:]

	for _, op := range platformOps {
		if op.name != name {
			continue
		}
		if len(args) != op.argc {
			return fmt.Errorf("%s expects %d argument(s): %s", op.name, op.argc, op.arghelp)
		}
		return op.handler(c, args)
	}

	c.fs.Usage()
	return fmt.Errorf("unknown operation: %s", name)
}

// result reports a boolean platform operation outcome, surfacing the
// out-of-band error slot on failure.
func (c *PlatformCommand) result(ok bool) error {
	if !ok {
		return fmt.Errorf("operation failed: %s", c.platform.LastErrorMessage())
	}
	fmt.Println("OK")
	return nil
}

func (c *PlatformCommand) ifindex(name string) (int, error) {
	ifindex := c.platform.LinkGetIfindex(name)
	if ifindex == 0 {
		return 0, fmt.Errorf("interface %s not found", name)
	}
	return ifindex, nil
}

func parsePrefix(spec string) (netip.Addr, int, error) {
	prefix, err := netip.ParsePrefix(spec)
	if err != nil {
		return netip.Addr{}, 0, fmt.Errorf("invalid prefix %q: %v", spec, err)
	}
	return prefix.Addr(), prefix.Bits(), nil
}

func parseMetric(s string) (uint32, error) {
	metric, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid metric %q", s)
	}
	return uint32(metric), nil
}

func doLinkGetAll(c *PlatformCommand, _ []string) error {
	for _, l := range c.platform.LinkGetAll() {
		fmt.Println(l.String())
	}
	return nil
}

func doDummyAdd(c *PlatformCommand, args []string) error {
	return c.result(c.platform.LinkAdd(args[0], platform.LinkKindDummy))
}

func doBridgeAdd(c *PlatformCommand, args []string) error {
	return c.result(c.platform.LinkAdd(args[0], platform.LinkKindBridge))
}

func doLinkExists(c *PlatformCommand, args []string) error {
	fmt.Println(c.platform.LinkExists(args[0]))
	return nil
}

func doLinkDelete(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	return c.result(c.platform.LinkDelete(ifindex))
}

func doLinkSetUp(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	return c.result(c.platform.LinkSetUp(ifindex))
}

func doLinkSetDown(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	return c.result(c.platform.LinkSetDown(ifindex))
}

func doLinkIsUp(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	fmt.Println(c.platform.LinkIsUp(ifindex))
	return nil
}

func doLinkIsConnected(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	fmt.Println(c.platform.LinkIsConnected(ifindex))
	return nil
}

func doLinkSetMTU(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	mtu, err := strconv.Atoi(args[1])
	if err != nil || mtu <= 0 {
		return fmt.Errorf("invalid mtu %q", args[1])
	}
	return c.result(c.platform.LinkSetMTU(ifindex, mtu))
}

func doIP4AddressGetAll(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	for _, a := range c.platform.IP4AddressGetAll(ifindex) {
		fmt.Println(a.String())
	}
	return nil
}

func doIP6AddressGetAll(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	for _, a := range c.platform.IP6AddressGetAll(ifindex) {
		fmt.Println(a.String())
	}
	return nil
}

func doIP4AddressAdd(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	addr, plen, err := parsePrefix(args[1])
	if err != nil || !addr.Is4() {
		return fmt.Errorf("invalid IPv4 prefix %q", args[1])
	}
	return c.result(c.platform.IP4AddressAdd(ifindex, platform.IP4Address{
		Address:   addr,
		PrefixLen: plen,
		Lifetime:  platform.LifetimePermanent,
		Preferred: platform.LifetimePermanent,
		Source:    platform.SourceUser,
	}))
}

func doIP6AddressAdd(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	addr, plen, err := parsePrefix(args[1])
	if err != nil || !addr.Is6() {
		return fmt.Errorf("invalid IPv6 prefix %q", args[1])
	}
	return c.result(c.platform.IP6AddressAdd(ifindex, platform.IP6Address{
		Address:   addr,
		PrefixLen: plen,
		Lifetime:  platform.LifetimePermanent,
		Preferred: platform.LifetimePermanent,
		Source:    platform.SourceUser,
	}))
}

func doIP4AddressDelete(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	addr, plen, err := parsePrefix(args[1])
	if err != nil {
		return err
	}
	return c.result(c.platform.IP4AddressDelete(ifindex, addr, plen))
}

func doIP6AddressDelete(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	addr, plen, err := parsePrefix(args[1])
	if err != nil {
		return err
	}
	return c.result(c.platform.IP6AddressDelete(ifindex, addr, plen))
}

func doIP4RouteGetAll(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	for _, r := range c.platform.IP4RouteGetAll(ifindex) {
		fmt.Println(r.String())
	}
	return nil
}

func doIP6RouteGetAll(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	for _, r := range c.platform.IP6RouteGetAll(ifindex) {
		fmt.Println(r.String())
	}
	return nil
}

func doIP4RouteAdd(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	network, plen, err := parsePrefix(args[1])
	if err != nil {
		return err
	}
	gateway, err := parseGateway(args[2], false)
	if err != nil {
		return err
	}
	metric, err := parseMetric(args[3])
	if err != nil {
		return err
	}
	return c.result(c.platform.IP4RouteAdd(ifindex, platform.IP4Route{
		Network:   network,
		PrefixLen: plen,
		Gateway:   gateway,
		Metric:    metric,
		Source:    platform.SourceUser,
	}, 0))
}

func doIP6RouteAdd(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	network, plen, err := parsePrefix(args[1])
	if err != nil {
		return err
	}
	gateway, err := parseGateway(args[2], true)
	if err != nil {
		return err
	}
	metric, err := parseMetric(args[3])
	if err != nil {
		return err
	}
	return c.result(c.platform.IP6RouteAdd(ifindex, platform.IP6Route{
		Network:   network,
		PrefixLen: plen,
		Gateway:   gateway,
		Metric:    metric,
		Source:    platform.SourceUser,
	}, 0))
}

func doIP4RouteDelete(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	network, plen, err := parsePrefix(args[1])
	if err != nil {
		return err
	}
	metric, err := parseMetric(args[2])
	if err != nil {
		return err
	}
	return c.result(c.platform.IP4RouteDelete(ifindex, network, plen, metric))
}

func doIP6RouteDelete(c *PlatformCommand, args []string) error {
	ifindex, err := c.ifindex(args[0])
	if err != nil {
		return err
	}
	network, plen, err := parsePrefix(args[1])
	if err != nil {
		return err
	}
	metric, err := parseMetric(args[2])
	if err != nil {
		return err
	}
	return c.result(c.platform.IP6RouteDelete(ifindex, network, plen, metric))
}

// parseGateway accepts an address or "-" for an on-link route.
func parseGateway(s string, v6 bool) (netip.Addr, error) {
	if s == "-" || strings.EqualFold(s, "none") {
		if v6 {
			return platform.Unspecified6, nil
		}
		return platform.Unspecified4, nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid gateway %q", s)
	}
	return addr, nil
}
