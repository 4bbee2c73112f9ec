package commands

import (
	"flag"
	"fmt"

	"github.com/netconfd/netconfd/internal/config"
	"github.com/netconfd/netconfd/internal/ipconfig"
	"github.com/netconfd/netconfd/internal/platform"
	"github.com/netconfd/netconfd/internal/resolvconf"
)

func CreateDumpCommand() *DumpCommand {
	dc := &DumpCommand{
		fs: flag.NewFlagSet("dump", flag.ExitOnError),
	}
	return dc
}

// DumpCommand captures the live configuration of one interface (or all
// of them) and prints a diagnostic report.
type DumpCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
	cfg *config.Config

	platform platform.Platform
}

func (d *DumpCommand) Name() string {
	return d.fs.Name()
}

func (d *DumpCommand) Init(args []string, ctx *AppContext) error {
	d.ctx = ctx

	if err := d.fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	d.cfg = cfg

	d.platform = newPlatform(ctx)
	return nil
}

func (d *DumpCommand) Run() error {
	resolv, err := resolvconf.Read(d.cfg.General.ResolvConfPath)
	if err != nil {
		resolv = nil
	}

	names := d.fs.Args()
	if len(names) == 0 {
		for _, l := range d.platform.LinkGetAll() {
			names = append(names, l.Name)
		}
	}

	for _, name := range names {
		ifindex := d.platform.LinkGetIfindex(name)
		if ifindex == 0 {
			return fmt.Errorf("interface %s not found", name)
		}

		c4 := ipconfig.Capture4(d.platform, ifindex, resolv)
		c6 := ipconfig.Capture6(d.platform, ifindex, resolv)

		fmt.Print(c4.Dump(name + " (ipv4)"))
		fmt.Print(c6.Dump(name + " (ipv6)"))
	}

	return nil
}
