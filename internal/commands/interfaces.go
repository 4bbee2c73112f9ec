package commands

import (
	"flag"
	"fmt"
	"strings"

	"github.com/netconfd/netconfd/internal/platform"
)

func CreateInterfacesCommand() *InterfacesCommand {
	gc := &InterfacesCommand{
		fs: flag.NewFlagSet("interfaces", flag.ExitOnError),
	}
	return gc
}

// InterfacesCommand prints the link table.
type InterfacesCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext

	platform platform.Platform
}

func (g *InterfacesCommand) Name() string {
	return g.fs.Name()
}

func (g *InterfacesCommand) Init(args []string, ctx *AppContext) error {
	g.ctx = ctx

	if err := g.fs.Parse(args); err != nil {
		return err
	}

	g.platform = newPlatform(ctx)
	return nil
}

func (g *InterfacesCommand) Run() error {
	links := g.platform.LinkGetAll()

	var b strings.Builder
	fmt.Fprintf(&b, "%-5s %-16s %-10s %-6s %-8s %-6s %s\n",
		"IDX", "NAME", "KIND", "STATE", "CARRIER", "MTU", "MASTER")
	for _, l := range links {
		state := "down"
		if l.Up {
			state = "up"
		}
		carrier := "no"
		if l.Carrier {
			carrier = "yes"
		}
		master := "-"
		if l.Master != 0 {
			master = g.platform.LinkGetName(l.Master)
		}
		fmt.Fprintf(&b, "%-5d %-16s %-10s %-6s %-8s %-6d %s\n",
			l.Index, l.Name, l.Kind, state, carrier, l.MTU, master)
	}

	fmt.Print(b.String())
	return nil
}
