package commands

import (
	"flag"
	"fmt"
)

func CreateCheckConfigCommand() *CheckConfigCommand {
	cc := &CheckConfigCommand{
		fs: flag.NewFlagSet("check-config", flag.ExitOnError),
	}
	return cc
}

// CheckConfigCommand validates the configuration file and exits.
type CheckConfigCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
}

func (c *CheckConfigCommand) Name() string {
	return c.fs.Name()
}

func (c *CheckConfigCommand) Init(args []string, ctx *AppContext) error {
	c.ctx = ctx
	return c.fs.Parse(args)
}

func (c *CheckConfigCommand) Run() error {
	cfg, err := loadAndValidateConfigOrFail(c.ctx.ConfigPath)
	if err != nil {
		return err
	}

	hash, err := cfg.Hash()
	if err != nil {
		return err
	}

	fmt.Printf("Configuration %s is valid (%d interface(s), hash %s)\n",
		cfg.ConfigFilePath(), len(cfg.Interfaces), hash)
	return nil
}
