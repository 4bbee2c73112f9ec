package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/netconfd/netconfd/internal/commands"
	"github.com/netconfd/netconfd/internal/log"
)

var (
	version = "dev"
	commit  = "n/a"
	date    = "n/a"
)

func main() {
	ctx := &commands.AppContext{}

	flag.StringVar(&ctx.ConfigPath, "config", "/etc/netconfd/netconfd.toml", "Path to configuration file")
	flag.BoolVar(&ctx.Verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&ctx.Fake, "fake", false, "Run against the in-memory fake platform instead of the kernel")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Host Network Configuration Daemon\n")
		fmt.Fprintf(os.Stderr, "Version: %s (Commit: %s, Date: %s)\n\n", version, commit, date)
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  service                 Run the reconcile daemon (includes API server)\n")
		fmt.Fprintf(os.Stderr, "  interfaces              Print the link table\n")
		fmt.Fprintf(os.Stderr, "  dump                    Capture and print interface configuration\n")
		fmt.Fprintf(os.Stderr, "  platform                Run a single platform operation\n")
		fmt.Fprintf(os.Stderr, "  check-config            Validate the configuration file\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if ctx.Verbose {
		log.SetVerbose(true)
	}

	cmds := []commands.Runner{
		commands.CreateServiceCommand(),
		commands.CreateInterfacesCommand(),
		commands.CreateDumpCommand(),
		commands.CreatePlatformCommand(),
		commands.CreateCheckConfigCommand(),
	}

	args := flag.Args()

	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	subcommand := args[0]
	for _, cmd := range cmds {
		if cmd.Name() == subcommand {
			if needsConfig(subcommand) {
				if _, err := os.Stat(ctx.ConfigPath); errors.Is(err, os.ErrNotExist) {
					log.Fatalf("Configuration file not found: %s", ctx.ConfigPath)
				}
			}

			if err := cmd.Init(args[1:], ctx); err != nil {
				log.Fatalf("Failed to initialize command: %v", err)
			}

			if err := cmd.Run(); err != nil {
				log.Fatalf("Failed to run command: %v", err)
			}

			os.Exit(0)
		}
	}

	log.Fatalf("Unknown subcommand: %s", subcommand)
}

// needsConfig reports whether a subcommand reads the configuration
// file; the platform and interfaces tools work without one.
func needsConfig(name string) bool {
	switch name {
	case "platform", "interfaces":
		return false
	}
	return true
}
