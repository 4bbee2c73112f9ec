package commands

import (
	"fmt"

	"github.com/netconfd/netconfd/internal/config"
	"github.com/netconfd/netconfd/internal/platform"
)

type Runner interface {
	Init(args []string, globalArgs *AppContext) error
	Run() error
	Name() string
}

type AppContext struct {
	ConfigPath string
	Verbose    bool
	// Fake runs commands against the in-memory platform instead of the
	// kernel. Useful for trying things out without root.
	Fake bool
}

// newPlatform builds the platform implementation the context asks for.
func newPlatform(ctx *AppContext) platform.Platform {
	if ctx.Fake {
		return platform.NewFake()
	}
	return platform.NewLinux()
}

// loadConfigOrFail loads configuration from file without validating it.
func loadConfigOrFail(configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %v", err)
	}
	return cfg, nil
}

// loadAndValidateConfigOrFail loads configuration from file and
// validates it.
func loadAndValidateConfigOrFail(configPath string) (*config.Config, error) {
	cfg, err := loadConfigOrFail(configPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	return cfg, nil
}
