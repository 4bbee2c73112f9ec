package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/netconfd/netconfd/internal/log"
)

// LoadConfig reads, parses and default-fills the configuration file.
// Validation is a separate step so callers can report all problems at
// once.
func LoadConfig(configPath string) (*Config, error) {
	configFile := filepath.Clean(configPath)

	if !filepath.IsAbs(configFile) {
		path, err := filepath.Abs(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %v", err)
		}
		configFile = path
	}

	content, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var config Config
	if err := toml.Unmarshal(content, &config); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			log.Errorf(derr.String())
			row, col := derr.Position()
			log.Errorf("Error at line %d, column %d", row, col)
			return nil, fmt.Errorf("failed to parse config file")
		}
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}

	config._absConfigFilePath = configFile
	config.applyDefaults()

	log.Debugf("Configuration file path: %s", configFile)

	return &config, nil
}

// SerializeConfig renders the configuration back to TOML.
func (c *Config) SerializeConfig() (*bytes.Buffer, error) {
	buf := bytes.Buffer{}
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to serialize config: %v", err)
	}
	return &buf, nil
}
