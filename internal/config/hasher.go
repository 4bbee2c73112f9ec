package config

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash returns a digest of the configuration. The service compares
// digests across reloads to decide whether a re-reconcile is needed.
func (c *Config) Hash() (string, error) {
	jsonBytes, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	hash := md5.Sum(jsonBytes)
	return hex.EncodeToString(hash[:]), nil
}
