// Package resolvconf reads the system resolver configuration.
package resolvconf

import (
	"bufio"
	"io"
	"net/netip"
	"os"
	"strings"

	"github.com/netconfd/netconfd/internal/errors"
)

// DefaultPath is where glibc looks for the resolver configuration.
const DefaultPath = "/etc/resolv.conf"

// Config is the parsed resolver configuration. Unreadable or malformed
// entries are skipped rather than failing the whole parse, matching
// resolver behaviour.
type Config struct {
	Nameservers []netip.Addr
	Searches    []string
}

// Read parses the resolver configuration at path.
func Read(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewConfigError("failed to open resolver configuration", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse parses resolv.conf syntax from r.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexAny(line, "#;"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		switch fields[0] {
		case "nameserver":
			addr, err := netip.ParseAddr(stripZone(fields[1]))
			if err != nil {
				continue
			}
			cfg.Nameservers = append(cfg.Nameservers, addr.Unmap())
		case "search", "domain":
			// The last search/domain directive wins, like in the
			// stock resolver.
			cfg.Searches = fields[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewConfigError("failed to read resolver configuration", err)
	}

	return cfg, nil
}

// Nameservers4 returns the IPv4 nameservers.
func (c *Config) Nameservers4() []netip.Addr {
	if c == nil {
		return nil
	}
	var out []netip.Addr
	for _, ns := range c.Nameservers {
		if ns.Is4() {
			out = append(out, ns)
		}
	}
	return out
}

// Nameservers6 returns the IPv6 nameservers.
func (c *Config) Nameservers6() []netip.Addr {
	if c == nil {
		return nil
	}
	var out []netip.Addr
	for _, ns := range c.Nameservers {
		if ns.Is6() {
			out = append(out, ns)
		}
	}
	return out
}

// stripZone drops a "%eth0" zone suffix from link-local nameservers.
func stripZone(s string) string {
	if i := strings.IndexByte(s, '%'); i >= 0 {
		return s[:i]
	}
	return s
}
