package resolvconf

import (
	stderrors "errors"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/netconfd/netconfd/internal/errors"
)

func TestParse(t *testing.T) {
	input := `
# Generated by dhcpcd
; vendor comment
nameserver 192.168.1.1
nameserver 8.8.8.8 # trailing comment
nameserver 2001:4860:4860::8888
nameserver fe80::1%eth0
nameserver not-an-address
domain example.org
search lan.example.org corp.example.org

options timeout:2
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	wantNS := []netip.Addr{
		netip.MustParseAddr("192.168.1.1"),
		netip.MustParseAddr("8.8.8.8"),
		netip.MustParseAddr("2001:4860:4860::8888"),
		netip.MustParseAddr("fe80::1"),
	}
	if diff := cmp.Diff(wantNS, cfg.Nameservers, cmpopts.EquateComparable(netip.Addr{})); diff != "" {
		t.Errorf("nameservers mismatch (-want +got):\n%s", diff)
	}

	wantSearch := []string{"lan.example.org", "corp.example.org"}
	if diff := cmp.Diff(wantSearch, cfg.Searches); diff != "" {
		t.Errorf("searches mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(cfg.Nameservers) != 0 || len(cfg.Searches) != 0 {
		t.Errorf("empty input produced %+v", cfg)
	}
}

func TestNameserversByFamily(t *testing.T) {
	cfg := &Config{Nameservers: []netip.Addr{
		netip.MustParseAddr("10.0.0.1"),
		netip.MustParseAddr("2001:db8::1"),
		netip.MustParseAddr("10.0.0.2"),
	}}

	v4 := cfg.Nameservers4()
	if len(v4) != 2 || !v4[0].Is4() || !v4[1].Is4() {
		t.Errorf("Nameservers4() = %v", v4)
	}
	v6 := cfg.Nameservers6()
	if len(v6) != 1 || !v6[0].Is6() {
		t.Errorf("Nameservers6() = %v", v6)
	}

	var nilCfg *Config
	if nilCfg.Nameservers4() != nil || nilCfg.Nameservers6() != nil {
		t.Error("nil config should yield no nameservers")
	}
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resolv.conf")
	if err := os.WriteFile(path, []byte("nameserver 1.1.1.1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(cfg.Nameservers) != 1 || cfg.Nameservers[0] != netip.MustParseAddr("1.1.1.1") {
		t.Errorf("unexpected nameservers: %v", cfg.Nameservers)
	}

	_, err = Read(filepath.Join(dir, "missing"))
	if err == nil {
		t.Fatal("Read() on missing file should fail")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != errors.ErrCodeConfig {
		t.Errorf("expected a configuration error, got %v", err)
	}
}
