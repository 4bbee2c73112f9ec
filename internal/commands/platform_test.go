package commands

import (
	"testing"
)

func runPlatformOp(t *testing.T, cmd *PlatformCommand, args ...string) error {
	t.Helper()
	c := CreatePlatformCommand()
	c.ctx = cmd.ctx
	c.platform = cmd.platform
	if err := c.fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return c.Run()
}

func newFakePlatformCommand(t *testing.T) *PlatformCommand {
	t.Helper()
	c := CreatePlatformCommand()
	if err := c.Init(nil, &AppContext{Fake: true}); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestPlatformOpLifecycle(t *testing.T) {
	cmd := newFakePlatformCommand(t)

	if err := runPlatformOp(t, cmd, "dummy-add", "dummy0"); err != nil {
		t.Fatalf("dummy-add: %v", err)
	}
	if err := runPlatformOp(t, cmd, "link-set-up", "dummy0"); err != nil {
		t.Fatalf("link-set-up: %v", err)
	}
	if err := runPlatformOp(t, cmd, "ip4-address-add", "dummy0", "10.0.0.2/24"); err != nil {
		t.Fatalf("ip4-address-add: %v", err)
	}
	if err := runPlatformOp(t, cmd, "ip4-route-add", "dummy0", "10.1.0.0/16", "10.0.0.1", "100"); err != nil {
		t.Fatalf("ip4-route-add: %v", err)
	}
	if err := runPlatformOp(t, cmd, "ip4-route-delete", "dummy0", "10.1.0.0/16", "100"); err != nil {
		t.Fatalf("ip4-route-delete: %v", err)
	}
	if err := runPlatformOp(t, cmd, "link-delete", "dummy0"); err != nil {
		t.Fatalf("link-delete: %v", err)
	}
}

func TestPlatformOpErrors(t *testing.T) {
	cmd := newFakePlatformCommand(t)

	if err := runPlatformOp(t, cmd, "no-such-op"); err == nil {
		t.Error("unknown operation should fail")
	}
	if err := runPlatformOp(t, cmd, "link-set-up"); err == nil {
		t.Error("missing argument should fail")
	}
	if err := runPlatformOp(t, cmd, "link-set-up", "missing0"); err == nil {
		t.Error("missing interface should fail")
	}
	if err := runPlatformOp(t, cmd, "ip4-address-add", "lo", "not-a-prefix"); err == nil {
		t.Error("malformed prefix should fail")
	}
}

func TestPlatformOnLinkRouteGateway(t *testing.T) {
	cmd := newFakePlatformCommand(t)

	if err := runPlatformOp(t, cmd, "dummy-add", "dummy0"); err != nil {
		t.Fatal(err)
	}
	if err := runPlatformOp(t, cmd, "ip4-route-add", "dummy0", "10.1.0.0/16", "-", "100"); err != nil {
		t.Fatalf("on-link route: %v", err)
	}
}
