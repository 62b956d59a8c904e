package identity_test

import (
	"strings"
	"testing"

	"github.com/micro-nova/gmaxd/internal/identity"
)

func TestGetHostname(t *testing.T) {
	if identity.GetHostname() == "" {
		t.Error("GetHostname returned empty string")
	}
}

func TestGetVersionLinkTime(t *testing.T) {
	old := identity.Version
	t.Cleanup(func() { identity.Version = old })

	identity.Version = "1.2.3"
	if got := identity.GetVersion(); got != "1.2.3" {
		t.Errorf("GetVersion = %q, want 1.2.3", got)
	}
	identity.Version = "dev"
	if identity.GetVersion() == "" {
		t.Error("GetVersion returned empty string")
	}
}

func TestInstanceName(t *testing.T) {
	if got := identity.InstanceName("left-amp"); got != "left-amp" {
		t.Errorf("InstanceName(configured) = %q", got)
	}
	if got := identity.InstanceName(""); !strings.HasPrefix(got, "gmaxd") {
		t.Errorf("InstanceName() = %q, want gmaxd prefix", got)
	}
}
