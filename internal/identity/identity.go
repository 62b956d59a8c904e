// Package identity names this daemon instance on the network.
package identity

import (
	"os"
	"runtime/debug"
	"strings"
)

// Version is overridden at link time with -ldflags "-X ...identity.Version=...".
var Version = "dev"

// GetHostname returns the system hostname.
func GetHostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "gmaxd"
	}
	return h
}

// GetVersion returns the link-time version, else the main module version
// recorded in the build info.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return strings.TrimPrefix(bi.Main.Version, "v")
	}
	return Version
}

// InstanceName is the advertised service instance: configured if set,
// otherwise "gmaxd-<hostname>".
func InstanceName(configured string) string {
	if configured != "" {
		return configured
	}
	h := GetHostname()
	if h == "gmaxd" {
		return h
	}
	return "gmaxd-" + h
}
