// Package config handles loading, validating and saving the gmaxd daemon
// configuration.
package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/micro-nova/gmaxd/internal/hardware"
)

// Transport kinds.
const (
	TransportPeriph  = "periph"
	TransportDrivers = "drivers"
	TransportRDWR    = "rdwr"
	TransportUART    = "uart"
	TransportMock    = "mock"
)

// PlatformAuto selects CPU detection at startup.
const PlatformAuto = "auto"

const maxSettleDelay = 10 * time.Millisecond

// LogLevel is a slog level that reads and writes as its name in YAML.
type LogLevel slog.Level

func (l *LogLevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("config: invalid log level %q", s)
	}
	*l = LogLevel(lvl)
	return nil
}

func (l LogLevel) MarshalYAML() (interface{}, error) {
	return strings.ToLower(slog.Level(l).String()), nil
}

// Level returns the slog level.
func (l LogLevel) Level() slog.Level { return slog.Level(l) }

// Transport selects and parameterizes the bus transport.
type Transport struct {
	Kind      string `yaml:"kind"`
	Bus       string `yaml:"bus"`
	Address   uint16 `yaml:"address"`
	SpeedHz   int64  `yaml:"speed_hz"`
	UARTPort  string `yaml:"uart_port"`
	UARTBaud  int    `yaml:"uart_baud"`
	OpsPerSec int    `yaml:"ops_per_sec"`
}

// Table is a static identity and property table for boards whose firmware
// does not describe the amplifier.
type Table struct {
	HID   string            `yaml:"hid"`
	UID   uint32            `yaml:"uid"`
	Props map[string]uint32 `yaml:"properties,omitempty"`
}

// Firmware selects where identity and properties come from. A table takes
// precedence over the sysfs node.
type Firmware struct {
	SysfsNode string `yaml:"sysfs_node"`
	Table     *Table `yaml:"table"`
}

// Metrics configures the Prometheus exporter.
type Metrics struct {
	Listen    string `yaml:"listen"`
	Advertise bool   `yaml:"advertise"`
	Instance  string `yaml:"instance"`
}

// DBus enables the D-Bus integrations.
type DBus struct {
	KeepAlive bool `yaml:"keep_alive"`
	Bridge    bool `yaml:"bridge"`
}

// Config is the daemon configuration.
type Config struct {
	LogLevel     LogLevel      `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	TraceBus     bool          `yaml:"trace_bus"`
	Transport    Transport     `yaml:"transport"`
	Firmware     Firmware      `yaml:"firmware"`
	WatchPath    string        `yaml:"watch_path"`
	Platform     string        `yaml:"platform"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	ShutdownGPIO string        `yaml:"shutdown_gpio"`
	Metrics      Metrics       `yaml:"metrics"`
	DBus         DBus          `yaml:"dbus"`
}

// DefaultConfig returns the configuration used when no file is present:
// the first ACPI MAX98512 instance on /dev/i2c-0 at 0x39.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  LogLevel(slog.LevelInfo),
		LogFormat: "text",
		Transport: Transport{
			Kind:    TransportRDWR,
			Bus:     "/dev/i2c-0",
			Address: 0x39,
			SpeedHz: 400000,
		},
		Firmware: Firmware{
			SysfsNode: "/sys/bus/acpi/devices/MX98512:00",
		},
		Platform:    PlatformAuto,
		SettleDelay: 20 * time.Microsecond,
		Metrics: Metrics{
			Listen: ":9512",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}

	t := c.Transport
	switch t.Kind {
	case TransportPeriph, TransportDrivers, TransportMock:
	case TransportRDWR:
		if t.Bus == "" {
			return fmt.Errorf("config: transport.bus is required for %s", t.Kind)
		}
	case TransportUART:
		if t.UARTPort == "" {
			return fmt.Errorf("config: transport.uart_port is required for %s", t.Kind)
		}
		if t.UARTBaud < 0 {
			return fmt.Errorf("config: transport.uart_baud must not be negative")
		}
	default:
		return fmt.Errorf("config: unknown transport kind %q", t.Kind)
	}
	if t.Address < 0x03 || t.Address > 0x77 {
		return fmt.Errorf("config: transport.address 0x%02x outside 7-bit range", t.Address)
	}
	if t.SpeedHz < 0 {
		return fmt.Errorf("config: transport.speed_hz must not be negative")
	}
	if t.OpsPerSec < 0 {
		return fmt.Errorf("config: transport.ops_per_sec must not be negative")
	}

	if c.Firmware.Table == nil && c.Firmware.SysfsNode == "" {
		return fmt.Errorf("config: firmware.sysfs_node or firmware.table is required")
	}
	if tbl := c.Firmware.Table; tbl != nil && tbl.HID == "" {
		return fmt.Errorf("config: firmware.table.hid is required")
	}

	if c.Platform != PlatformAuto {
		if _, err := hardware.ParsePlatformClass(c.Platform); err != nil {
			return fmt.Errorf("config: platform: %w", err)
		}
	}
	if c.SettleDelay < 0 || c.SettleDelay > maxSettleDelay {
		return fmt.Errorf("config: settle_delay %v outside [0, %v]", c.SettleDelay, maxSettleDelay)
	}
	if c.Metrics.Advertise && c.Metrics.Listen == "" {
		return fmt.Errorf("config: metrics.advertise requires metrics.listen")
	}
	return nil
}

// DevicePath is the path whose presence means the amplifier is attached:
// watch_path if set, else the transport's device node. Empty means the
// device is treated as always present.
func (c *Config) DevicePath() string {
	if c.WatchPath != "" {
		return filepath.Clean(c.WatchPath)
	}
	switch c.Transport.Kind {
	case TransportRDWR:
		return c.Transport.Bus
	case TransportUART:
		return c.Transport.UARTPort
	default:
		return ""
	}
}
