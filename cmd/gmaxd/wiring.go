package main

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/physic"

	"github.com/micro-nova/gmaxd/internal/channel"
	"github.com/micro-nova/gmaxd/internal/codec"
	"github.com/micro-nova/gmaxd/internal/config"
	"github.com/micro-nova/gmaxd/internal/firmware"
	"github.com/micro-nova/gmaxd/internal/hardware"
)

// newOpener returns the opener for the configured transport. Every opened
// transport is paced to tc.OpsPerSec.
func newOpener(tc config.Transport, log *slog.Logger) codec.Opener {
	return codec.OpenerFunc(func(r codec.Resource) (hardware.Transport, error) {
		var (
			t   hardware.Transport
			err error
		)
		switch tc.Kind {
		case config.TransportPeriph:
			t, err = hardware.OpenPeriph(r.Bus, r.Addr, physic.Frequency(tc.SpeedHz)*physic.Hertz)
		case config.TransportDrivers:
			t, err = hardware.OpenDrivers(r.Bus, r.Addr, physic.Frequency(tc.SpeedHz)*physic.Hertz)
		case config.TransportRDWR:
			t, err = hardware.OpenRDWR(r.Bus, r.Addr)
		case config.TransportUART:
			t, err = hardware.OpenUARTBridge(r.Bus, tc.UARTBaud, r.Addr)
		case config.TransportMock:
			log.Warn("gmaxd: using mock transport, no hardware will be touched")
			t = hardware.NewMock()
		default:
			err = fmt.Errorf("gmaxd: unknown transport kind %q", tc.Kind)
		}
		if err != nil {
			return nil, err
		}
		return hardware.Paced(t, tc.OpsPerSec), nil
	})
}

// resources describes the connections the firmware would hand the driver.
func resources(cfg *config.Config) []codec.Resource {
	var res []codec.Resource
	if cfg.ShutdownGPIO != "" {
		res = append(res, codec.Resource{Kind: codec.ResourceGPIO, Bus: cfg.ShutdownGPIO})
	}
	bus := cfg.Transport.Bus
	if cfg.Transport.Kind == config.TransportUART {
		bus = cfg.Transport.UARTPort
	}
	return append(res, codec.Resource{Kind: codec.ResourceI2C, Bus: bus, Addr: cfg.Transport.Address})
}

// firmwareSource returns the configured identity and property source. A
// static table wins over the sysfs node.
func firmwareSource(fc config.Firmware) (firmware.Evaluator, firmware.PropertySource) {
	if tbl := fc.Table; tbl != nil {
		t := &firmware.Table{HID: tbl.HID, UID: tbl.UID, Props: tbl.Props}
		return t, t
	}
	s := firmware.NewSysfs(fc.SysfsNode)
	return s, s
}

// platformClass returns the configured platform, or detects it. Detection
// failures fall back to PlatformNone.
func platformClass(cfg *config.Config, log *slog.Logger) hardware.PlatformClass {
	if cfg.Platform != config.PlatformAuto {
		class, err := hardware.ParsePlatformClass(cfg.Platform)
		if err == nil {
			return class
		}
		log.Warn("gmaxd: bad platform override, detecting", "platform", cfg.Platform, "err", err)
	}
	class, id, err := hardware.DetectPlatform()
	if err != nil {
		log.Warn("gmaxd: platform detection failed", "err", err)
		return hardware.PlatformNone
	}
	log.Debug("gmaxd: platform detected", "class", class, "vendor", id.Vendor, "family", id.Family, "model", id.Model)
	return class
}

// deviceOptions builds the codec options shared by every command.
func deviceOptions(cfg *config.Config, log *slog.Logger, class hardware.PlatformClass) codec.Options {
	ev, props := firmwareSource(cfg.Firmware)
	return codec.Options{
		Logger:      log,
		TraceBus:    cfg.TraceBus,
		Firmware:    ev,
		Properties:  props,
		Right:       channel.RightSpeakerIndex(class),
		SettleDelay: cfg.SettleDelay,
	}
}
