package codec

import (
	"time"

	"github.com/micro-nova/gmaxd/internal/channel"
	"github.com/micro-nova/gmaxd/internal/firmware"
	"github.com/micro-nova/gmaxd/internal/models"
	"github.com/micro-nova/gmaxd/internal/regmap"
)

func (d *Device) bringUp() error {
	if !d.identified || d.bus == nil {
		return models.InvalidDeviceState("bring-up")
	}
	v, ok := regmap.Lookup(d.model)
	if !ok {
		return models.InvalidDeviceState("bring-up: no variant for " + d.model.String())
	}
	r := v.Regs
	// Powered on only once this sequence completes.
	if d.poweredOn {
		d.setPower(false)
	}

	if rev, err := d.bus.Read(r.RevID); err != nil {
		d.log.Warn("codec: revision read failed", "uid", d.uid, "err", err)
	} else {
		d.log.Info("codec: revision", "uid", d.uid, "rev", rev)
	}

	for _, reg := range v.Init() {
		if err := d.bus.Write(reg.Addr, reg.Val); err != nil {
			return err
		}
	}

	cfg := d.Channel()
	d.log.Debug("codec: channel config", "uid", d.uid,
		"vmon", cfg.VmonSlot, "imon", cfg.ImonSlot,
		"interleave", cfg.Interleave, "right", cfg.RightChannel)

	mask := regmap.SlotMask(cfg.VmonSlot, cfg.ImonSlot)
	enLo, enHi := regmap.SplitMask(mask)
	hizLo, hizHi := regmap.SplitMask(^mask)
	seq := []regmap.Reg{
		{Addr: r.TxEnA, Val: enLo},
		{Addr: r.TxEnB, Val: enHi},
		{Addr: r.TxHiZA, Val: hizLo},
		{Addr: r.TxHiZB, Val: hizHi},
		{Addr: r.TxChSrcA, Val: regmap.ChannelSource(cfg.VmonSlot, cfg.ImonSlot)},
		{Addr: r.TxChSrcB, Val: regmap.InterleaveSelect(cfg.Interleave)},
		{Addr: r.SRSetup2, Val: regmap.SampleRateSetup2(cfg.Interleave)},
		{Addr: r.MonomixA, Val: regmap.MonomixA(cfg.RightChannel)},
		{Addr: r.MonomixB, Val: 1},
		{Addr: r.GlobalShdn, Val: 1},
	}
	for _, reg := range seq {
		if err := d.bus.Write(reg.Addr, reg.Val); err != nil {
			return err
		}
	}

	time.Sleep(d.settle)
	if err := d.bus.Write(r.AmpEn, 1); err != nil {
		return err
	}
	d.setPower(true)
	return nil
}

// Channel resolves the slot configuration for the identified instance from
// firmware properties, falling back to the UID defaults.
func (d *Device) Channel() channel.Config {
	return channel.Assign(d.uid, d.right, d.overrides())
}

// overrides reads the firmware slot properties. Each failure is logged and
// leaves that value unresolved; channel.Assign discards partial sets.
func (d *Device) overrides() channel.Overrides {
	var o channel.Overrides
	props := []struct {
		name string
		dst  *channel.Optional
	}{
		{firmware.PropInterleave, &o.Interleave},
		{firmware.PropVmonSlot, &o.Vmon},
		{firmware.PropImonSlot, &o.Imon},
	}
	for _, p := range props {
		v, err := firmware.Property(d.props, p.name)
		if err != nil {
			d.log.Warn("codec: property unavailable, using defaults", "uid", d.uid, "property", p.name, "err", err)
			continue
		}
		*p.dst = channel.Some(v)
	}
	return o
}

func (d *Device) teardown() error {
	defer func() {
		d.cycled = d.identified
		d.setPower(false)
	}()
	if d.bus == nil {
		return nil
	}
	v, ok := regmap.Lookup(d.model)
	if !ok {
		return nil
	}
	return d.bus.Write(v.Regs.SoftReset, 1)
}

func (d *Device) setPower(on bool) {
	d.poweredOn = on
	if d.obs != nil {
		d.obs.ObservePower(d.uid, on)
	}
}

// DumpRegisters reads back addrs (regmap.DumpAddrs when nil) for
// diagnostics. It stops at the first failing read and returns what it has.
func (d *Device) DumpRegisters(addrs []uint16) ([]regmap.Reg, error) {
	if d.bus == nil {
		return nil, models.InvalidDeviceState("dump registers")
	}
	if addrs == nil {
		addrs = regmap.DumpAddrs
	}
	out := make([]regmap.Reg, 0, len(addrs))
	for _, a := range addrs {
		v, err := d.bus.Read(a)
		if err != nil {
			return out, err
		}
		out = append(out, regmap.Reg{Addr: a, Val: v})
	}
	return out, nil
}
