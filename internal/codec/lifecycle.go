package codec

import (
	"errors"
	"fmt"

	"github.com/micro-nova/gmaxd/internal/firmware"
	"github.com/micro-nova/gmaxd/internal/hardware"
	"github.com/micro-nova/gmaxd/internal/models"
)

// PrepareHardware opens the bus on the first I2C resource, releases the
// amplifier's shutdown line and resolves the chip model and instance UID.
// Identity is re-queried on every call. On failure the transport opened
// here is closed again.
func (d *Device) PrepareHardware(res []Resource) error {
	err := d.prepare(res)
	d.observe(EventPrepareHardware, err)
	return err
}

func (d *Device) prepare(res []Resource) error {
	var conn *Resource
	for i := range res {
		if res[i].Kind == ResourceI2C {
			conn = &res[i]
			break
		}
	}
	if conn == nil {
		return models.NotFound("prepare hardware: i2c connection")
	}

	d.identified = false
	if d.bus != nil {
		if err := d.bus.Close(); err != nil {
			d.log.Warn("codec: closing previous bus", "err", err)
		}
		d.bus = nil
	}
	if d.poweredOn {
		d.setPower(false)
	}

	t, err := d.opener.Open(*conn)
	if err != nil {
		return models.BusError("open", conn.Addr, fmt.Errorf("codec: open %s: %w", conn.Bus, err))
	}
	bus := hardware.NewBus(t,
		hardware.WithLogger(d.log),
		hardware.WithTrace(d.trace),
		hardware.WithObserver(d.busObs),
	)

	if err := d.identify(); err != nil {
		if cerr := bus.Close(); cerr != nil {
			d.log.Warn("codec: closing bus after failed prepare", "err", cerr)
		}
		return err
	}
	d.bus = bus
	d.log.Info("codec: identified", "model", d.model, "uid", d.uid, "bus", conn.Bus, "addr", fmt.Sprintf("0x%02x", conn.Addr))
	return nil
}

func (d *Device) identify() error {
	if err := d.shutdown.Release(); err != nil {
		return err
	}
	model, err := firmware.ResolveModel(d.fw)
	if err != nil {
		return err
	}
	var uid uint32
	if err := firmware.ResolveUID(d.fw, &uid); err != nil {
		return err
	}
	d.model, d.uid, d.identified = model, uid, true
	return nil
}

// SelfManagedInit registers the speaker endpoint on the endpoint bus.
func (d *Device) SelfManagedInit() error {
	var err error
	if !d.identified {
		err = models.InvalidDeviceState("self-managed init")
	} else {
		d.ep.Register()
	}
	d.observe(EventSelfManagedInit, err)
	return err
}

// D0Entry runs the bring-up sequence. Any bus failure aborts it and leaves
// the device powered off; the chip keeps whatever was already written.
func (d *Device) D0Entry() error {
	err := d.bringUp()
	d.observe(EventD0Entry, err)
	if err != nil {
		d.log.Error("codec: bring-up failed", "uid", d.uid, "err", err)
	}
	return err
}

// D0Exit soft-resets the chip. It always leaves the device powered off and
// always returns nil; a failed reset is only logged.
func (d *Device) D0Exit() error {
	err := d.teardown()
	d.observe(EventD0Exit, err)
	if err != nil {
		d.log.Warn("codec: teardown reset failed", "uid", d.uid, "err", err)
	}
	return nil
}

// ReleaseHardware unregisters the endpoint, closes the bus and asserts the
// shutdown line. The resolved identity is kept until the next prepare.
func (d *Device) ReleaseHardware() error {
	d.ep.Unregister()
	var errs []error
	if d.bus != nil {
		errs = append(errs, d.bus.Close())
		d.bus = nil
	}
	if d.poweredOn {
		d.setPower(false)
	}
	errs = append(errs, d.shutdown.Assert())
	err := errors.Join(errs...)
	d.observe(EventReleaseHardware, err)
	return err
}
