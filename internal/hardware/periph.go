package hardware

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// PeriphTransport adapts a periph.io I2C bus to Transport.
type PeriphTransport struct {
	dev    i2c.Dev
	closer func() error
}

// NewPeriph binds addr on an already opened bus. Close does not close bus.
func NewPeriph(bus i2c.Bus, addr uint16) *PeriphTransport {
	return &PeriphTransport{dev: i2c.Dev{Bus: bus, Addr: addr}}
}

// OpenPeriph initializes the periph host drivers, opens the named bus ("" for
// the first available) and binds addr. A zero speed keeps the bus default.
func OpenPeriph(name string, addr uint16, speed physic.Frequency) (*PeriphTransport, error) {
	bus, err := openPeriphBus(name, speed)
	if err != nil {
		return nil, err
	}
	return &PeriphTransport{dev: i2c.Dev{Bus: bus, Addr: addr}, closer: bus.Close}, nil
}

func openPeriphBus(name string, speed physic.Frequency) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2c: host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c: open bus %q: %w", name, err)
	}
	if speed > 0 {
		if err := bus.SetSpeed(speed); err != nil {
			bus.Close()
			return nil, fmt.Errorf("i2c: set speed %s: %w", speed, err)
		}
	}
	return bus, nil
}

func (t *PeriphTransport) Tx(w, r []byte) error {
	return t.dev.Tx(w, r)
}

func (t *PeriphTransport) Write(b []byte) error {
	return t.dev.Tx(b, nil)
}

func (t *PeriphTransport) Close() error {
	if t.closer == nil {
		return nil
	}
	err := t.closer()
	t.closer = nil
	return err
}

func (t *PeriphTransport) String() string {
	return t.dev.String()
}
