package hardware

import (
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

// DriversTransport adapts a tinygo drivers.I2C bus to Transport.
type DriversTransport struct {
	bus    drivers.I2C
	addr   uint16
	closer func() error
}

// NewDriversTransport binds addr on bus. Close is a no-op; the bus is owned by the caller.
func NewDriversTransport(bus drivers.I2C, addr uint16) *DriversTransport {
	return &DriversTransport{bus: bus, addr: addr}
}

// OpenDrivers opens a host bus the way OpenPeriph does and reaches addr
// through the drivers.I2C interface. Close closes the bus.
func OpenDrivers(name string, addr uint16, speed physic.Frequency) (*DriversTransport, error) {
	bus, err := openPeriphBus(name, speed)
	if err != nil {
		return nil, err
	}
	return &DriversTransport{bus: NewPeriphDriversBus(bus), addr: addr, closer: bus.Close}, nil
}

func (t *DriversTransport) Tx(w, r []byte) error { return t.bus.Tx(t.addr, w, r) }

func (t *DriversTransport) Write(b []byte) error { return t.bus.Tx(t.addr, b, nil) }

func (t *DriversTransport) Close() error {
	if t.closer == nil {
		return nil
	}
	err := t.closer()
	t.closer = nil
	return err
}

// periphDriversBus presents a periph.io bus as a drivers.I2C.
type periphDriversBus struct {
	bus i2c.Bus
}

// NewPeriphDriversBus wraps bus so tinygo drivers can use it on a Linux host.
func NewPeriphDriversBus(bus i2c.Bus) drivers.I2C {
	return periphDriversBus{bus: bus}
}

func (b periphDriversBus) Tx(addr uint16, w, r []byte) error {
	return b.bus.Tx(addr, w, r)
}

// ReadRegister reads len(buf) bytes starting at the 8-bit register reg.
func (b periphDriversBus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.bus.Tx(uint16(addr), []byte{reg}, buf)
}

// WriteRegister writes buf starting at the 8-bit register reg.
func (b periphDriversBus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	return b.bus.Tx(uint16(addr), append([]byte{reg}, buf...), nil)
}
