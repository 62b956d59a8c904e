package codec

import "github.com/micro-nova/gmaxd/internal/hardware"

// ResourceKind classifies a hardware resource assigned to the device.
type ResourceKind int

const (
	ResourceI2C ResourceKind = iota
	ResourceGPIO
	ResourceInterrupt
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceI2C:
		return "i2c"
	case ResourceGPIO:
		return "gpio"
	case ResourceInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// Resource is one hardware resource. For I2C connections Bus names the
// controller (a periph bus name, /dev/i2c-N or a serial port) and Addr is
// the 7-bit target address.
type Resource struct {
	Kind ResourceKind
	Bus  string
	Addr uint16
}

// Opener opens the bus transport for an I2C connection resource.
type Opener interface {
	Open(r Resource) (hardware.Transport, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(r Resource) (hardware.Transport, error)

func (f OpenerFunc) Open(r Resource) (hardware.Transport, error) { return f(r) }
