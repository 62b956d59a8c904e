//go:build !linux

package hardware

import "errors"

// RDWRTransport is only available on Linux.
type RDWRTransport struct{ Transport }

// OpenRDWR always fails outside Linux.
func OpenRDWR(path string, addr uint16) (*RDWRTransport, error) {
	return nil, errors.New("i2c: I2C_RDWR is only supported on linux")
}
