//go:build linux

package hardware

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	i2cRdwrIOCTL = 0x0707 // I2C_RDWR ioctl: combined write+read with repeated start
	i2cMsgRD     = 0x0001 // i2c_msg flag: read direction
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h
type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	_pad   uint16 // struct alignment
	buf    uintptr
}

// i2cRdwr mirrors struct i2c_rdwr_ioctl_data from linux/i2c-dev.h
type i2cRdwr struct {
	msgs  uintptr
	nmsgs uint32
}

// RDWRTransport talks to one device through /dev/i2c-N using I2C_RDWR for
// every transaction, so register reads get the repeated start the codec needs.
type RDWRTransport struct {
	mu   sync.Mutex
	path string
	addr uint16
	fd   int
}

// OpenRDWR opens path (e.g. /dev/i2c-1) for the 7-bit device address addr.
func OpenRDWR(path string, addr uint16) (*RDWRTransport, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", path, err)
	}
	return &RDWRTransport{path: path, addr: addr, fd: fd}, nil
}

func (t *RDWRTransport) Tx(w, r []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fd < 0 {
		return fmt.Errorf("i2c: %s closed", t.path)
	}
	var msgs [2]i2cMsg
	n := 0
	if len(w) > 0 {
		msgs[n] = i2cMsg{addr: t.addr, length: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))}
		n++
	}
	if len(r) > 0 {
		msgs[n] = i2cMsg{addr: t.addr, flags: i2cMsgRD, length: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))}
		n++
	}
	if n == 0 {
		return nil
	}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(n)}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(t.fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr))); errno != 0 {
		return fmt.Errorf("i2c: I2C_RDWR 0x%02x: %w", t.addr, errno)
	}
	return nil
}

func (t *RDWRTransport) Write(b []byte) error {
	return t.Tx(b, nil)
}

// Close releases the file descriptor. Safe to call more than once.
func (t *RDWRTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fd < 0 {
		return nil
	}
	err := unix.Close(t.fd)
	t.fd = -1
	return err
}

func (t *RDWRTransport) String() string {
	return fmt.Sprintf("%s@0x%02x", t.path, t.addr)
}
