package hardware

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SC18IM700 UART-to-I2C bridge commands.
const (
	bridgeStart   = 'S'
	bridgeStop    = 'P'
	bridgeRegRead = 'R'
	bridgeI2CStat = 0x0A

	bridgeStatOK        = 0xF0
	bridgeStatNackAddr  = 0xF1
	bridgeStatNackData  = 0xF2
	bridgeStatTimeout   = 0xF8
	bridgeReadTimeout   = 100 * time.Millisecond
	bridgeDefaultBaud   = 9600
	bridgeMaxPayloadLen = 255
)

var errBridgeTimeout = errors.New("uart: bridge response timeout")

// UARTBridgeTransport reaches an I2C device through an SC18IM700 bridge on a serial port.
type UARTBridgeTransport struct {
	mu   sync.Mutex
	port io.ReadWriteCloser
	name string
	addr uint16
}

// OpenUARTBridge opens the serial device at baud (0 selects the bridge default of 9600).
func OpenUARTBridge(dev string, baud int, addr uint16) (*UARTBridgeTransport, error) {
	if baud <= 0 {
		baud = bridgeDefaultBaud
	}
	port, err := serial.Open(dev, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("uart: open %s: %w", dev, err)
	}
	if err := port.SetReadTimeout(bridgeReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("uart: set read timeout: %w", err)
	}
	return NewUARTBridge(port, dev, addr), nil
}

// NewUARTBridge wraps an already opened port. Reads on port must return
// (0, nil) or an error on timeout rather than block forever.
func NewUARTBridge(port io.ReadWriteCloser, name string, addr uint16) *UARTBridgeTransport {
	return &UARTBridgeTransport{port: port, name: name, addr: addr}
}

func (t *UARTBridgeTransport) Tx(w, r []byte) error {
	if len(w) > bridgeMaxPayloadLen || len(r) > bridgeMaxPayloadLen {
		return fmt.Errorf("uart: transfer too long (w=%d r=%d)", len(w), len(r))
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	frame := make([]byte, 0, len(w)+7)
	if len(w) > 0 {
		frame = append(frame, bridgeStart, byte(t.addr<<1), byte(len(w)))
		frame = append(frame, w...)
	}
	if len(r) > 0 {
		frame = append(frame, bridgeStart, byte(t.addr<<1)|1, byte(len(r)))
	}
	if len(frame) == 0 {
		return nil
	}
	frame = append(frame, bridgeStop)
	if _, err := t.port.Write(frame); err != nil {
		return fmt.Errorf("uart: write %s: %w", t.name, err)
	}
	if len(r) > 0 {
		if err := t.readFull(r); err != nil {
			return err
		}
	}
	return t.status()
}

func (t *UARTBridgeTransport) Write(b []byte) error {
	return t.Tx(b, nil)
}

func (t *UARTBridgeTransport) Close() error {
	return t.port.Close()
}

// status reads the bridge's I2CStat register and maps it to an error.
func (t *UARTBridgeTransport) status() error {
	if _, err := t.port.Write([]byte{bridgeRegRead, bridgeI2CStat, bridgeStop}); err != nil {
		return fmt.Errorf("uart: write %s: %w", t.name, err)
	}
	var st [1]byte
	if err := t.readFull(st[:]); err != nil {
		return err
	}
	switch st[0] {
	case bridgeStatOK:
		return nil
	case bridgeStatNackAddr:
		return fmt.Errorf("uart: 0x%02x: nack on address", t.addr)
	case bridgeStatNackData:
		return fmt.Errorf("uart: 0x%02x: nack on data", t.addr)
	case bridgeStatTimeout:
		return fmt.Errorf("uart: 0x%02x: i2c timeout", t.addr)
	default:
		return fmt.Errorf("uart: 0x%02x: unexpected bridge status 0x%02x", t.addr, st[0])
	}
}

func (t *UARTBridgeTransport) readFull(buf []byte) error {
	for got := 0; got < len(buf); {
		n, err := t.port.Read(buf[got:])
		if err != nil {
			return fmt.Errorf("uart: read %s: %w", t.name, err)
		}
		if n == 0 {
			return errBridgeTimeout
		}
		got += n
	}
	return nil
}
