// Package hardware provides the bus transaction layer for the amplifier and
// the transports it runs on. It defines the Transport interface implemented
// by the periph.io, raw I2C_RDWR, UART bridge and mock transports, and the Bus
// type that frames 16-bit register addresses on top of any of them.
package hardware

import (
	"fmt"
	"log/slog"

	"github.com/micro-nova/gmaxd/internal/models"
)

// Transport performs raw transfers to a single bus device.
// Implementations are synchronous and do not retry.
type Transport interface {
	// Tx writes w then reads len(r) bytes in one combined transaction.
	Tx(w, r []byte) error

	// Write writes b as a single transaction.
	Write(b []byte) error

	// Close releases the underlying bus handle.
	Close() error
}

// Op names a bus transaction kind.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// BusObserver is told about every completed transaction.
type BusObserver interface {
	ObserveTransaction(op Op, addr uint16, err error)
}

// Bus issues 16-bit addressed, 8-bit valued register transactions.
// A Bus is not safe for concurrent use; callers serialize access per device.
type Bus struct {
	t     Transport
	log   *slog.Logger
	trace bool
	obs   BusObserver
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used for tracing. nil keeps slog.Default().
func WithLogger(l *slog.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.log = l
		}
	}
}

// WithTrace logs every transaction at debug level.
func WithTrace(on bool) BusOption {
	return func(b *Bus) { b.trace = on }
}

// WithObserver registers an observer for completed transactions.
func WithObserver(o BusObserver) BusOption {
	return func(b *Bus) { b.obs = o }
}

// NewBus wraps t. The Bus takes ownership of t; Close releases it.
func NewBus(t Transport, opts ...BusOption) *Bus {
	b := &Bus{t: t, log: slog.Default()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Read reads one register: a 2-byte big-endian address frame followed by a 1-byte read.
func (b *Bus) Read(addr uint16) (uint8, error) {
	w := [2]byte{byte(addr >> 8), byte(addr)}
	var r [1]byte
	err := b.t.Tx(w[:], r[:])
	b.done(OpRead, addr, r[0], err)
	if err != nil {
		return 0, models.BusError(string(OpRead), addr, err)
	}
	return r[0], nil
}

// Write writes one register as a 3-byte frame: address high, address low, value.
func (b *Bus) Write(addr uint16, val uint8) error {
	w := [3]byte{byte(addr >> 8), byte(addr), val}
	err := b.t.Write(w[:])
	b.done(OpWrite, addr, val, err)
	if err != nil {
		return models.BusError(string(OpWrite), addr, err)
	}
	return nil
}

// Update performs a read-modify-write of the bits selected by mask.
// The register is written back only when the value actually changes.
func (b *Bus) Update(addr uint16, mask, val uint8) error {
	cur, err := b.Read(addr)
	if err != nil {
		return err
	}
	next := cur&^mask | val&mask
	if next == cur {
		return nil
	}
	return b.Write(addr, next)
}

// Close releases the transport.
func (b *Bus) Close() error {
	return b.t.Close()
}

func (b *Bus) done(op Op, addr uint16, val uint8, err error) {
	if b.obs != nil {
		b.obs.ObserveTransaction(op, addr, err)
	}
	if !b.trace {
		return
	}
	if err != nil {
		b.log.Debug("bus: transaction failed", "op", op, "addr", fmt.Sprintf("0x%04x", addr), "err", err)
		return
	}
	b.log.Debug("bus: transaction", "op", op, "addr", fmt.Sprintf("0x%04x", addr), "val", fmt.Sprintf("0x%02x", val))
}
