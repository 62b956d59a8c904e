package hardware

import (
	"fmt"
	"sync"
)

// Transaction is one register access recorded by Mock.
type Transaction struct {
	Op   Op
	Addr uint16
	Val  uint8
}

// Mock is a thread-safe in-memory register file speaking the codec's
// 16-bit-address framing, for tests and --mock runs.
type Mock struct {
	mu        sync.Mutex
	regs      map[uint16]uint8
	log       []Transaction
	failWrite bool
	failRead  bool
	failAt    map[uint16]Op
	closed    bool
}

// NewMock creates a mock with all registers reading zero.
func NewMock() *Mock {
	return &Mock{
		regs:   make(map[uint16]uint8),
		failAt: make(map[uint16]Op),
	}
}

// SetFailWrite configures the mock to fail all write operations.
func (m *Mock) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// SetFailRead configures the mock to fail all read operations.
func (m *Mock) SetFailRead(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead = fail
}

// FailAt makes op on addr fail until cleared with ClearFailAt.
func (m *Mock) FailAt(addr uint16, op Op) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAt[addr] = op
}

// ClearFailAt removes a FailAt rule.
func (m *Mock) ClearFailAt(addr uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failAt, addr)
}

// SetReg presets a register value without logging a transaction.
func (m *Mock) SetReg(addr uint16, val uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[addr] = val
}

// GetReg returns a register value for testing purposes.
func (m *Mock) GetReg(addr uint16) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[addr]
}

// Log returns a copy of the successful transactions in issue order.
func (m *Mock) Log() []Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transaction, len(m.log))
	copy(out, m.log)
	return out
}

// Writes returns only the successful writes, in issue order.
func (m *Mock) Writes() []Transaction {
	var out []Transaction
	for _, tr := range m.Log() {
		if tr.Op == OpWrite {
			out = append(out, tr)
		}
	}
	return out
}

// ResetLog clears the transaction log.
func (m *Mock) ResetLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = nil
}

// Closed reports whether Close has been called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mock) Tx(w, r []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrHardware("mock: transport closed")
	}
	if len(w) != 2 || len(r) != 1 {
		return ErrHardware(fmt.Sprintf("mock: unsupported transfer w=%d r=%d", len(w), len(r)))
	}
	addr := uint16(w[0])<<8 | uint16(w[1])
	if m.failRead || m.failAt[addr] == OpRead {
		return ErrHardware("mock: read failure configured")
	}
	r[0] = m.regs[addr]
	m.log = append(m.log, Transaction{Op: OpRead, Addr: addr, Val: r[0]})
	return nil
}

func (m *Mock) Write(b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrHardware("mock: transport closed")
	}
	if len(b) != 3 {
		return ErrHardware(fmt.Sprintf("mock: unsupported write length %d", len(b)))
	}
	addr := uint16(b[0])<<8 | uint16(b[1])
	if m.failWrite || m.failAt[addr] == OpWrite {
		return ErrHardware("mock: write failure configured")
	}
	m.regs[addr] = b[2]
	m.log = append(m.log, Transaction{Op: OpWrite, Addr: addr, Val: b[2]})
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// HardwareError is returned when a mock transfer fails.
type HardwareError struct {
	msg string
}

func (e HardwareError) Error() string { return e.msg }

// ErrHardware creates a new hardware error.
func ErrHardware(msg string) error { return HardwareError{msg: msg} }
