package endpoint

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
)

// KeepAlive holds the system out of idle power-down while an endpoint is
// streaming. Calls are paired by the participant; implementations need not
// be idempotent.
type KeepAlive interface {
	Acquire() error
	Release() error
}

// Nop is a KeepAlive that does nothing.
type Nop struct{}

func (Nop) Acquire() error { return nil }
func (Nop) Release() error { return nil }

const (
	logindDest    = "org.freedesktop.login1"
	logindPath    = dbus.ObjectPath("/org/freedesktop/login1")
	logindInhibit = "org.freedesktop.login1.Manager.Inhibit"
)

// caller is the subset of dbus.BusObject used to take an inhibitor lock.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Logind takes a systemd-logind "idle" inhibitor lock while acquired.
// The lock lives as long as the returned file descriptor stays open.
type Logind struct {
	mu   sync.Mutex
	obj  caller
	who  string
	why  string
	lock *os.File
	log  *slog.Logger
}

// DialLogind connects to the system bus and returns a keep-alive backed by
// logind. The connection is shared and stays open for the process lifetime.
func DialLogind(who string, log *slog.Logger) (*Logind, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("endpoint: connect system bus: %w", err)
	}
	return NewLogind(conn.Object(logindDest, logindPath), who, log), nil
}

// NewLogind uses obj (the logind manager object) for inhibitor calls.
func NewLogind(obj caller, who string, log *slog.Logger) *Logind {
	if log == nil {
		log = slog.Default()
	}
	return &Logind{obj: obj, who: who, why: "speaker endpoint active", log: log}
}

func (l *Logind) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lock != nil {
		return nil
	}
	var fd dbus.UnixFD
	call := l.obj.Call(logindInhibit, 0, "idle", l.who, l.why, "block")
	if call.Err != nil {
		return fmt.Errorf("endpoint: inhibit idle: %w", call.Err)
	}
	if err := call.Store(&fd); err != nil {
		return fmt.Errorf("endpoint: inhibit idle: %w", err)
	}
	l.lock = os.NewFile(uintptr(fd), "logind-inhibit")
	l.log.Debug("endpoint: idle inhibitor taken", "who", l.who)
	return nil
}

func (l *Logind) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lock == nil {
		return nil
	}
	err := l.lock.Close()
	l.lock = nil
	if err != nil {
		return fmt.Errorf("endpoint: release inhibitor: %w", err)
	}
	l.log.Debug("endpoint: idle inhibitor released", "who", l.who)
	return nil
}

// Held reports whether an inhibitor lock is currently open.
func (l *Logind) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lock != nil
}
