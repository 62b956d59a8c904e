// Package models holds the error taxonomy shared by the codec packages.
package models

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Kind classifies a codec failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBus                  // transport-level failure (timeout, NACK, disconnect)
	KindIdentityUnavailable  // firmware identity query missing or malformed
	KindUnrecognizedDevice   // hardware ID does not match a known chip model
	KindInvalidArgument      // caller supplied no destination or a bad value
	KindPropertyUnavailable  // named firmware property absent or malformed (soft-fail)
	KindInvalidDeviceState   // operation attempted before identity resolution
	KindNotFound             // required platform resource missing
)

func (k Kind) String() string {
	switch k {
	case KindBus:
		return "bus error"
	case KindIdentityUnavailable:
		return "identity unavailable"
	case KindUnrecognizedDevice:
		return "unrecognized device"
	case KindInvalidArgument:
		return "invalid argument"
	case KindPropertyUnavailable:
		return "property unavailable"
	case KindInvalidDeviceState:
		return "invalid device state"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Error is a structured codec error. Addr is only meaningful for bus errors.
type Error struct {
	Kind Kind
	Op   string
	Addr uint16
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		if e.Kind == KindBus {
			msg = fmt.Sprintf("%s 0x%04x: %s", e.Op, e.Addr, msg)
		} else {
			msg = e.Op + ": " + msg
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrBus                 = &Error{Kind: KindBus}
	ErrIdentityUnavailable = &Error{Kind: KindIdentityUnavailable}
	ErrUnrecognizedDevice  = &Error{Kind: KindUnrecognizedDevice}
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
	ErrPropertyUnavailable = &Error{Kind: KindPropertyUnavailable}
	ErrInvalidDeviceState  = &Error{Kind: KindInvalidDeviceState}
	ErrNotFound            = &Error{Kind: KindNotFound}
)

// Error constructors.
var (
	BusError = func(op string, addr uint16, err error) *Error {
		return &Error{Kind: KindBus, Op: op, Addr: addr, Err: err}
	}
	IdentityUnavailable = func(op string, err error) *Error {
		return &Error{Kind: KindIdentityUnavailable, Op: op, Err: err}
	}
	UnrecognizedDevice = func(hid string) *Error {
		return &Error{Kind: KindUnrecognizedDevice, Op: "resolve model", Err: fmt.Errorf("hardware id %q", hid)}
	}
	InvalidArgument = func(op string) *Error {
		return &Error{Kind: KindInvalidArgument, Op: op}
	}
	PropertyUnavailable = func(name string, err error) *Error {
		return &Error{Kind: KindPropertyUnavailable, Op: "property " + name, Err: err}
	}
	InvalidDeviceState = func(op string) *Error {
		return &Error{Kind: KindInvalidDeviceState, Op: op}
	}
	NotFound = func(op string) *Error {
		return &Error{Kind: KindNotFound, Op: op}
	}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Status translates err into the generic status reported to the host. nil maps to 0.
func Status(err error) unix.Errno {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindBus:
		return unix.EIO
	case KindIdentityUnavailable:
		return unix.ENXIO
	case KindUnrecognizedDevice:
		return unix.ENODEV
	case KindInvalidArgument:
		return unix.EINVAL
	case KindPropertyUnavailable, KindNotFound:
		return unix.ENOENT
	case KindInvalidDeviceState:
		return unix.EBUSY
	default:
		return unix.EIO
	}
}
