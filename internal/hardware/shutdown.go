package hardware

import (
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// shutdownRelease is how long the amplifier needs after its shutdown line is
// released before it answers on the bus.
const shutdownRelease = time.Millisecond

// ShutdownPin drives an amplifier's active-low shutdown (SDZ) line.
// A nil *ShutdownPin is valid and does nothing, for boards without the line.
type ShutdownPin struct {
	pin gpio.PinOut
	log *slog.Logger
}

// OpenShutdownPin looks up the named GPIO (e.g. "GPIO17") after initializing
// the periph host drivers. An empty name returns a nil pin.
func OpenShutdownPin(name string, log *slog.Logger) (*ShutdownPin, error) {
	if name == "" {
		return nil, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio: host init failed: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio: failed to open %s (SDZ)", name)
	}
	return NewShutdownPin(p, log), nil
}

// NewShutdownPin wraps an already resolved pin.
func NewShutdownPin(p gpio.PinOut, log *slog.Logger) *ShutdownPin {
	if log == nil {
		log = slog.Default()
	}
	return &ShutdownPin{pin: p, log: log}
}

// Release drives SDZ high so the amplifier leaves hardware shutdown, then
// waits for it to come up.
func (s *ShutdownPin) Release() error {
	if s == nil {
		return nil
	}
	if err := s.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("gpio: failed to release SDZ: %w", err)
	}
	time.Sleep(shutdownRelease)
	s.log.Debug("gpio: amplifier shutdown released", "pin", s.pin.Name())
	return nil
}

// Assert drives SDZ low, putting the amplifier in hardware shutdown.
func (s *ShutdownPin) Assert() error {
	if s == nil {
		return nil
	}
	if err := s.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("gpio: failed to assert SDZ: %w", err)
	}
	s.log.Debug("gpio: amplifier shutdown asserted", "pin", s.pin.Name())
	return nil
}
