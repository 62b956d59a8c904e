// Package codec holds the per-attachment device record of a MAX98512 class
// amplifier and drives it through the host lifecycle: hardware prepare,
// self-managed init, D0 entry (bring-up), D0 exit (teardown) and release.
//
// A Device holds no locks. Lifecycle calls and endpoint handling for one
// device must be serialized by the caller.
package codec

import (
	"log/slog"
	"time"

	"github.com/micro-nova/gmaxd/internal/channel"
	"github.com/micro-nova/gmaxd/internal/endpoint"
	"github.com/micro-nova/gmaxd/internal/events"
	"github.com/micro-nova/gmaxd/internal/firmware"
	"github.com/micro-nova/gmaxd/internal/hardware"
	"github.com/micro-nova/gmaxd/internal/regmap"
)

// DefaultSettleDelay is the wait between leaving global shutdown and
// enabling the amplifier output.
const DefaultSettleDelay = 20 * time.Microsecond

// State is the device's position in the bring-up state machine.
type State int

const (
	Uninitialized State = iota
	Identified
	PoweredOn
	PoweredOff
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Identified:
		return "identified"
	case PoweredOn:
		return "powered-on"
	case PoweredOff:
		return "powered-off"
	default:
		return "unknown"
	}
}

// Lifecycle event names reported to an Observer.
const (
	EventPrepareHardware = "prepare_hardware"
	EventSelfManagedInit = "self_managed_init"
	EventD0Entry         = "d0_entry"
	EventD0Exit          = "d0_exit"
	EventReleaseHardware = "release_hardware"
)

// Observer is notified after every lifecycle call.
type Observer interface {
	ObserveLifecycle(event string, err error)
	ObservePower(uid uint32, on bool)
}

// Options configures a Device. The zero value is usable: no firmware
// (identity resolution fails), a private endpoint bus, no keep-alive and no
// shutdown pin. Right should come from channel.RightSpeakerIndex.
type Options struct {
	Logger      *slog.Logger
	TraceBus    bool
	BusObserver hardware.BusObserver
	Observer    Observer

	Firmware   firmware.Evaluator
	Properties firmware.PropertySource

	Right       channel.RightIndex
	SettleDelay time.Duration

	Endpoints *events.Bus
	KeepAlive endpoint.KeepAlive
	Shutdown  *hardware.ShutdownPin
}

// Device is the record for one attached amplifier.
type Device struct {
	opener   Opener
	log      *slog.Logger
	trace    bool
	busObs   hardware.BusObserver
	obs      Observer
	fw       firmware.Evaluator
	props    firmware.PropertySource
	right    channel.RightIndex
	settle   time.Duration
	shutdown *hardware.ShutdownPin
	ep       *endpoint.Participant

	model      regmap.Model
	uid        uint32
	identified bool
	poweredOn  bool
	cycled     bool
	bus        *hardware.Bus
}

// New returns an uninitialized device that opens its bus through opener.
func New(opener Opener, opts Options) *Device {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	bus := opts.Endpoints
	if bus == nil {
		bus = events.NewBus()
	}
	return &Device{
		opener:   opener,
		log:      log,
		trace:    opts.TraceBus,
		busObs:   opts.BusObserver,
		obs:      opts.Observer,
		fw:       opts.Firmware,
		props:    opts.Properties,
		right:    opts.Right,
		settle:   settle,
		shutdown: opts.Shutdown,
		ep:       endpoint.NewParticipant(bus, opts.KeepAlive, log),
	}
}

// State reports the current state.
func (d *Device) State() State {
	switch {
	case !d.identified:
		return Uninitialized
	case d.poweredOn:
		return PoweredOn
	case d.cycled:
		return PoweredOff
	default:
		return Identified
	}
}

// Model is the resolved chip model, or ModelUnknown before identification.
func (d *Device) Model() regmap.Model { return d.model }

// UID is the resolved instance UID.
func (d *Device) UID() uint32 { return d.uid }

// Identified reports whether model and UID have both been resolved.
func (d *Device) Identified() bool { return d.identified }

// PoweredOn reports whether the last bring-up completed.
func (d *Device) PoweredOn() bool { return d.poweredOn }

// Endpoint is the device's endpoint participant.
func (d *Device) Endpoint() *endpoint.Participant { return d.ep }

func (d *Device) observe(event string, err error) {
	if d.obs != nil {
		d.obs.ObserveLifecycle(event, err)
	}
}
