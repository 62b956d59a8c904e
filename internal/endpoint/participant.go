// Package endpoint connects a codec instance to the audio endpoint bus: it
// announces the speaker endpoint, re-announces when the DSP registers, and
// holds a power keep-alive between speaker start and stop requests.
package endpoint

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/micro-nova/gmaxd/internal/events"
)

// Participant is one speaker endpoint on the bus. It is not safe for
// concurrent use; the owning device goroutine drives it.
type Participant struct {
	id   string
	bus  *events.Bus
	keep KeepAlive
	log  *slog.Logger

	sub  <-chan events.Envelope
	held bool
}

// NewParticipant returns an unregistered participant with a fresh id.
// A nil keep uses Nop.
func NewParticipant(bus *events.Bus, keep KeepAlive, log *slog.Logger) *Participant {
	if keep == nil {
		keep = Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Participant{
		id:   "gmax-" + uuid.NewString(),
		bus:  bus,
		keep: keep,
		log:  log,
	}
}

// ID is the sender id stamped on this participant's envelopes.
func (p *Participant) ID() string { return p.id }

// Register subscribes to the bus and announces the speaker endpoint.
func (p *Participant) Register() {
	if p.sub == nil {
		p.sub = p.bus.Subscribe(p.id)
	}
	p.Announce()
}

// Announce publishes the speaker endpoint registration.
func (p *Participant) Announce() {
	p.bus.Publish(events.Envelope{
		From:     p.id,
		Endpoint: events.EndpointSpeaker,
		Request:  events.RequestRegister,
	})
}

// Events is the subscription channel, or nil before Register.
func (p *Participant) Events() <-chan events.Envelope { return p.sub }

// Registered reports whether the participant is subscribed.
func (p *Participant) Registered() bool { return p.sub != nil }

// Held reports whether the keep-alive is currently taken.
func (p *Participant) Held() bool { return p.held }

// Handle reacts to one envelope. Envelopes this participant sent are ignored.
func (p *Participant) Handle(env events.Envelope) {
	if env.From == p.id {
		return
	}
	if env.Endpoint == events.EndpointDSP && env.Request == events.RequestRegister {
		p.log.Debug("endpoint: dsp registered, re-announcing", "from", env.From)
		p.Announce()
		return
	}
	if env.Endpoint != events.EndpointSpeaker {
		return
	}
	switch env.Request {
	case events.RequestStart:
		if p.held {
			return
		}
		if err := p.keep.Acquire(); err != nil {
			p.log.Warn("endpoint: keep-alive acquire failed", "err", err)
			return
		}
		p.held = true
	case events.RequestStop:
		p.release()
	}
}

func (p *Participant) release() {
	if !p.held {
		return
	}
	if err := p.keep.Release(); err != nil {
		p.log.Warn("endpoint: keep-alive release failed", "err", err)
	}
	p.held = false
}

// Unregister drops the keep-alive if held and unsubscribes.
func (p *Participant) Unregister() {
	p.release()
	if p.sub != nil {
		p.bus.Unsubscribe(p.id)
		p.sub = nil
	}
}
