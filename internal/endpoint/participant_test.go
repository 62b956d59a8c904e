package endpoint_test

import (
	"errors"
	"testing"
	"time"

	"github.com/micro-nova/gmaxd/internal/endpoint"
	"github.com/micro-nova/gmaxd/internal/events"
)

type countingKeepAlive struct {
	acquired, released int
	failAcquire        bool
}

func (k *countingKeepAlive) Acquire() error {
	if k.failAcquire {
		return errors.New("denied")
	}
	k.acquired++
	return nil
}

func (k *countingKeepAlive) Release() error {
	k.released++
	return nil
}

func recv(t *testing.T, ch <-chan events.Envelope) events.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for envelope")
		return events.Envelope{}
	}
}

func TestRegisterAnnounces(t *testing.T) {
	bus := events.NewBus()
	dsp := bus.Subscribe("dsp")
	p := endpoint.NewParticipant(bus, nil, nil)

	p.Register()
	if !p.Registered() || p.Events() == nil {
		t.Fatal("participant not subscribed after Register")
	}
	got := recv(t, dsp)
	want := events.Envelope{From: p.ID(), Endpoint: events.EndpointSpeaker, Request: events.RequestRegister}
	if got != want {
		t.Errorf("announcement = %+v, want %+v", got, want)
	}
	// The participant sees its own announcement and ignores it.
	own := recv(t, p.Events())
	p.Handle(own)
	select {
	case env := <-dsp:
		t.Errorf("unexpected envelope after handling own announcement: %+v", env)
	default:
	}
}

func TestDSPRegisterTriggersReannounce(t *testing.T) {
	bus := events.NewBus()
	dsp := bus.Subscribe("dsp")
	p := endpoint.NewParticipant(bus, nil, nil)

	p.Handle(events.Envelope{From: "dsp", Endpoint: events.EndpointDSP, Request: events.RequestRegister})
	got := recv(t, dsp)
	if got.From != p.ID() || got.Request != events.RequestRegister || got.Endpoint != events.EndpointSpeaker {
		t.Errorf("re-announcement = %+v", got)
	}
}

func TestStartStopIsIdempotent(t *testing.T) {
	keep := &countingKeepAlive{}
	p := endpoint.NewParticipant(events.NewBus(), keep, nil)
	start := events.Envelope{From: "dsp", Endpoint: events.EndpointSpeaker, Request: events.RequestStart}
	stop := events.Envelope{From: "dsp", Endpoint: events.EndpointSpeaker, Request: events.RequestStop}

	p.Handle(stop)
	p.Handle(start)
	p.Handle(start)
	if keep.acquired != 1 || !p.Held() {
		t.Errorf("after two starts: acquired=%d held=%v, want 1 true", keep.acquired, p.Held())
	}
	p.Handle(stop)
	p.Handle(stop)
	if keep.released != 1 || p.Held() {
		t.Errorf("after two stops: released=%d held=%v, want 1 false", keep.released, p.Held())
	}
}

func TestOtherEndpointsIgnored(t *testing.T) {
	keep := &countingKeepAlive{}
	p := endpoint.NewParticipant(events.NewBus(), keep, nil)
	for _, ep := range []events.EndpointType{events.EndpointHeadphone, events.EndpointMicrophone, events.EndpointDSP} {
		p.Handle(events.Envelope{From: "dsp", Endpoint: ep, Request: events.RequestStart})
	}
	if keep.acquired != 0 {
		t.Errorf("acquired = %d for non-speaker requests, want 0", keep.acquired)
	}
}

func TestOwnStartIgnored(t *testing.T) {
	keep := &countingKeepAlive{}
	p := endpoint.NewParticipant(events.NewBus(), keep, nil)
	p.Handle(events.Envelope{From: p.ID(), Endpoint: events.EndpointSpeaker, Request: events.RequestStart})
	if keep.acquired != 0 {
		t.Error("participant reacted to its own envelope")
	}
}

func TestAcquireFailureLeavesNotHeld(t *testing.T) {
	keep := &countingKeepAlive{failAcquire: true}
	p := endpoint.NewParticipant(events.NewBus(), keep, nil)
	p.Handle(events.Envelope{From: "dsp", Endpoint: events.EndpointSpeaker, Request: events.RequestStart})
	if p.Held() {
		t.Error("held after failed acquire")
	}
}

func TestUnregisterReleases(t *testing.T) {
	bus := events.NewBus()
	keep := &countingKeepAlive{}
	p := endpoint.NewParticipant(bus, keep, nil)
	p.Register()
	p.Handle(events.Envelope{From: "dsp", Endpoint: events.EndpointSpeaker, Request: events.RequestStart})

	p.Unregister()
	if keep.released != 1 || p.Held() {
		t.Errorf("released=%d held=%v after Unregister", keep.released, p.Held())
	}
	if p.Registered() || bus.SubscriberCount() != 0 {
		t.Errorf("still subscribed after Unregister (subscribers=%d)", bus.SubscriberCount())
	}
	p.Unregister()
}

func TestParticipantIDsUnique(t *testing.T) {
	bus := events.NewBus()
	a := endpoint.NewParticipant(bus, nil, nil)
	b := endpoint.NewParticipant(bus, nil, nil)
	if a.ID() == b.ID() {
		t.Errorf("participant ids collide: %s", a.ID())
	}
}
