package endpoint

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/micro-nova/gmaxd/internal/events"
)

// D-Bus names used to mirror endpoint envelopes between processes.
const (
	BridgeInterface = "com.micronova.Gmax1.Endpoint"
	BridgeMember    = "Request"
	BridgePath      = dbus.ObjectPath("/com/micronova/Gmax1/Endpoint")

	remotePrefix = "dbus:"
)

// signalConn is the subset of *dbus.Conn the bridge needs.
type signalConn interface {
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
	Names() []string
}

// DBusBridge forwards local envelopes as D-Bus signals and publishes
// received signals on the local bus. Remote envelopes carry the sender's
// unique bus name as their origin and are never echoed back.
type DBusBridge struct {
	conn signalConn
	bus  *events.Bus
	id   string
	log  *slog.Logger
}

// NewDBusBridge bridges bus over conn.
func NewDBusBridge(conn signalConn, bus *events.Bus, log *slog.Logger) *DBusBridge {
	if log == nil {
		log = slog.Default()
	}
	return &DBusBridge{conn: conn, bus: bus, id: "bridge-" + uuid.NewString(), log: log}
}

// Run forwards in both directions until ctx is cancelled.
func (b *DBusBridge) Run(ctx context.Context) error {
	match := []dbus.MatchOption{
		dbus.WithMatchInterface(BridgeInterface),
		dbus.WithMatchMember(BridgeMember),
	}
	if err := b.conn.AddMatchSignal(match...); err != nil {
		return fmt.Errorf("endpoint: add match: %w", err)
	}
	defer b.conn.RemoveMatchSignal(match...)

	sigs := make(chan *dbus.Signal, 16)
	b.conn.Signal(sigs)
	defer b.conn.RemoveSignal(sigs)

	sub := b.bus.Subscribe(b.id)
	defer b.bus.Unsubscribe(b.id)

	b.log.Info("endpoint: d-bus bridge started", "interface", BridgeInterface)
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-sigs:
			if !ok {
				return fmt.Errorf("endpoint: d-bus signal channel closed")
			}
			b.receive(sig)
		case env, ok := <-sub:
			if !ok {
				return nil
			}
			b.send(env)
		}
	}
}

func (b *DBusBridge) self() string {
	if names := b.conn.Names(); len(names) > 0 {
		return names[0]
	}
	return ""
}

func (b *DBusBridge) receive(sig *dbus.Signal) {
	if sig == nil || sig.Name != BridgeInterface+"."+BridgeMember {
		return
	}
	if sig.Sender != "" && sig.Sender == b.self() {
		return
	}
	env, err := DecodeSignal(sig)
	if err != nil {
		b.log.Debug("endpoint: dropping malformed signal", "sender", sig.Sender, "err", err)
		return
	}
	b.bus.Publish(env)
}

func (b *DBusBridge) send(env events.Envelope) {
	if strings.HasPrefix(env.From, remotePrefix) {
		return
	}
	err := b.conn.Emit(BridgePath, BridgeInterface+"."+BridgeMember, uint32(env.Endpoint), uint32(env.Request))
	if err != nil {
		b.log.Warn("endpoint: emit failed", "err", err)
	}
}

// DecodeSignal turns a Request signal body (endpoint type, request) into an
// envelope stamped with the remote sender.
func DecodeSignal(sig *dbus.Signal) (events.Envelope, error) {
	if len(sig.Body) != 2 {
		return events.Envelope{}, fmt.Errorf("endpoint: signal body has %d values, want 2", len(sig.Body))
	}
	ep, ok := sig.Body[0].(uint32)
	if !ok {
		return events.Envelope{}, fmt.Errorf("endpoint: endpoint type is %T, want uint32", sig.Body[0])
	}
	req, ok := sig.Body[1].(uint32)
	if !ok {
		return events.Envelope{}, fmt.Errorf("endpoint: request is %T, want uint32", sig.Body[1])
	}
	return events.Envelope{
		From:     remotePrefix + sig.Sender,
		Endpoint: events.EndpointType(ep),
		Request:  events.Request(req),
	}, nil
}
