// Package zeroconf advertises the gmaxd metrics exporter over mDNS/DNS-SD so
// Prometheus service discovery can find it on the LAN.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD type conventionally used for Prometheus exporters.
const ServiceType = "_prometheus-http._tcp"

// Service manages mDNS service registration.
type Service struct {
	name string // instance name, e.g. "gmaxd-uid1"
	port int
	txt  []string
	log  *slog.Logger
}

// New creates a Service that will advertise the exporter on port.
func New(name string, port int, txt []string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		name: name,
		port: port,
		txt:  append([]string{"path=/metrics"}, txt...),
		log:  log,
	}
}

// TXT returns the TXT records that will be published.
func (s *Service) TXT() []string {
	return append([]string(nil), s.txt...)
}

// Start registers the mDNS service and blocks until ctx is cancelled, at which
// point it shuts down the server cleanly.
func (s *Service) Start(ctx context.Context) error {
	server, err := zeroconf.Register(
		s.name,      // instance name
		ServiceType, // service type
		"local.",    // domain
		s.port,      // port
		s.txt,       // TXT records
		nil,         // ifaces: nil means all interfaces
	)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	s.log.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"type", ServiceType,
		"port", s.port,
	)

	<-ctx.Done()

	server.Shutdown()
	s.log.Info("zeroconf: mDNS service unregistered", "name", s.name)
	return nil
}
