package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = time.Second

// DeviceStatus is the read-only device summary served on /healthz.
type DeviceStatus struct {
	Attached  bool   `json:"attached"`
	Model     string `json:"model,omitempty"`
	UID       uint32 `json:"uid"`
	State     string `json:"state"`
	PoweredOn bool   `json:"powered_on"`
}

// StatusFunc reports the current device status. It must be safe to call
// from HTTP handler goroutines.
type StatusFunc func() DeviceStatus

// NewRouter returns the exporter's HTTP handler.
func NewRouter(g prometheus.Gatherer, status StatusFunc) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		st := DeviceStatus{State: "detached"}
		if status != nil {
			st = status()
		}
		writeJSON(w, http.StatusOK, st)
	})
	return r
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Exporter serves the router on a TCP listener.
type Exporter struct {
	srv *http.Server
	ln  net.Listener
	log *slog.Logger
}

// Listen binds addr. Use Port to learn the chosen port when addr ends in ":0".
func Listen(addr string, h http.Handler, log *slog.Logger) (*Exporter, error) {
	if log == nil {
		log = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: listen %s: %w", addr, err)
	}
	return &Exporter{
		srv: &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
		log: log,
	}, nil
}

// Port is the bound TCP port.
func (e *Exporter) Port() int {
	return e.ln.Addr().(*net.TCPAddr).Port
}

// Serve blocks until ctx is cancelled, then shuts the server down.
func (e *Exporter) Serve(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		e.log.Info("metrics: listening", "addr", e.ln.Addr().String())
		errc <- e.srv.Serve(e.ln)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("metrics: serve: %w", err)
	case <-ctx.Done():
	}

	// ctx is already cancelled; give in-flight scrapes a bounded grace period.
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.srv.Shutdown(shutCtx); err != nil {
		e.log.Warn("metrics: server didn't shut down within timeout", "err", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: serve: %w", err)
	}
	return nil
}
