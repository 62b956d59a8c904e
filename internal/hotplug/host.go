// Package hotplug attaches and detaches the amplifier as its device node
// comes and goes.
package hotplug

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/micro-nova/gmaxd/internal/codec"
	"github.com/micro-nova/gmaxd/internal/metrics"
)

// Host owns a codec.Device and drives its lifecycle from a single goroutine.
// Status may be called from any goroutine.
type Host struct {
	dev  *codec.Device
	path string
	res  []codec.Resource
	log  *slog.Logger

	attached bool

	mu     sync.Mutex
	status metrics.DeviceStatus
}

// New returns a host that watches path and hands res to PrepareHardware when
// it appears. An empty path means the device is always present.
func New(dev *codec.Device, path string, res []codec.Resource, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	if path != "" {
		path = filepath.Clean(path)
	}
	h := &Host{dev: dev, path: path, res: res, log: log}
	h.snapshot()
	return h
}

// Status is the last published device summary.
func (h *Host) Status() metrics.DeviceStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Run watches for the device until ctx is cancelled, then detaches it.
func (h *Host) Run(ctx context.Context) error {
	var (
		evs  <-chan fsnotify.Event
		errs <-chan error
	)
	if h.path != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("hotplug: create watcher: %w", err)
		}
		defer w.Close()
		// Watch before the first stat so a node created in between is not missed.
		if err := w.Add(filepath.Dir(h.path)); err != nil {
			return fmt.Errorf("hotplug: watch %s: %w", filepath.Dir(h.path), err)
		}
		evs, errs = w.Events, w.Errors
		h.log.Info("hotplug: watching", "path", h.path)
	}

	if h.present() {
		h.attach()
	}

	for {
		select {
		case <-ctx.Done():
			h.detach()
			return nil
		case ev, ok := <-evs:
			if !ok {
				h.detach()
				return errors.New("hotplug: watcher closed")
			}
			if filepath.Clean(ev.Name) != h.path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				h.attach()
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				h.detach()
			case ev.Has(fsnotify.Chmod):
				// udev may create the node before fixing its permissions.
				h.attach()
			}
		case err, ok := <-errs:
			if !ok {
				continue
			}
			h.log.Warn("hotplug: watcher error", "err", err)
		case env := <-h.dev.Endpoint().Events():
			h.dev.Endpoint().Handle(env)
		}
	}
}

func (h *Host) present() bool {
	if h.path == "" {
		return true
	}
	_, err := os.Stat(h.path)
	return err == nil
}

func (h *Host) attach() {
	if h.attached {
		return
	}
	if err := h.dev.PrepareHardware(h.res); err != nil {
		h.log.Error("hotplug: prepare hardware failed", "err", err)
		return
	}
	if err := h.dev.SelfManagedInit(); err != nil {
		h.log.Error("hotplug: self-managed init failed", "err", err)
		if err := h.dev.ReleaseHardware(); err != nil {
			h.log.Warn("hotplug: release after failed init", "err", err)
		}
		return
	}
	h.attached = true
	// A failed bring-up leaves the device attached and powered off.
	_ = h.dev.D0Entry()
	h.snapshot()
	h.log.Info("hotplug: attached", "uid", h.dev.UID(), "state", h.dev.State())
}

func (h *Host) detach() {
	if !h.attached {
		return
	}
	_ = h.dev.D0Exit()
	if err := h.dev.ReleaseHardware(); err != nil {
		h.log.Warn("hotplug: release hardware", "err", err)
	}
	h.attached = false
	h.snapshot()
	h.log.Info("hotplug: detached", "uid", h.dev.UID())
}

func (h *Host) snapshot() {
	st := metrics.DeviceStatus{State: "detached"}
	if h.attached {
		st = metrics.DeviceStatus{
			Attached:  true,
			Model:     h.dev.Model().String(),
			UID:       h.dev.UID(),
			State:     h.dev.State().String(),
			PoweredOn: h.dev.PoweredOn(),
		}
	}
	h.mu.Lock()
	h.status = st
	h.mu.Unlock()
}
