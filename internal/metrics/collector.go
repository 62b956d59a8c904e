// Package metrics exports bus and lifecycle counters for the amplifier in
// Prometheus format.
package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/micro-nova/gmaxd/internal/hardware"
	"github.com/micro-nova/gmaxd/internal/models"
)

const namespace = "gmax"

// Collector implements hardware.BusObserver and codec.Observer.
type Collector struct {
	bus       *prometheus.CounterVec
	lifecycle *prometheus.CounterVec
	powered   *prometheus.GaugeVec
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		bus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_transactions_total",
			Help:      "Register transactions issued to the amplifier, by operation and result.",
		}, []string{"op", "result"}),
		lifecycle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_total",
			Help:      "Device lifecycle calls, by event and result.",
		}, []string{"event", "result"}),
		powered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "powered_on",
			Help:      "1 while the amplifier instance has completed bring-up.",
		}, []string{"uid"}),
	}
	for _, col := range []prometheus.Collector{c.bus, c.lifecycle, c.powered} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// result is "ok" or the error kind in snake case.
func result(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ReplaceAll(models.KindOf(err).String(), " ", "_")
}

func (c *Collector) ObserveTransaction(op hardware.Op, addr uint16, err error) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	c.bus.WithLabelValues(string(op), res).Inc()
}

func (c *Collector) ObserveLifecycle(event string, err error) {
	c.lifecycle.WithLabelValues(event, result(err)).Inc()
}

func (c *Collector) ObservePower(uid uint32, on bool) {
	v := 0.0
	if on {
		v = 1
	}
	c.powered.WithLabelValues(strconv.FormatUint(uint64(uid), 10)).Set(v)
}
