// Package metrics exports board counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wricardo/collab-board/board/session"
)

const namespace = "board"

// StatsSource reports live room and connection counts.
type StatsSource interface {
	Stats() session.Stats
}

// Collector implements session.Recorder on top of Prometheus collectors.
type Collector struct {
	registry *prometheus.Registry

	connections prometheus.Gauge
	commands    *prometheus.CounterVec
	deliveries  prometheus.Counter
	dropped     *prometheus.CounterVec
	reaped      prometheus.Counter
}

// New creates a collector with its own registry, including the Go runtime
// and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_open",
			Help:      "Number of open client connections.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Inbound commands by type and outcome.",
		}, []string{"command", "outcome"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Payloads accepted by a connection's send buffer.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_dropped_total",
			Help:      "Payloads dropped because a connection could not take them.",
		}, []string{"type"}),
		reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_reaped_total",
			Help:      "Idle rooms deleted by the reaper.",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.connections,
		c.commands,
		c.deliveries,
		c.dropped,
		c.reaped,
	)
	return c
}

// Watch registers gauges that read room and seat counts from src at
// scrape time.
func (c *Collector) Watch(src StatsSource) {
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Number of rooms, including the public room.",
		}, func() float64 { return float64(src.Stats().Rooms) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seated_connections",
			Help:      "Connections seated as a member of some room.",
		}, func() float64 { return float64(src.Stats().Seated) }),
	)
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes Prometheus metrics at /metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) CommandProcessed(command, outcome string) {
	c.commands.WithLabelValues(command, outcome).Inc()
}

func (c *Collector) Delivered(n int) {
	c.deliveries.Add(float64(n))
}

func (c *Collector) DeliveryDropped(envelope string) {
	c.dropped.WithLabelValues(envelope).Inc()
}

func (c *Collector) ConnectionOpened() {
	c.connections.Inc()
}

func (c *Collector) ConnectionClosed() {
	c.connections.Dec()
}

func (c *Collector) RoomsReaped(n int) {
	c.reaped.Add(float64(n))
}

var _ session.Recorder = (*Collector)(nil)
