// Package metrics exposes poll loop counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"homeworkbot/internal/poller"
)

const namespace = "homeworkbot"

// Collector records one observation per poll cycle.
type Collector struct {
	reg *prometheus.Registry

	cycles        *prometheus.CounterVec
	failures      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	deliveryFails prometheus.Counter
	cursor        prometheus.Gauge
	lastCycle     prometheus.Gauge
	cycleTime     prometheus.Histogram
}

// New creates a collector on its own registry, with Go and process collectors attached.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		reg: reg,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Poll cycles by outcome.",
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_failures_total",
			Help:      "Failed poll cycles by failure kind.",
		}, []string{"kind"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Messages delivered to the chat by category.",
		}, []string{"category"}),
		deliveryFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_delivery_failures_total",
			Help:      "Error reports that could not be delivered.",
		}),
		cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_cursor_seconds",
			Help:      "Unix time the next fetch asks changes from.",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time of the last finished poll cycle.",
		}),
		cycleTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_seconds",
			Help:      "Wall time of one poll cycle, fetch and delivery included.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
	reg.MustRegister(
		c.cycles, c.failures, c.notifications, c.deliveryFails, c.cursor, c.lastCycle, c.cycleTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Observe records a cycle outcome. It is meant to be used as a poller cycle hook.
func (c *Collector) Observe(out poller.Outcome) {
	c.cycles.WithLabelValues(out.Kind.String()).Inc()
	if out.Err != nil {
		c.failures.WithLabelValues(poller.FailureKind(out.Err)).Inc()
	}
	if out.Notified {
		category := "status"
		if out.Err != nil {
			category = "error"
		}
		c.notifications.WithLabelValues(category).Inc()
	}
	if out.NotifyErr != nil {
		c.deliveryFails.Inc()
	}
	c.cycleTime.Observe(out.Took.Seconds())
	c.cursor.Set(float64(out.Cursor))
	c.lastCycle.SetToCurrentTime()
}

// Handler serves the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}
