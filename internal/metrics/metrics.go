// Package metrics exposes Prometheus collectors for the conversation core.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	events         *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	effects        *prometheus.CounterVec
	snapshotErrors prometheus.Counter
	snapshotTime   prometheus.Histogram
	lockWait       prometheus.Histogram
	sendErrors     prometheus.Counter
	duplicates     prometheus.Counter
}

// New registers the collectors on reg. Use prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgerbot",
			Name:      "events_total",
			Help:      "Inbound events by resolved action kind.",
		}, []string{"action"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgerbot",
			Name:      "transitions_total",
			Help:      "Conversation state transitions.",
		}, []string{"from", "to"}),
		effects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgerbot",
			Name:      "effects_applied_total",
			Help:      "Ledger effects applied, by kind and whether they changed the ledger.",
		}, []string{"kind", "changed"}),
		snapshotErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgerbot",
			Name:      "snapshot_failures_total",
			Help:      "Snapshot writes that failed and left memory ahead of disk.",
		}),
		snapshotTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledgerbot",
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent writing a snapshot while holding the store lock.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		lockWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledgerbot",
			Name:      "store_lock_wait_seconds",
			Help:      "Time spent waiting for the ledger store lock.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		sendErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgerbot",
			Name:      "send_failures_total",
			Help:      "Outbound prompts the transport failed to deliver.",
		}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgerbot",
			Name:      "duplicate_events_total",
			Help:      "Inbound events dropped because their id was already processed.",
		}),
	}
}

func (m *Metrics) Event(action string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(action).Inc()
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) Effect(kind string, changed bool) {
	if m == nil {
		return
	}
	c := "false"
	if changed {
		c = "true"
	}
	m.effects.WithLabelValues(kind, c).Inc()
}

func (m *Metrics) Snapshot(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.snapshotTime.Observe(d.Seconds())
	if err != nil {
		m.snapshotErrors.Inc()
	}
}

func (m *Metrics) LockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

func (m *Metrics) SendFailure() {
	if m == nil {
		return
	}
	m.sendErrors.Inc()
}

func (m *Metrics) Duplicate() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}
