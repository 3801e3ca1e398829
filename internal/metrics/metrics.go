// Package metrics exposes prometheus collectors for scan traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ecklinen"

// Scan holds the scan core collectors. A nil *Scan records nothing.
type Scan struct {
	readings          prometheus.Counter
	events            *prometheus.CounterVec
	offlineSessions   *prometheus.CounterVec
	conflictsRecorded prometheus.Counter
	conflictsResolved *prometheus.CounterVec
	projection        *prometheus.HistogramVec
}

// NewScan registers the scan collectors with reg
func NewScan(reg prometheus.Registerer) *Scan {
	f := promauto.With(reg)
	return &Scan{
		readings: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "readings_received_total",
			Help:      "Raw tag readings received by bulk ingest.",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "events_written_total",
			Help:      "Scan events written by bulk ingest, by change.",
		}, []string{"change"}),
		offlineSessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "offline_sessions_total",
			Help:      "Offline sessions replayed, by outcome.",
		}, []string{"outcome"}),
		conflictsRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "conflicts_recorded_total",
			Help:      "Conflicting tag claims recorded during offline sync.",
		}),
		conflictsResolved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "conflicts_resolved_total",
			Help:      "Conflicts resolved manually, by resolution.",
		}, []string{"resolution"}),
		projection: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "projection_duration_seconds",
			Help:      "Time to project a session onto item status, including its transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
}

func (m *Scan) ObserveIngest(readings, added, updated int) {
	if m == nil {
		return
	}
	m.readings.Add(float64(readings))
	m.events.WithLabelValues("added").Add(float64(added))
	m.events.WithLabelValues("updated").Add(float64(updated))
}

func (m *Scan) ObserveOfflineOutcome(outcome string) {
	if m == nil {
		return
	}
	m.offlineSessions.WithLabelValues(outcome).Inc()
}

func (m *Scan) ObserveConflicts(n int) {
	if m == nil {
		return
	}
	m.conflictsRecorded.Add(float64(n))
}

func (m *Scan) ObserveResolution(resolution string) {
	if m == nil {
		return
	}
	m.conflictsResolved.WithLabelValues(resolution).Inc()
}

// ObserveProjection records how long a projection took; source is live,
// offline or reproject
func (m *Scan) ObserveProjection(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.projection.WithLabelValues(source).Observe(d.Seconds())
}
