package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	Registry               *prometheus.Registry
	DatesProcessed         *prometheus.CounterVec
	ReservationsRemoved    prometheus.Counter
	ReservationsAdded      prometheus.Counter
	CancellationsNotified  prometheus.Counter
	ReservationsPurged     prometheus.Counter
	RunDuration            prometheus.Histogram
	LastSuccessfulRunEpoch prometheus.Gauge
}

// NewMetrics creates new prometheus metrics on a dedicated registry
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		DatesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dates_processed_total",
			Help:      "The total number of schedule dates processed, by outcome",
		}, []string{"status"}),
		ReservationsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_removed_total",
			Help:      "The total number of reservations that disappeared from a schedule",
		}),
		ReservationsAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_added_total",
			Help:      "The total number of reservations that appeared on a known schedule",
		}),
		CancellationsNotified: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_notified_total",
			Help:      "The total number of cancellations sent in a digest",
		}),
		ReservationsPurged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_purged_total",
			Help:      "The total number of reservations deleted by retention cleanup",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Time taken by one monitoring run",
			Buckets:   prometheus.DefBuckets,
		}),
		LastSuccessfulRunEpoch: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix time of the last run that completed",
		}),
	}
}

// Push sends the registry to a Prometheus Pushgateway under the given job name
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(m.Registry).PushContext(ctx)
}
