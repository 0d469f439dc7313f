package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ListingMetrics records outcomes and latency for listing engine operations.
type ListingMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	settled  prometheus.Counter
}

// NewListingMetrics registers the listing metrics on the provided registerer.
func NewListingMetrics(reg prometheus.Registerer) *ListingMetrics {
	if reg == nil {
		return &ListingMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "listing_operation_duration_seconds",
		Help:    "Duration of listing engine operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_operations_total",
		Help: "Listing engine operations by outcome.",
	}, []string{"operation", "outcome"})
	settled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "listing_fee_cents_total",
		Help: "Total platform fees settled, in cents.",
	})
	reg.MustRegister(duration, outcomes, settled)
	return &ListingMetrics{
		duration: duration,
		outcomes: outcomes,
		settled:  settled,
	}
}

// ObserveDuration records the duration for the named operation.
func (m *ListingMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncOutcome counts one operation result ("ok" or "error").
func (m *ListingMetrics) IncOutcome(operation, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(operation, outcome).Inc()
}

// AddFee accumulates settled platform fees.
func (m *ListingMetrics) AddFee(cents int64) {
	if m == nil || m.settled == nil || cents <= 0 {
		return
	}
	m.settled.Add(float64(cents))
}
