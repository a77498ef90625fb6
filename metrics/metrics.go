// Package metrics exposes prometheus instrumentation for sequence allocation.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Values handed out, partitioned by entity, attribute and where the raw value came from
	allocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_sequence_allocations_total",
			Help: "Total number of sequence values allocated",
		},
		[]string{"entity", "attribute", "source"},
	)

	// Existence checks issued while searching for a starting point
	probesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_sequence_probes_total",
			Help: "Total number of existence checks issued by the lower bound search",
		},
		[]string{"entity", "attribute"},
	)

	// Time spent computing a starting point
	lowerBoundDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "demo_sequence_lower_bound_seconds",
			Help:    "Time spent computing sequence starting values",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity", "attribute"},
	)

	// Database sequence objects that were expected but absent
	notFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_sequence_not_found_total",
			Help: "Total number of database sequence objects found missing",
		},
		[]string{"entity", "attribute", "strict"},
	)
)

// ObserveAllocation counts one allocated value
func ObserveAllocation(entity, attribute, source string) {
	allocationsTotal.With(prometheus.Labels{
		"entity":    entity,
		"attribute": attribute,
		"source":    source,
	}).Inc()
}

// ObserveProbe counts one existence check
func ObserveProbe(entity, attribute string) {
	probesTotal.WithLabelValues(entity, attribute).Inc()
}

// ObserveLowerBound records how long a starting point computation took
func ObserveLowerBound(entity, attribute string, d time.Duration) {
	lowerBoundDuration.WithLabelValues(entity, attribute).Observe(d.Seconds())
}

// ObserveNotFound counts a missing database sequence object
func ObserveNotFound(entity, attribute string, strict bool) {
	notFoundTotal.WithLabelValues(entity, attribute, strconv.FormatBool(strict)).Inc()
}
