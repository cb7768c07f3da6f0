// Package metrics holds the Prometheus collectors of the booking service.
// They are registered on the default registry and served on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ticketbooking"

var (
	HoldsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "holds_created_total",
		Help:      "Seat holds placed.",
	})
	HoldsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "holds_expired_total",
		Help:      "Seat holds moved to EXPIRED by the sweeper or at confirmation.",
	})
	BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_confirmed_total",
		Help:      "Holds converted into bookings.",
	})
	BookingsCanceled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_canceled_total",
		Help:      "Bookings canceled.",
	})
	SeatConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "seat_conflicts_total",
		Help:      "Hold or confirm attempts rejected because a seat was taken.",
	})
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Duration of one expiry sweep.",
		Buckets:   prometheus.DefBuckets,
	})
	APIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_errors_total",
		Help:      "Error responses by HTTP status and error code.",
	}, []string{"status", "code"})
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Domain events published to the broker, by routing key and outcome.",
	}, []string{"routing_key", "outcome"})
)

// APIError counts one error response.
func APIError(status int, code string) {
	APIErrors.WithLabelValues(strconv.Itoa(status), code).Inc()
}
