// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Booking
	AppointmentsBooked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_appointments_booked_total",
			Help: "Appointments successfully created.",
		},
	)

	BookingRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_booking_rejections_total",
			Help: "Create or reschedule attempts rejected by slot validation or the uniqueness guard.",
		},
		[]string{"reason"},
	)

	AppointmentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_appointment_transitions_total",
			Help: "Appointment status changes by source and target status.",
		},
		[]string{"from", "to"},
	)

	// Billing
	PaymentsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_payments_recorded_total",
			Help: "Payments appended to a bill.",
		},
	)

	PaymentRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_payment_rejections_total",
			Help: "Payments rejected because they exceed the amount due.",
		},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinic_http_request_duration_seconds",
			Help:    "HTTP request latency by route template.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func RecordBooking() {
	AppointmentsBooked.Inc()
}

func RecordBookingRejection(reason string) {
	BookingRejections.WithLabelValues(reason).Inc()
}

func RecordTransition(from, to string) {
	AppointmentTransitions.WithLabelValues(from, to).Inc()
}

func RecordPayment() {
	PaymentsRecorded.Inc()
}

func RecordPaymentRejection() {
	PaymentRejections.Inc()
}

func RecordHTTPRequest(method, route string, status int, seconds float64) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}

// PoolStatsFunc reports connection counts for the database pool.
type PoolStatsFunc func() (total, idle, acquired int32)

var registerPoolOnce sync.Once

// RegisterPoolStats exposes clinic_db_connections{state} sampled from fn at
// scrape time. Only the first call registers.
func RegisterPoolStats(fn PoolStatsFunc) {
	registerPoolOnce.Do(func() {
		for _, state := range []string{"total", "idle", "acquired"} {
			state := state
			promauto.NewGaugeFunc(prometheus.GaugeOpts{
				Name:        "clinic_db_connections",
				Help:        "Database pool connections by state.",
				ConstLabels: prometheus.Labels{"state": state},
			}, func() float64 {
				total, idle, acquired := fn()
				switch state {
				case "idle":
					return float64(idle)
				case "acquired":
					return float64(acquired)
				default:
					return float64(total)
				}
			})
		}
	})
}
