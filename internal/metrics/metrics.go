package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venueq",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	admissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venueq",
			Name:      "admissions_total",
			Help:      "Admission attempts by outcome (admitted, conflict, empty, error).",
		},
		[]string{"outcome"},
	)

	pendingInquiries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "venueq",
			Name:      "pending_inquiries",
			Help:      "Current number of pending inquiries across all vendors.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, admissions, pendingInquiries)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncAdmission counts one admission attempt outcome.
func IncAdmission(outcome string) {
	admissions.WithLabelValues(outcome).Inc()
}

// SetPendingInquiries updates the pending-queue depth gauge.
func SetPendingInquiries(n int64) {
	pendingInquiries.Set(float64(n))
}
