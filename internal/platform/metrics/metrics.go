package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for credential operations.
type Metrics struct {
	UsersCreated       prometheus.Counter
	ValidationFailures *prometheus.CounterVec
	HashDuration       prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credgate_users_created_total",
			Help: "Total number of users registered",
		}),
		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credgate_validation_failures_total",
			Help: "Credential validation failures by field",
		}, []string{"field"}),
		HashDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "credgate_password_hash_duration_ms",
			Help:    "Password hashing latency in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
	}
}

// IncrementUsersCreated increments the registration counter by 1.
func (m *Metrics) IncrementUsersCreated() {
	m.UsersCreated.Inc()
}

// RecordValidationFailure counts one rejected field.
func (m *Metrics) RecordValidationFailure(field string) {
	m.ValidationFailures.WithLabelValues(field).Inc()
}

// ObserveHashDuration records one hashing latency sample.
func (m *Metrics) ObserveHashDuration(ms float64) {
	m.HashDuration.Observe(ms)
}
