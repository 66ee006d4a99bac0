package translate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsontrans_backend_requests_total",
			Help: "Total number of translation backend requests",
		},
		[]string{"backend", "status"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jsontrans_backend_request_duration_seconds",
			Help:    "Duration of translation backend requests in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"backend", "status"},
	)

	stringsTranslatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsontrans_strings_translated_total",
			Help: "Total number of strings submitted for translation",
		},
		[]string{"backend"},
	)
)

// observeRequest records one backend round trip covering batchSize strings.
func observeRequest(backend string, duration time.Duration, err error, batchSize int) {
	status := "success"
	if err != nil {
		status = "error"
	}
	backendRequestsTotal.WithLabelValues(backend, status).Inc()
	backendRequestDuration.WithLabelValues(backend, status).Observe(duration.Seconds())
	if err == nil {
		stringsTranslatedTotal.WithLabelValues(backend).Add(float64(batchSize))
	}
}
