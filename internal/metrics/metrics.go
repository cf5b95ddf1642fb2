// Package metrics holds the Prometheus counters shared by the quote API and
// the booking service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shamshouse",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	grpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shamshouse",
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	quotes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shamshouse",
			Name:      "quote_total_euros",
			Help:      "Distribution of quoted stay totals.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	bookingSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shamshouse",
			Name:      "booking_submissions_total",
			Help:      "Wizard submissions by mode (direct|pack) and result.",
		},
		[]string{"mode", "result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, grpcRequests, quotes, bookingSubmissions)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint, code string) {
	httpRequests.WithLabelValues(endpoint, code).Inc()
}

func IncGRPC(method, code string) {
	grpcRequests.WithLabelValues(method, code).Inc()
}

func ObserveQuote(total float64) {
	quotes.Observe(total)
}

func IncBookingSubmission(mode, result string) {
	bookingSubmissions.WithLabelValues(mode, result).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
