package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so that several instances (one per test)
// never collide. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	comments        *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bluelog",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bluelog",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		comments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bluelog",
			Name:      "comments_submitted_total",
			Help:      "Accepted comment submissions by identity branch.",
		}, []string{"branch"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bluelog",
			Name:      "notifications_total",
			Help:      "Notification deliveries by kind and result.",
		}, []string{"kind", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.comments,
		m.notifications,
	)
	return m
}

func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// CommentSubmitted counts a persisted comment; branch is "admin" or "anonymous".
func (m *Metrics) CommentSubmitted(branch string) {
	if m == nil {
		return
	}
	m.comments.WithLabelValues(branch).Inc()
}

// NotificationSent counts one delivery attempt; result is "sent", "failed"
// or "dropped".
func (m *Metrics) NotificationSent(kind, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
