package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the portal.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	attendanceMarks *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	sessionEvents   *prometheus.CounterVec
	mailJobs        *prometheus.CounterVec
	backendFailures *prometheus.CounterVec
}

// NewMetricsService registers the portal collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	attendanceMarks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_records_upserted_total",
		Help: "Attendance records written, by mode and status",
	}, []string{"mode", "status"})

	authFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Failed sign-in, sign-up and enrollment attempts",
	}, []string{"operation"})

	sessionEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_events_total",
		Help: "Session change notifications",
	}, []string{"type"})

	mailJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mail_jobs_total",
		Help: "Enrollment e-mail deliveries by result",
	}, []string{"result"})

	backendFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_query_failures_total",
		Help: "Backend reads and writes that failed",
	}, []string{"operation"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, attendanceMarks, authFailures, sessionEvents, mailJobs, backendFailures, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		attendanceMarks: attendanceMarks,
		authFailures:    authFailures,
		sessionEvents:   sessionEvents,
		mailJobs:        mailJobs,
		backendFailures: backendFailures,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the collector registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordAttendance counts n records written with status.
func (m *MetricsService) RecordAttendance(mode, status string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.attendanceMarks.WithLabelValues(mode, status).Add(float64(n))
}

// RecordAuthFailure counts a failed auth flow.
func (m *MetricsService) RecordAuthFailure(operation string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(operation).Inc()
}

// RecordSessionEvent counts a published session change.
func (m *MetricsService) RecordSessionEvent(eventType string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(eventType).Inc()
}

// RecordMailJob counts an e-mail delivery attempt.
func (m *MetricsService) RecordMailJob(result string) {
	if m == nil {
		return
	}
	m.mailJobs.WithLabelValues(result).Inc()
}

// RecordBackendFailure counts a failed backend call.
func (m *MetricsService) RecordBackendFailure(operation string) {
	if m == nil {
		return
	}
	m.backendFailures.WithLabelValues(operation).Inc()
}
