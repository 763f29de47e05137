package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	rotationRuns    *prometheus.CounterVec
	rotationShifts  prometheus.Counter
	mailSent        prometheus.Counter
	mailFailed      prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
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

	rotationRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rotation_runs_total",
		Help: "Total shift rotation runs",
	}, []string{"mode"})

	rotationShifts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rotation_shifts_assigned_total",
		Help: "Total shifts assigned by rotation runs",
	})

	mailSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_mail_sent_total",
		Help: "Total notification mails delivered",
	})

	mailFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_mail_failed_total",
		Help: "Total notification mails that failed to deliver",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, rotationRuns, rotationShifts, mailSent, mailFailed, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		rotationRuns:    rotationRuns,
		rotationShifts:  rotationShifts,
		mailSent:        mailSent,
		mailFailed:      mailFailed,
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

// ObserveHTTPRequest records request latency and volume.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": fmt.Sprintf("%d", status),
	}
	m.requestDuration.With(labels).Observe(duration.Seconds())
	m.requestTotal.With(labels).Inc()
}

// ObserveRotationRun records one rotation run and its assignment count.
func (m *MetricsService) ObserveRotationRun(dryRun bool, assigned int) {
	if m == nil {
		return
	}
	mode := "commit"
	if dryRun {
		mode = "preview"
	}
	m.rotationRuns.WithLabelValues(mode).Inc()
	if !dryRun && assigned > 0 {
		m.rotationShifts.Add(float64(assigned))
	}
}

// ObserveMail records one notification delivery attempt.
func (m *MetricsService) ObserveMail(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.mailSent.Inc()
		return
	}
	m.mailFailed.Inc()
}
