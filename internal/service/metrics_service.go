package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the scheduling engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	bookings           prometheus.Counter
	cancellations      prometheus.Counter
	promotions         prometheus.Counter
	promotionRollbacks prometheus.Counter
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

	bookings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "appointments_booked_total",
		Help: "Total appointments booked",
	})

	cancellations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "appointments_cancelled_total",
		Help: "Total appointments cancelled",
	})

	promotions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "priority_promotions_total",
		Help: "Total successful priority promotions",
	})

	promotionRollbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "priority_promotion_rollbacks_total",
		Help: "Total promotions rolled back after a failed slot rotation",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, bookings, cancellations, promotions, promotionRollbacks, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		bookings:           bookings,
		cancellations:      cancellations,
		promotions:         promotions,
		promotionRollbacks: promotionRollbacks,
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

// ObserveHTTPRequest records per-request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// IncBooking counts a successful booking.
func (m *MetricsService) IncBooking() {
	if m != nil {
		m.bookings.Inc()
	}
}

// IncCancellation counts a cancellation.
func (m *MetricsService) IncCancellation() {
	if m != nil {
		m.cancellations.Inc()
	}
}

// IncPromotion counts a successful priority promotion.
func (m *MetricsService) IncPromotion() {
	if m != nil {
		m.promotions.Inc()
	}
}

// IncPromotionRollback counts a rolled-back promotion.
func (m *MetricsService) IncPromotionRollback() {
	if m != nil {
		m.promotionRollbacks.Inc()
	}
}
