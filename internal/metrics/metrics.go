// Package metrics содержит Prometheus-метрики HTTP-слоя и доменных событий.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "backoffice"

var (
	// Registry реестр метрик приложения.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	purchasesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "purchases_created_total",
			Help:      "Purchases written to the ledger by source.",
		},
		[]string{"source"},
	)

	emailsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mail",
			Name:      "failed_total",
			Help:      "Emails that could not be delivered.",
		},
		[]string{"kind"},
	)

	otpVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "otp",
			Name:      "verifications_total",
			Help:      "OTP verification attempts by outcome.",
		},
		[]string{"flow", "outcome"},
	)

	remindersPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "published_total",
			Help:      "Expiry reminders published to the broker.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		purchasesCreated,
		emailsFailed,
		otpVerifications,
		remindersPublished,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler отдаёт метрики из Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware считает запросы и их длительность по шаблону маршрута chi.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// PurchaseCreated отмечает запись в журнале покупок. source: admin, customer, service_request.
func PurchaseCreated(source string) {
	purchasesCreated.WithLabelValues(source).Inc()
}

// EmailFailed отмечает неотправленное письмо.
func EmailFailed(kind string) {
	emailsFailed.WithLabelValues(kind).Inc()
}

// OTPVerification отмечает попытку проверки кода. outcome: success или failure.
func OTPVerification(flow string, ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	otpVerifications.WithLabelValues(flow, outcome).Inc()
}

// ReminderPublished отмечает опубликованное напоминание.
func ReminderPublished() {
	remindersPublished.Inc()
}
