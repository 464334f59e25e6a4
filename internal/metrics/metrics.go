package metrics

import (
	"net/http"
	"strconv"
	"time"

	d "github.com/fjod/go_pos/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pos"

// Checkout counts screen transitions, settled payments and best-effort call failures.
// It satisfies checkout.Observer.
type Checkout struct {
	Transitions      *prometheus.CounterVec
	Payments         *prometheus.CounterVec
	BestEffortErrors *prometheus.CounterVec
}

func NewCheckout(reg prometheus.Registerer) *Checkout {
	c := &Checkout{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "transitions_total",
			Help:      "Total number of checkout screen transitions.",
		}, []string{"from", "to"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "payments_total",
			Help:      "Total number of settled payment attempts.",
		}, []string{"method", "outcome"}),
		BestEffortErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "best_effort_failures_total",
			Help:      "Total number of failed signature and receipt preference saves.",
		}, []string{"call"}),
	}
	reg.MustRegister(c.Transitions, c.Payments, c.BestEffortErrors)
	return c
}

func (c *Checkout) Transition(from, to d.Screen) {
	c.Transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (c *Checkout) PaymentSettled(method d.MethodType, outcome d.PaymentOutcome) {
	c.Payments.WithLabelValues(string(method), string(outcome)).Inc()
}

func (c *Checkout) BestEffortFailed(call string) {
	c.BestEffortErrors.WithLabelValues(call).Inc()
}

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Instrument records request count and latency under the given handler label.
func (m *ServerMetrics) Instrument(handler string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.Observe(handler, sw.status, time.Since(start))
	})
}

func (m *ServerMetrics) Observe(handler string, status int, elapsed time.Duration) {
	m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(elapsed.Milliseconds()))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
