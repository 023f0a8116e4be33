// Package metrics provides Prometheus instrumentation for the execution
// engine.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersSubmitted counts submissions by side and outcome
	// (executed, queued, rejected).
	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exec_orders_submitted_total",
		Help: "Order submissions by side and outcome",
	}, []string{"side", "outcome"})

	// TradesExecuted counts executions, immediate and swept.
	TradesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exec_trades_total",
		Help: "Total number of trades executed",
	}, []string{"side"})

	// SweepRuns counts pending-order sweeps while the market is open.
	SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exec_sweep_runs_total",
		Help: "Pending-order sweep runs",
	})

	// SweepOrderFailures counts orders that failed during a sweep and
	// were returned to pending.
	SweepOrderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exec_sweep_order_failures_total",
		Help: "Orders returned to pending after a failed sweep execution",
	})

	// WebSocketClients tracks connected event-stream clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "exec_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exec_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "exec_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack passes through to the underlying writer so WebSocket upgrades work
// behind this middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
