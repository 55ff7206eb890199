package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "retrace",
		Subsystem: "server",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests, by route and status.",
	}, []string{"route", "status"})

	httpRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "retrace",
		Subsystem: "server",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds, by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	sessionsServedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "retrace",
		Subsystem: "server",
		Name:      "sessions_served_total",
		Help:      "Session transcripts served over the API, by source.",
	}, []string{"source"})

	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "retrace",
		Subsystem: "server",
		Name:      "searches_total",
		Help:      "Total search requests, by outcome.",
	}, []string{"status"})

	searchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "retrace",
		Subsystem: "server",
		Name:      "search_duration_seconds",
		Help:      "Search request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "retrace",
		Subsystem: "server",
		Name:      "ws_connections_active",
		Help:      "Number of active live-follow WebSocket connections.",
	})

	wsEventsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "retrace",
		Subsystem: "server",
		Name:      "ws_events_sent_total",
		Help:      "Total events streamed to WebSocket clients.",
	})
)

// metricsMiddleware records a counter and duration sample per request,
// labelled with the chi route pattern so path parameters do not explode
// the cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		httpRequestDurationSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
