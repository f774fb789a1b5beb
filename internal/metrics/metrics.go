package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weathernow",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "weathernow",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	upstreamFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weathernow",
		Subsystem: "upstream",
		Name:      "fetches_total",
		Help:      "Upstream forecast fetches by result (ok or error kind)",
	}, []string{"result"})

	upstreamFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "weathernow",
		Subsystem: "upstream",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of upstream forecast fetches",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	outcomesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weathernow",
		Subsystem: "orchestrator",
		Name:      "outcomes_total",
		Help:      "Outcomes published to subscribers by kind",
	}, []string{"kind"})

	staleCompletions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "weathernow",
		Subsystem: "orchestrator",
		Name:      "stale_completions_total",
		Help:      "Fetch completions discarded because a newer fetch had started",
	})

	droppedOutcomes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "weathernow",
		Subsystem: "orchestrator",
		Name:      "dropped_outcomes_total",
		Help:      "Outcomes not delivered because a subscriber buffer was full",
	})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "weathernow",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of WebSocket outcome streams",
	})
)

// ObserveFetch records one upstream fetch.
func ObserveFetch(result string, elapsed time.Duration) {
	upstreamFetches.WithLabelValues(result).Inc()
	upstreamFetchDuration.Observe(elapsed.Seconds())
}

// OutcomePublished counts a published outcome.
func OutcomePublished(kind string) {
	outcomesPublished.WithLabelValues(kind).Inc()
}

// StaleCompletion counts a discarded out-of-order completion.
func StaleCompletion() {
	staleCompletions.Inc()
}

// OutcomeDropped counts an outcome a slow subscriber missed.
func OutcomeDropped() {
	droppedOutcomes.Inc()
}

// StreamOpened and StreamClosed track WebSocket subscribers.
func StreamOpened() { activeStreams.Inc() }
func StreamClosed() { activeStreams.Dec() }

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
