package metrics

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
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "retail_insights_build_info",
			Help: "Build information of the retail insights engine",
		},
		[]string{"version", "commit"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retail_insights_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retail_insights_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retail_insights_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Pipeline metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retail_insights_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"stage"},
	)

	StageRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retail_insights_stage_rows_total",
			Help: "Rows seen by pipeline stages",
		},
		[]string{"stage", "direction"}, // direction: "in", "out"
	)

	PipelineErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retail_insights_pipeline_errors_total",
			Help: "Total number of failed pipeline stages",
		},
		[]string{"stage", "kind"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retail_insights_runs_total",
			Help: "Total number of processing runs",
		},
		[]string{"status"},
	)

	DatasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "retail_insights_dataset_rows",
			Help: "Rows held by the currently published datasets",
		},
		[]string{"slot"}, // "raw", "processed"
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordStage records duration and row counts for one pipeline stage.
func RecordStage(stage string, duration time.Duration, rowsIn, rowsOut int) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	StageRows.WithLabelValues(stage, "in").Add(float64(rowsIn))
	StageRows.WithLabelValues(stage, "out").Add(float64(rowsOut))
}

// RecordStageError counts a failed stage by error kind.
func RecordStageError(stage, kind string) {
	PipelineErrorsTotal.WithLabelValues(stage, kind).Inc()
}
