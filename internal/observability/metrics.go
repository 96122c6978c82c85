package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type moduleMetrics struct {
	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
	toolOutputBytes       *prometheus.HistogramVec

	turnTotal         *prometheus.CounterVec
	turnDuration      prometheus.Histogram
	toolSubmissions   prometheus.Counter
	registrySaveTotal *prometheus.CounterVec
	registrySaveTime  prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ttyg_tool_execution_total",
					Help: "Total tool calls by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ttyg_tool_execution_duration_seconds",
					Help:    "Tool call duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolOutputBytes: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ttyg_tool_output_bytes",
					Help:    "Size of successful tool outputs in bytes.",
					Buckets: prometheus.ExponentialBuckets(64, 4, 8),
				},
				[]string{"tool"},
			),
			turnTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ttyg_turn_total",
					Help: "Total conversation turns by status.",
				},
				[]string{"status"},
			),
			turnDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "ttyg_turn_duration_seconds",
					Help:    "Duration of a full turn, tool calls included.",
					Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
				},
			),
			toolSubmissions: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "ttyg_tool_output_submissions_total",
					Help: "Batched tool output submissions sent to the backend.",
				},
			),
			registrySaveTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ttyg_registry_save_total",
					Help: "Thread registry rewrites by status.",
				},
				[]string{"status"},
			),
			registrySaveTime: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "ttyg_registry_save_duration_seconds",
					Help:    "Thread registry rewrite duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
		}

		prometheus.MustRegister(
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.toolOutputBytes,
			m.turnTotal,
			m.turnDuration,
			m.toolSubmissions,
			m.registrySaveTotal,
			m.registrySaveTime,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// MetricsHandler returns the promhttp handler for the default registry
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done. Failures are logged,
// never fatal: metrics are optional for an interactive client.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordToolExecution records one tool call against the GraphDB endpoint
func RecordToolExecution(tool string, duration time.Duration, success bool, outputSize int) {
	m := getMetrics()
	m.toolExecutionTotal.WithLabelValues(tool, status(success)).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if success {
		m.toolOutputBytes.WithLabelValues(tool).Observe(float64(outputSize))
	}
}

// RecordTurn records one user message driven through to the end of the run
func RecordTurn(duration time.Duration, success bool) {
	m := getMetrics()
	m.turnTotal.WithLabelValues(status(success)).Inc()
	m.turnDuration.Observe(duration.Seconds())
}

// RecordToolSubmission records one batched submit-tool-outputs call
func RecordToolSubmission() {
	getMetrics().toolSubmissions.Inc()
}

// RecordRegistrySave records one full rewrite of the thread registry
func RecordRegistrySave(duration time.Duration, success bool) {
	m := getMetrics()
	m.registrySaveTotal.WithLabelValues(status(success)).Inc()
	m.registrySaveTime.Observe(duration.Seconds())
}
