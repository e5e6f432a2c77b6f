// Package metrics exposes the engine's Prometheus instrumentation: counters
// and histograms over iterations and rounds, gauges over the last run's
// throughput, and a runtime collector for goroutines/memory/GC stats.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide metrics container for one engine instance.
type Metrics struct {
	IterationsTotal   *prometheus.CounterVec
	IterationDuration *prometheus.HistogramVec
	RoundsPerRun      *prometheus.HistogramVec
	RoundDuration     *prometheus.HistogramVec
	EdgesTraversed    *prometheus.CounterVec
	TEPS              *prometheus.GaugeVec
	GraphVertices     *prometheus.GaugeVec
	GraphEdges        *prometheus.GaugeVec

	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics registers the engine's metric family under the given
// namespace/subsystem and installs it as the process default.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		IterationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "iterations_total",
				Help:      "Total number of SSSP iterations run",
			},
			[]string{"mode", "status"},
		),

		IterationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "iteration_duration_seconds",
				Help:      "Wall time of one iteration's driver run, from launch to termination",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"mode"},
		),

		RoundsPerRun: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rounds_per_iteration",
				Help:      "Number of Bellman-Ford rounds until convergence",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
			},
			[]string{"mode"},
		),

		RoundDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "round_duration_seconds",
				Help:      "Wall time of a single driver round",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"mode"},
		),

		EdgesTraversed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "edges_traversed_total",
				Help:      "Total number of edge relaxation attempts across all iterations",
			},
			[]string{"mode"},
		),

		TEPS: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "teps",
				Help:      "Traversed edges per second for the most recent iteration",
			},
			[]string{"mode"},
		),

		GraphVertices: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_vertices",
				Help:      "Number of vertices in the loaded graph, after padding",
			},
			[]string{"mode"},
		),

		GraphEdges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_edges",
				Help:      "Number of raw edges read from the graph input",
			},
			[]string{"mode"},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "build_info",
				Help:      "Build and environment information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the process-default metrics, initializing a fallback instance
// if InitMetrics was never called.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("shmemsssp", "engine")
	}
	return defaultMetrics
}

// RecordIteration records the outcome of one completed iteration.
func (m *Metrics) RecordIteration(mode string, success bool, duration time.Duration, rounds int64, edgesTraversed int64) {
	status := "converged"
	if !success {
		status = "exhausted"
	}

	m.IterationsTotal.WithLabelValues(mode, status).Inc()
	m.IterationDuration.WithLabelValues(mode).Observe(duration.Seconds())
	m.RoundsPerRun.WithLabelValues(mode).Observe(float64(rounds))
	m.EdgesTraversed.WithLabelValues(mode).Add(float64(edgesTraversed))

	if duration > 0 {
		m.TEPS.WithLabelValues(mode).Set(float64(edgesTraversed) / duration.Seconds())
	}
}

// RecordRound records the duration of a single driver round.
func (m *Metrics) RecordRound(mode string, duration time.Duration) {
	m.RoundDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordGraphSize records the shape of the loaded graph.
func (m *Metrics) RecordGraphSize(mode string, vertices, rawEdges int64) {
	m.GraphVertices.WithLabelValues(mode).Set(float64(vertices))
	m.GraphEdges.WithLabelValues(mode).Set(float64(rawEdges))
}

// SetServiceInfo records the build version and environment as a constant gauge.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler serving the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer runs the /metrics and /health HTTP endpoints on the
// given port. It blocks until the server stops.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, write failure is not actionable
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
