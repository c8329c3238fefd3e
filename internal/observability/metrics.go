package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Compile pass instrumentation. Labels are bounded: mode is full|targeted,
// action is one of the six compile buckets and kind one of the error kinds.
var (
	compileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_compile_runs_total",
			Help: "Total number of compile passes.",
		},
		[]string{"mode", "dry_run"},
	)

	compileEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_compile_entries_total",
			Help: "Entries processed by compile passes, by resulting action.",
		},
		[]string{"action"},
	)

	compileErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_compile_errors_total",
			Help: "Per-entry compile failures, by kind.",
		},
		[]string{"kind"},
	)

	compileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "overlay_compile_duration_seconds",
			Help:    "Duration of compile passes in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)

	embeddingCalls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_embedding_batches_total",
			Help: "EmbedBatch calls issued by compile passes.",
		},
	)
)

func init() {
	prometheus.MustRegister(compileRuns, compileEntries, compileErrors, compileDuration, embeddingCalls)
}

// CompileSample is what a finished compile pass reports.
type CompileSample struct {
	Mode     string
	DryRun   bool
	Duration time.Duration
	Actions  map[string]int
	Errors   map[string]int
}

// ObserveCompile records one finished compile pass.
func ObserveCompile(s CompileSample) {
	dry := "false"
	if s.DryRun {
		dry = "true"
	}
	compileRuns.WithLabelValues(s.Mode, dry).Inc()
	compileDuration.WithLabelValues(s.Mode).Observe(s.Duration.Seconds())
	for action, n := range s.Actions {
		if n > 0 {
			compileEntries.WithLabelValues(action).Add(float64(n))
		}
	}
	for kind, n := range s.Errors {
		if n > 0 {
			compileErrors.WithLabelValues(kind).Add(float64(n))
		}
	}
}

// ObserveEmbeddingBatch counts one provider batch issued by the compiler.
func ObserveEmbeddingBatch() { embeddingCalls.Inc() }
