package telemetry

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Telemetry tracks pipeline runs: outcomes, stage failures, durations and
// token usage. Counters are exported via /metrics; per-run details go to the
// process log. Raw model text and API credentials are never recorded here.
type Telemetry struct {
	logger *log.Logger

	runsTotal     *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	runDuration   prometheus.Histogram
	tokensUsed    *prometheus.CounterVec
}

// RunEvent describes one completed pipeline run.
type RunEvent struct {
	Success      bool
	FailureKind  string
	Duration     time.Duration
	PromptTokens int64
	OutputTokens int64
}

// New registers the pipeline collectors with reg.
func New(reg prometheus.Registerer) *Telemetry {
	factory := promauto.With(reg)
	return &Telemetry{
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_runs_total",
			Help: "Completed analysis runs by outcome.",
		}, []string{"outcome"}),
		stageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_stage_failures_total",
			Help: "Run failures by originating error kind.",
		}, []string{"kind"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "analysis_run_duration_seconds",
			Help:    "Wall time of one submit-to-persist cycle.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		}),
		tokensUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_llm_tokens_total",
			Help: "Token usage reported by the completion provider.",
		}, []string{"direction"}),
	}
}

// RecordRun records one completed run.
func (t *Telemetry) RecordRun(ev RunEvent) {
	outcome := "succeeded"
	if !ev.Success {
		outcome = "failed"
		t.stageFailures.WithLabelValues(ev.FailureKind).Inc()
	}
	t.runsTotal.WithLabelValues(outcome).Inc()
	t.runDuration.Observe(ev.Duration.Seconds())
	if ev.PromptTokens > 0 {
		t.tokensUsed.WithLabelValues("prompt").Add(float64(ev.PromptTokens))
	}
	if ev.OutputTokens > 0 {
		t.tokensUsed.WithLabelValues("output").Add(float64(ev.OutputTokens))
	}

	t.logger.Printf("run: success=%t kind=%s duration=%v tokens=%d/%d",
		ev.Success, ev.FailureKind, ev.Duration, ev.PromptTokens, ev.OutputTokens)
}
