package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ingestTotal  *prometheus.CounterVec
	runsTotal    *prometheus.CounterVec
	degradations *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	fusedRate    prometheus.Gauge
	probability  *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New registers the engine metrics on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ingestTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratecast_observations_ingested_total",
				Help: "Observations ingested by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratecast_model_runs_total",
				Help: "Model runs by terminal state",
			},
			[]string{"state"},
		),
		degradations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratecast_run_degradations_total",
				Help: "Degradation flags raised on persisted runs",
			},
			[]string{"flag"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratecast_errors_total",
				Help: "Errors by kind",
			},
			[]string{"type"},
		),
		fusedRate: f.NewGauge(prometheus.GaugeOpts{
			Name: "ratecast_fused_rate_pct",
			Help: "Fused policy rate estimate of the latest run",
		}),
		probability: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ratecast_decision_probability",
				Help: "Decision probabilities of the latest run",
			},
			[]string{"decision"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ratecast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordIngest(kind, outcome string) {
	r.ingestTotal.WithLabelValues(kind, outcome).Inc()
}

func (r *Recorder) RecordRun(state string) {
	r.runsTotal.WithLabelValues(state).Inc()
}

func (r *Recorder) RecordDegradation(flag string) {
	r.degradations.WithLabelValues(flag).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordFusedRate(rate float64) {
	r.fusedRate.Set(rate)
}

func (r *Recorder) RecordProbability(decision string, p float64) {
	r.probability.WithLabelValues(decision).Set(p)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordIngest(string, string)       {}
func (Nop) RecordRun(string)                  {}
func (Nop) RecordDegradation(string)          {}
func (Nop) RecordError(string)                {}
func (Nop) RecordFusedRate(float64)           {}
func (Nop) RecordProbability(string, float64) {}
func (Nop) RecordLatency(string, float64)     {}
