package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	providerAttempts *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	lastPrice        *prometheus.GaugeVec
	macroFreshness   *prometheus.GaugeVec
	riskScore        prometheus.Gauge
	riskConfidence   prometheus.Gauge
	lastSuccess      prometheus.Gauge
}

// New creates a recorder registered with the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		providerAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kangbo_provider_attempts_total",
				Help: "Price provider attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),
		providerLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kangbo_provider_duration_seconds",
				Help:    "Duration of price provider attempts in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
			},
			[]string{"provider"},
		),
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kangbo_pipeline_runs_total",
				Help: "Pipeline runs by status",
			},
			[]string{"status"},
		),
		runDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kangbo_pipeline_duration_seconds",
				Help:    "Duration of pipeline runs in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kangbo_last_price",
				Help: "Last accepted close for a ticker",
			},
			[]string{"ticker"},
		),
		macroFreshness: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kangbo_macro_freshness_days",
				Help: "Days since the latest observation of a macro series",
			},
			[]string{"indicator"},
		),
		riskScore: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "kangbo_risk_score",
				Help: "Latest composite macro risk score",
			},
		),
		riskConfidence: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "kangbo_risk_score_confidence",
				Help: "Confidence of the latest risk score",
			},
		),
		lastSuccess: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "kangbo_pipeline_last_success_timestamp_seconds",
				Help: "Unix time of the last successful pipeline run",
			},
		),
	}
}

// RecordProviderAttempt records one provider attempt.
func (r *Recorder) RecordProviderAttempt(provider, outcome string, d time.Duration) {
	r.providerAttempts.WithLabelValues(provider, outcome).Inc()
	r.providerLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordRun records a finished pipeline run.
func (r *Recorder) RecordRun(status string, d time.Duration) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(d.Seconds())
	if status == "ok" {
		r.lastSuccess.SetToCurrentTime()
	}
}

// RecordLastPrice records the last price for a ticker.
func (r *Recorder) RecordLastPrice(ticker string, price float64) {
	r.lastPrice.WithLabelValues(ticker).Set(price)
}

// RecordMacroFreshness records indicator staleness.
func (r *Recorder) RecordMacroFreshness(indicator string, days int) {
	r.macroFreshness.WithLabelValues(indicator).Set(float64(days))
}

// RecordRiskScore records the latest composite.
func (r *Recorder) RecordRiskScore(score, confidence float64) {
	r.riskScore.Set(score)
	r.riskConfidence.Set(confidence)
}
