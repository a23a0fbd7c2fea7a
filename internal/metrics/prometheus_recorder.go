package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "pagewrap"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	passDuration    *prom.HistogramVec
	passOutcome     *prom.CounterVec
	fileResults     *prom.CounterVec
	missingIncludes prom.Counter
	lastPass        prom.Gauge
}

// NewPrometheusRecorder constructs the pass metrics and registers them with reg.
// A nil registry gets a private one.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		passDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of assembly passes",
			Buckets:   prom.DefBuckets,
		}, []string{"scope"}),
		passOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pass_outcomes_total",
			Help:      "Assembly passes by final status",
		}, []string{"outcome"}),
		fileResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "file_results_total",
			Help:      "Output files by result",
		}, []string{"result"}),
		missingIncludes: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "missing_includes_total",
			Help:      "Includes replaced by a placeholder because no partial was found",
		}),
		lastPass: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time at which the last assembly pass finished",
		}),
	}
	reg.MustRegister(pr.passDuration, pr.passOutcome, pr.fileResults, pr.missingIncludes, pr.lastPass)
	return pr
}

func (p *PrometheusRecorder) ObservePassDuration(scope string, d time.Duration) {
	if p == nil {
		return
	}
	p.passDuration.WithLabelValues(scope).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPassOutcome(outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.passOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncFileResult(result ResultLabel) {
	if p == nil {
		return
	}
	p.fileResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncMissingInclude() {
	if p == nil {
		return
	}
	p.missingIncludes.Inc()
}

func (p *PrometheusRecorder) SetLastPass(t time.Time) {
	if p == nil {
		return
	}
	p.lastPass.Set(float64(t.Unix()))
}
