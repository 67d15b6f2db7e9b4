package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineCollector bundles Prometheus metrics for the pointing
// pipeline and provides a ready-made /metrics handler.
type PipelineCollector struct {
	gatherer prometheus.Gatherer

	StageDurations *prometheus.HistogramVec
	StageFailures  *prometheus.CounterVec

	FieldSources     prometheus.Gauge
	VariableSources  prometheus.Gauge
	FitFallbacks     prometheus.Counter
	CrossMatchMisses prometheus.Counter
	OptimalSNR       prometheus.Gauge
}

// NewPipelineCollector registers pipeline metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Double registration returns the existing collectors, so constructing
// several pipelines against one registry is safe.
func NewPipelineCollector(reg prometheus.Registerer) (*PipelineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Wall-clock duration of each pipeline stage.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"stage"})
	durations, err := registerHistogramVec(reg, durations, "pipeline_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_stage_failures_total",
		Help: "Pipeline stage errors, labeled by stage.",
	}, []string{"stage"})
	failures, err = registerCounterVec(reg, failures, "pipeline_stage_failures_total")
	if err != nil {
		return nil, err
	}

	fieldSources, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_field_sources",
		Help: "Sources surviving the field-of-view cut in the current run.",
	}), "pipeline_field_sources")
	if err != nil {
		return nil, err
	}
	variableSources, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_variable_sources",
		Help: "Sources classified variable in the current run.",
	}), "pipeline_variable_sources")
	if err != nil {
		return nil, err
	}

	fallbacks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_fit_fallbacks_total",
		Help: "Spectral fits that did not converge and fell back to default parameters.",
	}), "pipeline_fit_fallbacks_total")
	if err != nil {
		return nil, err
	}
	misses, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_crossmatch_misses_total",
		Help: "Sources with no counterpart in the auxiliary spectral catalog.",
	}), "pipeline_crossmatch_misses_total")
	if err != nil {
		return nil, err
	}

	snr, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_optimal_snr",
		Help: "Signal-to-noise ratio at the optimal pointing of the current run.",
	}), "pipeline_optimal_snr")
	if err != nil {
		return nil, err
	}

	return &PipelineCollector{
		gatherer:         gatherer,
		StageDurations:   durations,
		StageFailures:    failures,
		FieldSources:     fieldSources,
		VariableSources:  variableSources,
		FitFallbacks:     fallbacks,
		CrossMatchMisses: misses,
		OptimalSNR:       snr,
	}, nil
}

// ObserveStage records one stage execution. It is nil-safe so callers
// can run without metrics wired.
func (c *PipelineCollector) ObserveStage(stage string, d time.Duration, err error) {
	if c == nil {
		return
	}
	if c.StageDurations != nil {
		c.StageDurations.WithLabelValues(stage).Observe(d.Seconds())
	}
	if err != nil && c.StageFailures != nil {
		c.StageFailures.WithLabelValues(stage).Inc()
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PipelineCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
