package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mopilskog/NICER-Pointing/internal/logging"
	"github.com/mopilskog/NICER-Pointing/internal/observability"
	"github.com/mopilskog/NICER-Pointing/kb"
	"github.com/mopilskog/NICER-Pointing/model"
)

const tracerName = "github.com/mopilskog/NICER-Pointing/core"

// Request describes one pointing-optimization run.
type Request struct {
	Target       model.Target
	CatalogKey   string
	RadiusArcmin float64
	ExposureSec  float64
}

// Result bundles everything a run produced, for reporting and plotting.
type Result struct {
	Field    *model.SourceTable
	Stats    EstimateStats
	Split    VariabilitySplit
	Pointing *OptimalPointing
	Spectrum *AggregateSpectrum
}

// Pipeline wires the pointing stages together: field-of-view filtering,
// spectral parameter estimation, count-rate prediction, variability
// classification, grid optimization, and spectrum aggregation. Each
// stage runs under its own span and records its duration.
type Pipeline struct {
	Store       *kb.Store
	Instrument  *model.Instrument
	Estimator   *Estimator
	Predictor   RatePredictor
	Optimizer   *Optimizer
	SpectrumCfg SpectrumConfig

	// NhMap optionally supplies sky-position column densities to the
	// estimator's fallback path.
	NhMap NhProvider

	Log     logging.Logger
	Metrics *observability.PipelineCollector
}

// NewPipeline assembles a Pipeline with the built-in estimator,
// predictor, and default grid. metrics may be nil.
func NewPipeline(store *kb.Store, inst *model.Instrument, log logging.Logger, metrics *observability.PipelineCollector) *Pipeline {
	if log == nil {
		log = logging.Noop()
	}
	return &Pipeline{
		Store:       store,
		Instrument:  inst,
		Estimator:   NewEstimator(log),
		Predictor:   NewPowerLawRatePredictor(),
		Optimizer:   NewOptimizer(inst),
		SpectrumCfg: DefaultSpectrumConfig(),
		Log:         log,
		Metrics:     metrics,
	}
}

// Run executes the full pipeline for one request.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	ctx, log := logging.WithRunLogger(ctx, p.Log)
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "pipeline/run", trace.WithAttributes(
		attribute.String("target", req.Target.Name),
		attribute.String("catalog", req.CatalogKey),
		attribute.Float64("radius_arcmin", req.RadiusArcmin),
		attribute.Float64("exposure_sec", req.ExposureSec),
	))
	defer span.End()

	catalog := p.Store.Catalog(req.CatalogKey)
	if catalog == nil {
		err := fmt.Errorf("catalog %q not loaded", req.CatalogKey)
		span.RecordError(err)
		return nil, err
	}
	detections, fits, master := p.Store.Auxiliary()

	res := &Result{}

	err := p.stage(ctx, tracer, "filter", func(ctx context.Context) error {
		field, err := FilterFieldOfView(catalog, req.Target.Position, req.RadiusArcmin)
		if err != nil {
			return err
		}
		res.Field = field
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p.Metrics != nil {
		p.Metrics.FieldSources.Set(float64(res.Field.Len()))
	}
	log.Info(ctx, "field of view selected",
		logging.String("catalog", req.CatalogKey),
		logging.Int("sources", res.Field.Len()))

	err = p.stage(ctx, tracer, "estimate", func(ctx context.Context) error {
		res.Stats = p.Estimator.EstimateAll(ctx, res.Field, detections, fits, p.NhMap)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p.Metrics != nil {
		if n := res.Stats.Fallbacks; n > 0 {
			p.Metrics.FitFallbacks.Add(float64(n))
		}
		if n := res.Field.Len() - res.Stats.Authoritative; n > 0 {
			p.Metrics.CrossMatchMisses.Add(float64(n))
		}
	}
	log.Info(ctx, "spectral parameters estimated",
		logging.Int("authoritative", res.Stats.Authoritative),
		logging.Int("fitted", res.Stats.Fitted),
		logging.Int("fallbacks", res.Stats.Fallbacks))

	err = p.stage(ctx, tracer, "predict", func(ctx context.Context) error {
		return PredictRates(p.Instrument, p.Predictor, res.Field)
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, tracer, "classify", func(ctx context.Context) error {
		res.Split = ClassifyVariability(res.Field, master)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p.Metrics != nil {
		p.Metrics.VariableSources.Set(float64(len(res.Split.Variable)))
	}

	err = p.stage(ctx, tracer, "optimize", func(ctx context.Context) error {
		pointing, err := p.Optimizer.Optimize(req.Target, res.Field, req.ExposureSec)
		if err != nil {
			return err
		}
		res.Pointing = pointing
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p.Metrics != nil {
		p.Metrics.OptimalSNR.Set(res.Pointing.SNR)
	}
	log.Info(ctx, "optimal pointing found",
		logging.Any("ra_deg", res.Pointing.Position.RADeg),
		logging.Any("dec_deg", res.Pointing.Position.DecDeg),
		logging.Any("snr", res.Pointing.SNR))

	err = p.stage(ctx, tracer, "aggregate", func(ctx context.Context) error {
		pred, ok := p.Predictor.(*PowerLawRatePredictor)
		if !ok {
			pred = NewPowerLawRatePredictor()
		}
		res.Spectrum = AggregateSpectra(res.Field, res.Split, pred, p.SpectrumCfg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// stage runs fn under a child span and records its duration and outcome.
func (p *Pipeline) stage(ctx context.Context, tracer trace.Tracer, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "pipeline/"+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.Metrics.ObserveStage(name, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
	}
	return err
}
