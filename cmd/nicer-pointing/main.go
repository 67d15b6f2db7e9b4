package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mopilskog/NICER-Pointing/config"
	"github.com/mopilskog/NICER-Pointing/core"
	"github.com/mopilskog/NICER-Pointing/internal/logging"
	"github.com/mopilskog/NICER-Pointing/internal/observability"
	"github.com/mopilskog/NICER-Pointing/internal/plot"
	"github.com/mopilskog/NICER-Pointing/kb"
	"github.com/mopilskog/NICER-Pointing/model"
	"github.com/mopilskog/NICER-Pointing/visibility"
)

func main() {
	configPath := flag.String("config", "configs/pointing.yaml", "Path to the run configuration YAML")
	name := flag.String("name", "", "Bundled target name, e.g. PSR_J2124-3358")
	coord := flag.String("coord", "", "Target position as \"ra,dec\" in degrees (alternative to -name)")
	countRate := flag.Float64("count-rate", 0, "Nominal on-axis target count rate in cts/s (required with -coord)")
	radius := flag.Float64("radius", 5.0, "Field-of-view search radius in arcminutes")
	expTime := flag.Float64("exp-time", 1e6, "Planned exposure in seconds")
	catalogKey := flag.String("catalog", "XMM", "Catalog family to search: XMM, Chandra, Swift, eRASS1")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (empty disables)")
	follow := flag.Bool("follow", false, "Replay the visibility window on an accelerated clock, logging rise/set transitions")
	info := flag.Bool("info", false, "Print the bundled target table and exit")
	flag.Parse()

	if *info {
		printBundledTargets()
		return
	}

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewPipelineCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.String("path", *configPath), logging.String("error", err.Error()))
		os.Exit(1)
	}

	target, err := resolveTarget(*name, *coord, *countRate)
	if err != nil {
		log.Error(ctx, "invalid target", logging.String("error", err.Error()))
		os.Exit(1)
	}

	store := kb.NewStore()
	inst := buildInstrument(cfg)
	if err := store.AddInstrument(inst); err != nil {
		log.Error(ctx, "failed to register instrument", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if err := loadCatalogs(ctx, store, cfg, log); err != nil {
		log.Error(ctx, "failed to load catalogs", logging.String("error", err.Error()))
		os.Exit(1)
	}
	nhMap := loadAuxiliary(ctx, store, cfg, log)

	pipeline := core.NewPipeline(store, inst, log, collector)
	pipeline.NhMap = nhMap
	pipeline.Optimizer.Grid = core.GridSpec{
		MinArcmin:  cfg.Optimizer.GridMinArcmin,
		MaxArcmin:  cfg.Optimizer.GridMaxArcmin,
		StepArcmin: cfg.Optimizer.GridStepArcmin,
	}
	pipeline.SpectrumCfg = core.SpectrumConfig{
		EMinKeV:      cfg.Spectrum.EMinKeV,
		EMaxKeV:      cfg.Spectrum.EMaxKeV,
		Bins:         cfg.Spectrum.Bins,
		Realizations: cfg.Spectrum.Realizations,
	}
	if cfg.Spectrum.Seed != 0 {
		pipeline.SpectrumCfg.RNG = rand.New(rand.NewSource(cfg.Spectrum.Seed))
	}

	res, err := pipeline.Run(ctx, core.Request{
		Target:       target,
		CatalogKey:   *catalogKey,
		RadiusArcmin: *radius,
		ExposureSec:  *expTime,
	})
	if err != nil {
		log.Error(ctx, "pipeline run failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	printReport(target, res, *expTime)

	if cfg.Visibility.TLELine1 != "" && cfg.Visibility.TLELine2 != "" {
		reportVisibility(ctx, cfg, target, *follow, log)
	}

	if err := writeSpectrumTable(cfg, res.Spectrum); err != nil {
		log.Error(ctx, "failed to write spectrum table", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if err := writePlots(cfg, target, res); err != nil {
		log.Error(ctx, "failed to write plots", logging.String("error", err.Error()))
		os.Exit(1)
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func printBundledTargets() {
	fmt.Println("Bundled targets:")
	for _, t := range model.BundledTargets() {
		fmt.Printf("  %-18s RA %9.4f  Dec %9.4f  rate %.3f cts/s\n",
			t.Name, t.Position.RADeg, t.Position.DecDeg, t.CountRate)
	}
}

// resolveTarget builds the observation target from either a bundled
// preset name or an explicit coordinate plus count rate.
func resolveTarget(name, coord string, countRate float64) (model.Target, error) {
	if name != "" {
		preset, ok := model.LookupBundledTarget(name)
		if !ok {
			return model.Target{}, fmt.Errorf("unknown bundled target %q (try -info)", name)
		}
		return model.Target(preset), nil
	}

	if coord == "" {
		return model.Target{}, fmt.Errorf("either -name or -coord is required")
	}
	parts := strings.Split(coord, ",")
	if len(parts) != 2 {
		return model.Target{}, fmt.Errorf("coordinate must be \"ra,dec\", got %q", coord)
	}
	ra, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.Target{}, fmt.Errorf("bad RA %q: %w", parts[0], err)
	}
	dec, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.Target{}, fmt.Errorf("bad Dec %q: %w", parts[1], err)
	}
	if countRate <= 0 {
		return model.Target{}, fmt.Errorf("-count-rate must be positive when using -coord")
	}
	return model.Target{
		Name:      fmt.Sprintf("target %.4f,%.4f", ra, dec),
		Position:  model.SkyCoord{RADeg: ra, DecDeg: dec},
		CountRate: countRate,
	}, nil
}

func buildInstrument(cfg *config.Config) *model.Instrument {
	return &model.Instrument{
		Name: cfg.Instrument.Name,
		Vignetting: model.VignettingCurve{
			OffAxisArcmin: cfg.Instrument.OffAxisArcmin,
			RelativeArea:  cfg.Instrument.RelativeArea,
		},
		BackgroundRate:   cfg.Instrument.BackgroundRate,
		EffectiveAreaCm2: cfg.Instrument.EffectiveAreaCm2,
		EnergyMinKeV:     cfg.Instrument.EnergyMinKeV,
		EnergyMaxKeV:     cfg.Instrument.EnergyMaxKeV,
	}
}

func loadCatalogs(ctx context.Context, store *kb.Store, cfg *config.Config, log logging.Logger) error {
	for _, cc := range cfg.Catalogs {
		schema := model.SchemaFor(cc.Key)
		if schema == nil {
			return fmt.Errorf("unknown catalog key %q", cc.Key)
		}
		f, err := os.Open(cc.Path)
		if err != nil {
			return fmt.Errorf("opening catalog %s: %w", cc.Key, err)
		}
		table, err := core.LoadCatalog(schema, f)
		f.Close()
		if err != nil {
			return err
		}
		if err := store.AddCatalog(table); err != nil {
			return err
		}
		log.Info(ctx, "catalog loaded",
			logging.String("key", schema.Key),
			logging.String("path", cc.Path),
			logging.Int("sources", table.Len()))
	}
	return nil
}

// loadAuxiliary reads the optional auxiliary tables. Each is skipped
// with a warning if its path is unset or unreadable; a pointing run
// works without them, just with fewer authoritative parameters.
func loadAuxiliary(ctx context.Context, store *kb.Store, cfg *config.Config, log logging.Logger) core.NhProvider {
	var (
		detections []model.DR11Row
		fits       []model.SpectralFitRow
		master     []model.MasterJoin
		nhMap      *core.NhSkyMap
	)

	if path := cfg.Auxiliary.DetectionsPath; path != "" {
		if f, err := os.Open(path); err != nil {
			log.Warn(ctx, "skipping detections table", logging.String("path", path), logging.String("error", err.Error()))
		} else {
			detections, err = core.LoadDetections(f)
			f.Close()
			if err != nil {
				log.Warn(ctx, "failed to parse detections table", logging.String("path", path), logging.String("error", err.Error()))
			}
		}
	}
	if path := cfg.Auxiliary.FitsPath; path != "" {
		if f, err := os.Open(path); err != nil {
			log.Warn(ctx, "skipping spectral fits table", logging.String("path", path), logging.String("error", err.Error()))
		} else {
			fits, err = core.LoadSpectralFits(f)
			f.Close()
			if err != nil {
				log.Warn(ctx, "failed to parse spectral fits table", logging.String("path", path), logging.String("error", err.Error()))
			}
		}
	}
	if path := cfg.Auxiliary.MasterPath; path != "" {
		if f, err := os.Open(path); err != nil {
			log.Warn(ctx, "skipping master table", logging.String("path", path), logging.String("error", err.Error()))
		} else {
			// Master joins are read per catalog family; keep the union so
			// every loaded catalog can classify variability.
			for _, cc := range cfg.Catalogs {
				schema := model.SchemaFor(cc.Key)
				if schema == nil {
					continue
				}
				if _, err := f.Seek(0, 0); err != nil {
					break
				}
				rows, err := core.LoadMasterJoins(schema, f)
				if err != nil {
					log.Warn(ctx, "failed to parse master table", logging.String("path", path), logging.String("error", err.Error()))
					break
				}
				master = append(master, rows...)
			}
			f.Close()
		}
	}
	if path := cfg.Auxiliary.NhMapPath; path != "" {
		if f, err := os.Open(path); err != nil {
			log.Warn(ctx, "skipping column density map", logging.String("path", path), logging.String("error", err.Error()))
		} else {
			nhMap, err = core.LoadNhSkyMap(f)
			f.Close()
			if err != nil {
				log.Warn(ctx, "failed to parse column density map", logging.String("path", path), logging.String("error", err.Error()))
			}
		}
	}

	store.SetAuxiliary(detections, fits, master)
	if nhMap == nil {
		return nil
	}
	return nhMap
}

func printReport(target model.Target, res *core.Result, exposure float64) {
	fmt.Printf("Target: %s (RA %.4f, Dec %.4f), nominal rate %.3f cts/s, exposure %.0f s\n",
		target.Name, target.Position.RADeg, target.Position.DecDeg, target.CountRate, exposure)
	fmt.Printf("Field sources: %d (%d variable)\n", res.Field.Len(), len(res.Split.Variable))
	fmt.Println()

	fmt.Printf("%-26s %9s %9s %8s %9s %8s %s\n",
		"NAME", "RA", "DEC", "GAMMA", "NH", "CTS/S", "FLAGS")
	for _, src := range res.Field.Sources {
		flags := ""
		if src.Variable {
			flags += "V"
		}
		if src.Authoritative {
			flags += "A"
		}
		fmt.Printf("%-26s %9.4f %9.4f %8.2f %9.2e %8.4f %s\n",
			src.Name, src.Position.RADeg, src.Position.DecDeg,
			src.PhotonIndex, src.Nh, src.CountRate, flags)
	}
	fmt.Println()

	fmt.Printf("Optimal pointing: RA %.4f, Dec %.4f\n", res.Pointing.Position.RADeg, res.Pointing.Position.DecDeg)
	fmt.Printf("  SNR %.2f (target %.4f cts/s, contaminating %.4f cts/s)\n",
		res.Pointing.SNR, res.Pointing.TargetRate, res.Pointing.SourceRate)
	offRA := (res.Pointing.Position.RADeg - target.Position.RADeg) * core.ArcminPerDeg
	offDec := (res.Pointing.Position.DecDeg - target.Position.DecDeg) * core.ArcminPerDeg
	fmt.Printf("  offset from nominal: %+.2f' RA, %+.2f' Dec\n", offRA, offDec)
}

func reportVisibility(ctx context.Context, cfg *config.Config, target model.Target, follow bool, log logging.Logger) {
	platform, err := visibility.NewPlatformFromTLE(cfg.Visibility.TLELine1, cfg.Visibility.TLELine2)
	if err != nil {
		log.Warn(ctx, "skipping visibility sweep", logging.String("error", err.Error()))
		return
	}
	start := time.Now().UTC()
	window := time.Duration(cfg.Visibility.WindowHours) * time.Hour
	step := time.Duration(cfg.Visibility.StepMinutes) * time.Minute

	if follow {
		visible := visibility.Follow(platform, target.Name, target.Position, start, window, step, log)
		fmt.Println()
		fmt.Printf("Followed %s of station time: %s visible (%.0f%%)\n",
			window, visible.Round(time.Minute), 100*float64(visible)/float64(window))
		return
	}

	sweep := visibility.Sweep(platform, target.Position, start, window, step)

	fmt.Println()
	fmt.Printf("Station visibility over the next %s: %.0f%% of samples\n", window, sweep.Fraction*100)
	for _, w := range sweep.Windows {
		fmt.Printf("  %s – %s (%s)\n",
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), w.Duration().Round(time.Minute))
	}
}

// writeSpectrumTable writes the summed model spectrum and its
// variability envelope as whitespace-separated columns.
func writeSpectrumTable(cfg *config.Config, spec *core.AggregateSpectrum) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(cfg.Output.Dir, "spectrum.txt"))
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%-10s %-14s %-14s %-14s\n", "E_keV", "total", "upper", "lower"); err != nil {
		return err
	}
	for i, e := range spec.EnergiesKeV {
		_, err := fmt.Fprintf(f, "%-10.4f %-14.6e %-14.6e %-14.6e\n",
			e, spec.Total[i], spec.Upper[i], spec.Lower[i])
		if err != nil {
			return err
		}
	}
	return nil
}

func writePlots(cfg *config.Config, target model.Target, res *core.Result) error {
	if !cfg.Output.PlotSNR && !cfg.Output.PlotSpec {
		return nil
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return err
	}

	if cfg.Output.PlotSNR {
		renderer := plot.NewSNRMapRenderer(res.Pointing, target, res.Field.Positions())
		if err := writePlot(cfg, "snr_map", renderer.RenderToPNG, renderer.RenderToSVG); err != nil {
			return err
		}
	}
	if cfg.Output.PlotSpec {
		renderer := plot.NewSpectrumRenderer(res.Spectrum)
		if err := writePlot(cfg, "spectrum", renderer.RenderToPNG, renderer.RenderToSVG); err != nil {
			return err
		}
	}
	return nil
}

func writePlot(cfg *config.Config, stem string, renderPNG, renderSVG func(w io.Writer) error) error {
	f, err := os.Create(filepath.Join(cfg.Output.Dir, stem+".png"))
	if err != nil {
		return err
	}
	if err := renderPNG(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if !cfg.Output.PlotsSVG {
		return nil
	}
	f, err = os.Create(filepath.Join(cfg.Output.Dir, stem+".svg"))
	if err != nil {
		return err
	}
	if err := renderSVG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func serveMetrics(addr string, collector *observability.PipelineCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
