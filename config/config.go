// Package config loads the pointing tool's run configuration from
// YAML: which catalog files to read, the instrument description, and
// the optimizer's knobs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the unified run configuration.
type Config struct {
	Catalogs   []CatalogConfig  `yaml:"catalogs"`
	Auxiliary  AuxiliaryConfig  `yaml:"auxiliary"`
	Instrument InstrumentConfig `yaml:"instrument"`
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
	Spectrum   SpectrumConfig   `yaml:"spectrum"`
	Visibility VisibilityConfig `yaml:"visibility"`
	Output     OutputConfig     `yaml:"output"`
}

// CatalogConfig points at one survey catalog file.
type CatalogConfig struct {
	Key  string `yaml:"key"`  // schema key: XMM, Chandra, Swift, eRASS1
	Path string `yaml:"path"` // JSON rows
}

// AuxiliaryConfig points at the optional auxiliary tables.
type AuxiliaryConfig struct {
	DetectionsPath string `yaml:"detections_path"`
	FitsPath       string `yaml:"fits_path"`
	MasterPath     string `yaml:"master_path"`
	NhMapPath      string `yaml:"nh_map_path"`
}

// InstrumentConfig describes the telescope.
type InstrumentConfig struct {
	Name             string    `yaml:"name"`
	BackgroundRate   float64   `yaml:"background_rate"`
	EffectiveAreaCm2 float64   `yaml:"effective_area_cm2"`
	EnergyMinKeV     float64   `yaml:"energy_min_kev"`
	EnergyMaxKeV     float64   `yaml:"energy_max_kev"`
	OffAxisArcmin    []float64 `yaml:"off_axis_arcmin"`
	RelativeArea     []float64 `yaml:"relative_area"`
}

// OptimizerConfig tunes the pointing grid search.
type OptimizerConfig struct {
	GridMinArcmin  float64 `yaml:"grid_min_arcmin"`
	GridMaxArcmin  float64 `yaml:"grid_max_arcmin"`
	GridStepArcmin float64 `yaml:"grid_step_arcmin"`
}

// SpectrumConfig tunes the aggregate spectrum Monte Carlo.
type SpectrumConfig struct {
	EMinKeV      float64 `yaml:"e_min_kev"`
	EMaxKeV      float64 `yaml:"e_max_kev"`
	Bins         int     `yaml:"bins"`
	Realizations int     `yaml:"realizations"`
	Seed         int64   `yaml:"seed"`
}

// VisibilityConfig enables the ISS visibility sweep.
type VisibilityConfig struct {
	TLELine1    string `yaml:"tle_line1"`
	TLELine2    string `yaml:"tle_line2"`
	WindowHours int    `yaml:"window_hours"`
	StepMinutes int    `yaml:"step_minutes"`
}

// OutputConfig chooses where reports and plots land.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	PlotSNR  bool   `yaml:"plot_snr"`
	PlotSpec bool   `yaml:"plot_spectrum"`
	PlotsSVG bool   `yaml:"plots_svg"` // emit SVG next to PNG
}

// Load reads and validates a configuration file, applying defaults for
// unset optional fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if len(cfg.Catalogs) == 0 {
		return nil, fmt.Errorf("at least one catalog must be defined")
	}
	for i, cc := range cfg.Catalogs {
		if cc.Key == "" {
			return nil, fmt.Errorf("catalogs[%d].key is required", i)
		}
		if cc.Path == "" {
			return nil, fmt.Errorf("catalogs[%d].path is required for %s", i, cc.Key)
		}
	}
	if len(cfg.Instrument.OffAxisArcmin) != len(cfg.Instrument.RelativeArea) {
		return nil, fmt.Errorf("instrument.off_axis_arcmin and instrument.relative_area must have equal length")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Instrument.Name == "" {
		cfg.Instrument.Name = "NICER-XTI"
	}
	if cfg.Instrument.BackgroundRate == 0 {
		cfg.Instrument.BackgroundRate = 0.2
	}
	if cfg.Instrument.EffectiveAreaCm2 == 0 {
		cfg.Instrument.EffectiveAreaCm2 = 1900
	}
	if cfg.Instrument.EnergyMinKeV == 0 {
		cfg.Instrument.EnergyMinKeV = 0.3
	}
	if cfg.Instrument.EnergyMaxKeV == 0 {
		cfg.Instrument.EnergyMaxKeV = 10.0
	}
	if len(cfg.Instrument.OffAxisArcmin) == 0 {
		// Nominal XTI vignetting: full response on axis, falling to
		// about a tenth at the edge of the 7 arcmin search cone.
		cfg.Instrument.OffAxisArcmin = []float64{0, 1, 2, 3, 4, 5, 6, 7}
		cfg.Instrument.RelativeArea = []float64{1.0, 0.95, 0.83, 0.67, 0.5, 0.33, 0.2, 0.1}
	}

	if cfg.Optimizer.GridMinArcmin == 0 && cfg.Optimizer.GridMaxArcmin == 0 {
		cfg.Optimizer.GridMinArcmin = -7.0
		cfg.Optimizer.GridMaxArcmin = 7.05
	}
	if cfg.Optimizer.GridStepArcmin == 0 {
		cfg.Optimizer.GridStepArcmin = 0.05
	}

	if cfg.Spectrum.EMinKeV == 0 {
		cfg.Spectrum.EMinKeV = 0.3
	}
	if cfg.Spectrum.EMaxKeV == 0 {
		cfg.Spectrum.EMaxKeV = 10.0
	}
	if cfg.Spectrum.Bins == 0 {
		cfg.Spectrum.Bins = 100
	}
	if cfg.Spectrum.Realizations == 0 {
		cfg.Spectrum.Realizations = 100
	}

	if cfg.Visibility.WindowHours == 0 {
		cfg.Visibility.WindowHours = 24
	}
	if cfg.Visibility.StepMinutes == 0 {
		cfg.Visibility.StepMinutes = 1
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "out"
	}
}
