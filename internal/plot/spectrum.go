package plot

import (
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/mopilskog/NICER-Pointing/core"
)

// SpectrumRenderer draws the aggregate model spectrum with its
// variability envelope on log-log axes.
type SpectrumRenderer struct {
	Spectrum *core.AggregateSpectrum

	WidthMM    float64
	HeightMM   float64
	Resolution canvas.Resolution
}

// NewSpectrumRenderer builds a renderer with default sizing.
func NewSpectrumRenderer(s *core.AggregateSpectrum) *SpectrumRenderer {
	return &SpectrumRenderer{
		Spectrum:   s,
		WidthMM:    160,
		HeightMM:   100,
		Resolution: canvas.DPI(150),
	}
}

// RenderToSVG writes the spectrum as an SVG to the provided writer.
func (r *SpectrumRenderer) RenderToSVG(w io.Writer) error {
	svgRenderer := svg.New(w, r.WidthMM, r.HeightMM, nil)
	r.render(svgRenderer)
	return svgRenderer.Close()
}

// RenderToPNG writes the spectrum as a PNG to the provided writer.
func (r *SpectrumRenderer) RenderToPNG(w io.Writer) error {
	rast := rasterizer.New(r.WidthMM, r.HeightMM, r.Resolution, canvas.DefaultColorSpace)
	r.render(rast)
	return png.Encode(w, rast)
}

func (r *SpectrumRenderer) render(renderer canvasRenderer) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(r.WidthMM, r.HeightMM), bgStyle, canvas.Identity)

	s := r.Spectrum
	if len(s.EnergiesKeV) < 2 {
		return
	}

	xLo := math.Log10(s.EnergiesKeV[0])
	xHi := math.Log10(s.EnergiesKeV[len(s.EnergiesKeV)-1])
	yLo, yHi := logRange(s.Lower, s.Upper, s.Total)
	if yHi <= yLo {
		return
	}

	toX := func(e float64) float64 {
		return (math.Log10(e) - xLo) / (xHi - xLo) * r.WidthMM
	}
	toY := func(f float64) float64 {
		if f <= 0 {
			return 0
		}
		return (math.Log10(f) - yLo) / (yHi - yLo) * r.HeightMM
	}

	envStyle := canvas.DefaultStyle
	envStyle.Fill = canvas.Paint{Color: color.RGBA{R: 198, G: 214, B: 240, A: 255}}
	envStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
	renderer.RenderPath(envelopePath(s, toX, toY), envStyle, canvas.Identity)

	lineStyle := canvas.DefaultStyle
	lineStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	lineStyle.Stroke = canvas.Paint{Color: color.RGBA{B: 160, A: 255}}
	lineStyle.StrokeWidth = 0.6
	renderer.RenderPath(polyline(s.EnergiesKeV, s.Total, toX, toY), lineStyle, canvas.Identity)
}

// envelopePath traces Upper forward and Lower backward into a closed
// region.
func envelopePath(s *core.AggregateSpectrum, toX, toY func(float64) float64) *canvas.Path {
	p := &canvas.Path{}
	p.MoveTo(toX(s.EnergiesKeV[0]), toY(s.Upper[0]))
	for i := 1; i < len(s.EnergiesKeV); i++ {
		p.LineTo(toX(s.EnergiesKeV[i]), toY(s.Upper[i]))
	}
	for i := len(s.EnergiesKeV) - 1; i >= 0; i-- {
		p.LineTo(toX(s.EnergiesKeV[i]), toY(s.Lower[i]))
	}
	p.Close()
	return p
}

func polyline(xs, ys []float64, toX, toY func(float64) float64) *canvas.Path {
	p := &canvas.Path{}
	p.MoveTo(toX(xs[0]), toY(ys[0]))
	for i := 1; i < len(xs); i++ {
		p.LineTo(toX(xs[i]), toY(ys[i]))
	}
	return p
}

// logRange finds decade bounds covering every positive sample.
func logRange(series ...[]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			if v <= 0 {
				continue
			}
			lv := math.Log10(v)
			if lv < lo {
				lo = lv
			}
			if lv > hi {
				hi = lv
			}
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return math.Floor(lo), math.Ceil(hi)
}
