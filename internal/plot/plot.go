// Package plot renders the run's QA graphics: the SNR map over the
// pointing grid and the field's aggregate spectrum. Both render to PNG
// and SVG through the same canvas backends.
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
	"github.com/mopilskog/NICER-Pointing/model"
)

// canvasRenderer is the subset both svg and rasterizer renderers
// implement.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// SNRMapRenderer draws the optimizer's SNR surface as a heatmap with
// the winning pointing and the field sources marked.
type SNRMapRenderer struct {
	Pointing *core.OptimalPointing
	Target   model.Target
	Sources  []model.SkyCoord

	// CellMM is the rendered size of one grid cell in canvas units.
	CellMM     float64
	Resolution canvas.Resolution
}

// NewSNRMapRenderer builds a renderer with default sizing.
func NewSNRMapRenderer(p *core.OptimalPointing, target model.Target, sources []model.SkyCoord) *SNRMapRenderer {
	return &SNRMapRenderer{
		Pointing:   p,
		Target:     target,
		Sources:    sources,
		CellMM:     1.0,
		Resolution: canvas.DPI(150),
	}
}

// RenderToSVG writes the SNR map as an SVG to the provided writer.
func (r *SNRMapRenderer) RenderToSVG(w io.Writer) error {
	width, height := r.size()
	svgRenderer := svg.New(w, width, height, nil)
	r.render(svgRenderer, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the SNR map as a PNG to the provided writer.
func (r *SNRMapRenderer) RenderToPNG(w io.Writer) error {
	width, height := r.size()
	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.render(rast, width, height)
	return png.Encode(w, rast)
}

func (r *SNRMapRenderer) size() (float64, float64) {
	cols := len(r.Pointing.RAOffsetsDeg)
	rows := len(r.Pointing.DecOffsetsDeg)
	return float64(cols) * r.CellMM, float64(rows) * r.CellMM
}

func (r *SNRMapRenderer) render(renderer canvasRenderer, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	lo, hi := gridRange(r.Pointing.SNRGrid)
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	cellStyle := canvas.DefaultStyle
	cellStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
	for row, line := range r.Pointing.SNRGrid {
		for col, snr := range line {
			cellStyle.Fill = canvas.Paint{Color: heatColor((snr - lo) / span)}
			cell := canvas.Rectangle(r.CellMM, r.CellMM)
			cell = cell.Translate(float64(col)*r.CellMM, float64(row)*r.CellMM)
			renderer.RenderPath(cell, cellStyle, canvas.Identity)
		}
	}

	// Field sources as open circles.
	srcStyle := canvas.DefaultStyle
	srcStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	srcStyle.Stroke = canvas.Paint{Color: canvas.Black}
	srcStyle.StrokeWidth = 0.4
	for _, pos := range r.Sources {
		x, y, ok := r.toGrid(pos)
		if !ok {
			continue
		}
		dot := canvas.Circle(1.5 * r.CellMM)
		dot = dot.Translate(x, y)
		renderer.RenderPath(dot, srcStyle, canvas.Identity)
	}

	// Winning pointing as a filled circle.
	winStyle := canvas.DefaultStyle
	winStyle.Fill = canvas.Paint{Color: color.RGBA{R: 220, A: 255}}
	winStyle.Stroke = canvas.Paint{Color: canvas.Black}
	winStyle.StrokeWidth = 0.4
	if x, y, ok := r.toGrid(r.Pointing.Position); ok {
		marker := canvas.Circle(2 * r.CellMM)
		marker = marker.Translate(x, y)
		renderer.RenderPath(marker, winStyle, canvas.Identity)
	}
}

// toGrid maps a sky position onto canvas coordinates; ok is false when
// the position falls outside the rendered grid.
func (r *SNRMapRenderer) toGrid(pos model.SkyCoord) (x, y float64, ok bool) {
	ras := r.Pointing.RAOffsetsDeg
	decs := r.Pointing.DecOffsetsDeg
	if len(ras) < 2 || len(decs) < 2 {
		return 0, 0, false
	}
	dRA := pos.RADeg - r.Target.Position.RADeg
	dDec := pos.DecDeg - r.Target.Position.DecDeg
	if dRA < ras[0] || dRA > ras[len(ras)-1] || dDec < decs[0] || dDec > decs[len(decs)-1] {
		return 0, 0, false
	}
	col := (dRA - ras[0]) / (ras[len(ras)-1] - ras[0]) * float64(len(ras)-1)
	row := (dDec - decs[0]) / (decs[len(decs)-1] - decs[0]) * float64(len(decs)-1)
	return col * r.CellMM, row * r.CellMM, true
}

func gridRange(grid [][]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range grid {
		for _, v := range row {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

// heatColor maps t in [0, 1] onto a dark-blue to yellow ramp.
func heatColor(t float64) color.RGBA {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return color.RGBA{
		R: uint8(255 * t),
		G: uint8(220 * t),
		B: uint8(96 * (1 - t)),
		A: 255,
	}
}
