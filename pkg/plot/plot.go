package plot

import (
	"fmt"
	"image/color"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 5 * vg.Inch
)

type Series struct {
	Label string
	X     []float64
	Y     []float64
}

// Figure is a single panel of line series sharing one x axis.
type Figure struct {
	Title  string
	XLabel string
	YLabel string
	Series []Series
	LogX   bool
	Width  vg.Length
	Height vg.Length
}

// BodeFigure holds gain (dB) and phase (rad) over frequency. Marker, when
// positive, draws a vertical line at that frequency on both panels.
type BodeFigure struct {
	Title     string
	Frequency []float64
	Gain      []float64
	Phase     []float64
	Marker    float64
	Width     vg.Length
	Height    vg.Length
}

var markerColor = color.RGBA{R: 220, A: 255}

// Lines renders fig to path. The format follows the extension: .png uses
// dpi, .svg and .pdf are vector output.
func Lines(path string, fig Figure, dpi int) error {
	p, err := linePlot(fig.Title, fig.XLabel, fig.YLabel, fig.LogX, fig.Series)
	if err != nil {
		return err
	}
	w, h := size(fig.Width, fig.Height, DefaultWidth, DefaultHeight)
	return save(path, w, h, dpi, func(dc draw.Canvas) {
		p.Draw(dc)
	})
}

// Bode renders the stacked gain and phase panels of a frequency response.
func Bode(path string, fig BodeFigure, dpi int) error {
	if len(fig.Gain) != len(fig.Frequency) || len(fig.Phase) != len(fig.Frequency) {
		return fmt.Errorf("bode: %d frequencies, %d gains, %d phases", len(fig.Frequency), len(fig.Gain), len(fig.Phase))
	}

	gain, err := linePlot(fig.Title, "Frequency [Hz]", "Gain [dB]", true,
		[]Series{{X: fig.Frequency, Y: fig.Gain}})
	if err != nil {
		return err
	}
	phase, err := linePlot("", "Frequency [Hz]", "Phase [rad]", true,
		[]Series{{X: fig.Frequency, Y: fig.Phase}})
	if err != nil {
		return err
	}
	if fig.Marker > 0 {
		for _, p := range []*plot.Plot{gain, phase} {
			if err := addMarker(p, fig.Marker); err != nil {
				return err
			}
		}
	}

	w, h := size(fig.Width, fig.Height, 2*DefaultWidth, 2*DefaultHeight)
	return save(path, w, h, dpi, func(dc draw.Canvas) {
		tiles := draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Millimeter * 4, PadX: vg.Millimeter * 2}
		plots := [][]*plot.Plot{{gain}, {phase}}
		canvases := plot.Align(plots, tiles, dc)
		gain.Draw(canvases[0][0])
		phase.Draw(canvases[1][0])
	})
}

func linePlot(title, xlabel, ylabel string, logX bool, series []Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	if logX {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	for i, s := range series {
		if len(s.X) != len(s.Y) {
			return nil, fmt.Errorf("series %q: %d x values, %d y values", s.Label, len(s.X), len(s.Y))
		}
		xys := make(plotter.XYs, 0, len(s.X))
		for k := range s.X {
			if logX && s.X[k] <= 0 {
				continue
			}
			xys = append(xys, plotter.XY{X: s.X[k], Y: s.Y[k]})
		}
		if len(xys) == 0 {
			return nil, fmt.Errorf("series %q: no points to draw", s.Label)
		}

		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Label, err)
		}
		l.Color = plotutil.Color(i)
		l.Width = vg.Points(1.5)
		p.Add(l)
		if s.Label != "" {
			p.Legend.Add(s.Label, l)
		}
	}
	p.Legend.Top = true
	return p, nil
}

func addMarker(p *plot.Plot, x float64) error {
	ymin, ymax := p.Y.Min, p.Y.Max
	if ymin == ymax {
		ymin, ymax = ymin-1, ymax+1
	}
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: ymin}, {X: x, Y: ymax}})
	if err != nil {
		return err
	}
	l.Color = markerColor
	l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(l)
	return nil
}

func size(w, h, defW, defH vg.Length) (vg.Length, vg.Length) {
	if w <= 0 {
		w = defW
	}
	if h <= 0 {
		h = defH
	}
	return w, h
}

func save(path string, w, h vg.Length, dpi int, drawFn func(draw.Canvas)) error {
	var c vg.CanvasWriterTo
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		if dpi <= 0 {
			dpi = vgimg.DefaultDPI
		}
		c = vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))}
	case ".svg":
		c = vgsvg.New(w, h)
	case ".pdf":
		c = vgpdf.New(w, h)
	default:
		return fmt.Errorf("unsupported plot format %q", ext)
	}

	drawFn(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return f.Close()
}

// Decibels returns 20*log10(|z|) for each sample.
func Decibels(z []complex128) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = 20 * math.Log10(cmplx.Abs(v))
	}
	return out
}

// Phase returns the angle of each sample in radians.
func Phase(z []complex128) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = cmplx.Phase(v)
	}
	return out
}
