package commands

import (
	"log/slog"

	"github.com/edp1096/toy-spice-tutorials/pkg/analysis"
	"github.com/edp1096/toy-spice-tutorials/pkg/plot"
)

func nodeSeries(r *analysis.Result[float64], x []float64) []plot.Series {
	var out []plot.Series
	for _, name := range r.Nodes().Names() {
		y := r.Node(name)
		if len(y) != len(x) {
			continue
		}
		out = append(out, plot.Series{Label: "V(" + name + ")", X: x, Y: y})
	}
	return out
}

func saveSweepFigure(r *analysis.Result[float64], xNode string) error {
	x := []float64(r.Sweep())
	xLabel := r.SweepName() + " [V]"
	if xNode != "" {
		if w, ok := r.Nodes().Get(xNode); ok {
			x = w
			xLabel = "V(" + xNode + ") [V]"
		}
	}
	return saveLines(plot.Figure{
		Title:  r.Title(),
		XLabel: xLabel,
		YLabel: "Voltage [V]",
		Series: nodeSeries(r, x),
	})
}

func saveTransientFigure(r *analysis.Result[float64]) error {
	return saveLines(plot.Figure{
		Title:  r.Title(),
		XLabel: "Time [s]",
		YLabel: "Voltage [V]",
		Series: nodeSeries(r, r.Time()),
	})
}

func saveLines(fig plot.Figure) error {
	path := figurePath()
	if err := plot.Lines(path, fig, cfg.DPI); err != nil {
		return err
	}
	slog.Info("figure saved", "path", path)
	return nil
}

// saveBodeFigure plots the response of node over frequency with an optional
// break frequency marker.
func saveBodeFigure(r *analysis.Result[complex128], node string, marker float64) error {
	h := r.Node(node)
	freq := analysis.Real(r.Frequency())
	path := figurePath()
	err := plot.Bode(path, plot.BodeFigure{
		Title:     "Bode Diagram of " + r.Title(),
		Frequency: freq,
		Gain:      plot.Decibels(h),
		Phase:     plot.Phase(h),
		Marker:    marker,
	}, cfg.DPI)
	if err != nil {
		return err
	}
	slog.Info("figure saved", "path", path, "node", node)
	return nil
}
