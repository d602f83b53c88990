package simulator

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edp1096/toy-spice-tutorials/pkg/analysis"
	"github.com/edp1096/toy-spice-tutorials/pkg/config"
	"github.com/edp1096/toy-spice-tutorials/pkg/netlist"
)

const (
	deckFile = "deck.cir"
	rawFile  = "out.raw"
)

// ProcessError is returned when the ngspice process fails. Stderr holds
// whatever the simulator printed before exiting.
type ProcessError struct {
	Path   string
	Dir    string
	Stderr string
	Err    error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s failed in %s: %v", e.Path, e.Dir, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Ngspice runs the external ngspice binary in batch mode, one process and
// one work directory per analysis.
type Ngspice struct {
	netlist *netlist.Circuit
	path    string
	workDir string
	temp    float64
	tnom    float64
}

var _ Simulator = (*Ngspice)(nil)

func newNgspice(cfg config.Config, ckt *netlist.Circuit) *Ngspice {
	return &Ngspice{
		netlist: ckt,
		path:    cfg.NgspicePath,
		workDir: cfg.OutputDir,
		temp:    cfg.Temperature,
		tnom:    cfg.NominalTemperature,
	}
}

// Deck renders the complete input file for one analysis card.
func (s *Ngspice) Deck(card string) string {
	var b strings.Builder
	b.WriteString(s.netlist.String())
	b.WriteString(".options filetype=ascii\n")
	fmt.Fprintf(&b, ".options temp=%s tnom=%s\n", fmtNum(s.temp), fmtNum(s.tnom))
	b.WriteString(card)
	b.WriteString("\n.end\n")
	return b.String()
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s *Ngspice) execute(ctx context.Context, card string) (*RawPlot, error) {
	dir := filepath.Join(s.workDir, "ngspice-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating work dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, deckFile), []byte(s.Deck(card)), 0o644); err != nil {
		return nil, fmt.Errorf("error writing deck: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.path, "-b", "-r", rawFile, deckFile)
	cmd.Dir = dir
	cmd.Stderr = &stderr

	start := time.Now()
	slog.Debug("starting ngspice", "path", s.path, "dir", dir, "card", card)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		slog.Warn("ngspice failed, keeping work dir", "dir", dir)
		return nil, &ProcessError{Path: s.path, Dir: dir, Stderr: stderr.String(), Err: err}
	}
	slog.Debug("ngspice finished", "elapsed", time.Since(start))

	f, err := os.Open(filepath.Join(dir, rawFile))
	if err != nil {
		return nil, &ProcessError{Path: s.path, Dir: dir, Stderr: stderr.String(), Err: err}
	}
	plots, err := ReadRaw(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawFile, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("error removing work dir", "dir", dir, "err", err)
	}
	return plots[len(plots)-1], nil
}

func (s *Ngspice) OperatingPoint(ctx context.Context) (*analysis.Result[float64], error) {
	plot, err := s.execute(ctx, ".op")
	if err != nil {
		return nil, err
	}
	r := analysis.NewResult[float64](analysis.KindOperatingPoint, s.netlist.Title)
	fillResult(r, plot.Variables, 0, realColumn(plot))
	return r, nil
}

func (s *Ngspice) DC(ctx context.Context, source string, start, stop, step float64) (*analysis.Result[float64], error) {
	card := fmt.Sprintf(".dc %s %s %s %s", source, fmtNum(start), fmtNum(stop), fmtNum(step))
	plot, err := s.execute(ctx, card)
	if err != nil {
		return nil, err
	}
	col := realColumn(plot)
	r := analysis.NewResult[float64](analysis.KindDC, s.netlist.Title)
	r.SetSweep(strings.ToLower(source), col(0))
	fillResult(r, plot.Variables, 1, col)
	return r, nil
}

func (s *Ngspice) Transient(ctx context.Context, step, stop float64, opts ...TransientOption) (*analysis.Result[float64], error) {
	o := applyTransientOptions(opts)
	card := fmt.Sprintf(".tran %s %s", fmtNum(step), fmtNum(stop))
	if o.start > 0 || o.maxStep > 0 {
		card += " " + fmtNum(o.start)
		if o.maxStep > 0 {
			card += " " + fmtNum(o.maxStep)
		}
	}
	if o.uic {
		card += " uic"
	}

	plot, err := s.execute(ctx, card)
	if err != nil {
		return nil, err
	}
	col := realColumn(plot)
	r := analysis.NewResult[float64](analysis.KindTransient, s.netlist.Title)
	r.SetTime(col(0))
	fillResult(r, plot.Variables, 1, col)
	return r, nil
}

func (s *Ngspice) AC(ctx context.Context, variation string, points int, start, stop float64) (*analysis.Result[complex128], error) {
	card := fmt.Sprintf(".ac %s %d %s %s", strings.ToLower(variation), points, fmtNum(start), fmtNum(stop))
	plot, err := s.execute(ctx, card)
	if err != nil {
		return nil, err
	}
	col := complexColumn(plot)
	r := analysis.NewResult[complex128](analysis.KindAC, s.netlist.Title)
	r.SetFrequency(col(0))
	fillResult(r, plot.Variables, 1, col)
	return r, nil
}

func realColumn(p *RawPlot) func(int) analysis.Waveform[float64] {
	return func(i int) analysis.Waveform[float64] {
		if p.Complex {
			w := make(analysis.Waveform[float64], len(p.Cplx[i]))
			for k, c := range p.Cplx[i] {
				w[k] = real(c)
			}
			return w
		}
		return p.Real[i]
	}
}

func complexColumn(p *RawPlot) func(int) analysis.Waveform[complex128] {
	return func(i int) analysis.Waveform[complex128] {
		if p.Complex {
			return p.Cplx[i]
		}
		w := make(analysis.Waveform[complex128], len(p.Real[i]))
		for k, f := range p.Real[i] {
			w[k] = complex(f, 0)
		}
		return w
	}
}

// fillResult sorts raw columns from first on into nodes and branches.
func fillResult[T analysis.Sample](r *analysis.Result[T], vars []RawVariable, first int, col func(int) analysis.Waveform[T]) {
	for i := first; i < len(vars); i++ {
		name, isBranch := vectorName(vars[i].Name)
		if isBranch || strings.EqualFold(vars[i].Type, "current") {
			r.Branches().Set(name, col(i))
			continue
		}
		r.Nodes().Set(name, col(i))
	}
}

// vectorName maps raw vector names to result keys: v(out) -> out,
// i(v1) and v1#branch -> v1.
func vectorName(raw string) (string, bool) {
	name := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(name, "v(") && strings.HasSuffix(name, ")"):
		return name[2 : len(name)-1], false
	case strings.HasPrefix(name, "i(") && strings.HasSuffix(name, ")"):
		return name[2 : len(name)-1], true
	case strings.HasSuffix(name, "#branch"):
		return strings.TrimSuffix(name, "#branch"), true
	}
	return name, false
}
