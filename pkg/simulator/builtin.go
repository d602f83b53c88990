package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/edp1096/toy-spice-tutorials/pkg/analysis"
	"github.com/edp1096/toy-spice-tutorials/pkg/circuit"
	"github.com/edp1096/toy-spice-tutorials/pkg/config"
	"github.com/edp1096/toy-spice-tutorials/pkg/netlist"
)

// Builtin runs analyses on the in-process MNA engine. Every call builds a
// fresh engine circuit from the snapshot, so calls do not share state.
type Builtin struct {
	netlist *netlist.Circuit
	temp    float64
	tnom    float64
}

var _ Simulator = (*Builtin)(nil)

func newBuiltin(cfg config.Config, ckt *netlist.Circuit) *Builtin {
	return &Builtin{netlist: ckt, temp: cfg.Temperature, tnom: cfg.NominalTemperature}
}

// elaborate flattens sub-circuits and merges raw statements into one element
// and model list.
func (b *Builtin) elaborate() ([]*netlist.Element, []*netlist.Model, error) {
	if inc := b.netlist.Includes(); len(inc) > 0 {
		return nil, nil, fmt.Errorf("%w: .include %s", ErrUnsupported, inc[0])
	}

	flat, err := b.netlist.Flatten()
	if err != nil {
		return nil, nil, err
	}

	stmts, err := netlist.DecodeStatements(flat.Raw())
	if err != nil {
		if errors.Is(err, netlist.ErrUnsupportedStatement) {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return nil, nil, fmt.Errorf("raw statements: %w", err)
	}

	elements := slices.Concat(flat.Elements(), stmts.Elements)
	models := slices.Concat(flat.Models(), stmts.Models)
	for _, e := range elements {
		if e.Type == "X" {
			return nil, nil, fmt.Errorf("%w: sub-circuit %s of %s is not defined", ErrUnsupported, e.Model, e.Name)
		}
	}
	return elements, models, nil
}

func (b *Builtin) build() (*circuit.Circuit, error) {
	elements, models, err := b.elaborate()
	if err != nil {
		return nil, err
	}
	ckt, err := circuit.Build(b.netlist.Title, elements, models)
	if err != nil {
		return nil, err
	}
	ckt.SetTemperature(b.temp, b.tnom)
	return ckt, nil
}

func run[T analysis.Sample](ctx context.Context, b *Builtin, a analysis.Analyzer[T], name string) (*analysis.Result[T], error) {
	ckt, err := b.build()
	if err != nil {
		return nil, err
	}
	defer ckt.Destroy()

	if err := a.Setup(ckt); err != nil {
		return nil, fmt.Errorf("%s setup: %w", name, err)
	}

	start := time.Now()
	if err := a.Execute(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	slog.Debug("analysis finished", "circuit", b.netlist.Title, "analysis", name, "elapsed", time.Since(start))
	return a.Result(), nil
}

func (b *Builtin) OperatingPoint(ctx context.Context) (*analysis.Result[float64], error) {
	return run[float64](ctx, b, analysis.NewOP(), "operating point")
}

func (b *Builtin) DC(ctx context.Context, source string, start, stop, step float64) (*analysis.Result[float64], error) {
	return run[float64](ctx, b, analysis.NewDCSweep(source, start, stop, step), "dc sweep")
}

func (b *Builtin) Transient(ctx context.Context, step, stop float64, opts ...TransientOption) (*analysis.Result[float64], error) {
	o := applyTransientOptions(opts)
	return run[float64](ctx, b, analysis.NewTransient(o.start, stop, step, o.maxStep, o.uic), "transient")
}

func (b *Builtin) AC(ctx context.Context, variation string, points int, start, stop float64) (*analysis.Result[complex128], error) {
	return run[complex128](ctx, b, analysis.NewAC(start, stop, points, variation), "ac")
}
