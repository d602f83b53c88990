package simulator

import (
	"context"
	"errors"
	"fmt"

	"github.com/edp1096/toy-spice-tutorials/pkg/analysis"
	"github.com/edp1096/toy-spice-tutorials/pkg/config"
	"github.com/edp1096/toy-spice-tutorials/pkg/netlist"
)

var (
	ErrUnknownBackend = errors.New("unknown simulator backend")
	// ErrUnsupported marks netlist content a backend cannot handle, such as
	// .include files on the builtin engine.
	ErrUnsupported = errors.New("unsupported by backend")
)

// Simulator runs analyses over one circuit snapshot.
type Simulator interface {
	OperatingPoint(ctx context.Context) (*analysis.Result[float64], error)
	DC(ctx context.Context, source string, start, stop, step float64) (*analysis.Result[float64], error)
	Transient(ctx context.Context, step, stop float64, opts ...TransientOption) (*analysis.Result[float64], error)
	AC(ctx context.Context, variation string, points int, start, stop float64) (*analysis.Result[complex128], error)
}

type transientOptions struct {
	start   float64
	maxStep float64
	uic     bool
}

type TransientOption func(*transientOptions)

// StartTime drops samples before t.
func StartTime(t float64) TransientOption {
	return func(o *transientOptions) { o.start = t }
}

// MaxStep caps the internal time step.
func MaxStep(h float64) TransientOption {
	return func(o *transientOptions) { o.maxStep = h }
}

// UseInitialConditions skips the initial operating point.
func UseInitialConditions() TransientOption {
	return func(o *transientOptions) { o.uic = true }
}

func applyTransientOptions(opts []TransientOption) transientOptions {
	var o transientOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New snapshots ckt and returns the backend selected by cfg.Backend. Later
// changes to ckt do not affect the returned simulator.
func New(cfg config.Config, ckt *netlist.Circuit) (Simulator, error) {
	if ckt == nil {
		return nil, errors.New("nil circuit")
	}
	if err := ckt.Err(); err != nil {
		return nil, fmt.Errorf("circuit %q: %w", ckt.Title, err)
	}
	snapshot := ckt.Clone()

	switch cfg.Backend {
	case config.BackendBuiltin, "":
		return newBuiltin(cfg, snapshot), nil
	case config.BackendNgspice:
		return newNgspice(cfg, snapshot), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}
