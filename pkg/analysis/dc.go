package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/edp1096/toy-spice-tutorials/pkg/circuit"
	"github.com/edp1096/toy-spice-tutorials/pkg/device"
)

type DCSweep struct {
	BaseAnalysis
	sourceName string
	start      float64
	stop       float64
	increment  float64
	sweepVals  []float64
	source     device.Source
	result     *Result[float64]
}

var _ Analyzer[float64] = (*DCSweep)(nil)

func NewDCSweep(source string, start, stop, increment float64) *DCSweep {
	return &DCSweep{
		BaseAnalysis: *NewBaseAnalysis(),
		sourceName:   source,
		start:        start,
		stop:         stop,
		increment:    increment,
	}
}

// SweepValues lists round((stop-start)/increment)+1 points from start to
// stop inclusive.
func SweepValues(start, stop, increment float64) ([]float64, error) {
	if increment == 0 || math.IsNaN(increment) {
		return nil, fmt.Errorf("dc sweep increment must be non-zero")
	}
	span := (stop - start) / increment
	if span < 0 {
		return nil, fmt.Errorf("dc sweep increment %g does not lead from %g to %g", increment, start, stop)
	}

	n := int(math.Round(span)) + 1
	values := make([]float64, n)
	for i := range values {
		values[i] = start + float64(i)*increment
	}
	return values, nil
}

func (dc *DCSweep) Setup(ckt *circuit.Circuit) error {
	if err := dc.BaseAnalysis.Setup(ckt); err != nil {
		return err
	}

	src, ok := ckt.Source(dc.sourceName)
	if !ok {
		return fmt.Errorf("source %s not found", dc.sourceName)
	}
	dc.source = src

	values, err := SweepValues(dc.start, dc.stop, dc.increment)
	if err != nil {
		return err
	}
	dc.sweepVals = values

	return nil
}

func (dc *DCSweep) Execute(ctx context.Context) error {
	if dc.Circuit == nil || dc.source == nil {
		return fmt.Errorf("circuit not set")
	}

	stimulus := dc.source.Stimulus()
	saved := *stimulus
	defer func() { *stimulus = saved }()

	result := NewResult[float64](KindDC, dc.Circuit.Name())
	status := dc.Circuit.NewStatus(device.DCSweep)

	for _, val := range dc.sweepVals {
		if err := ctx.Err(); err != nil {
			return err
		}

		stimulus.SetDC(val)
		err := dc.solveDC(ctx, status)
		if err != nil {
			return fmt.Errorf("convergence error at %s=%g: %w", dc.sourceName, val, err)
		}
		dc.storeSolution(result)
	}

	result.SetSweep(strings.ToLower(dc.sourceName), Waveform[float64](dc.sweepVals))
	dc.result = result

	return nil
}

func (dc *DCSweep) Result() *Result[float64] {
	return dc.result
}
