package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/edp1096/toy-spice-tutorials/pkg/circuit"
	"github.com/edp1096/toy-spice-tutorials/pkg/device"
)

type ACAnalysis struct {
	BaseAnalysis
	op          *OperatingPoint
	startFreq   float64
	stopFreq    float64
	numPoints   int
	pointsType  string // "dec", "oct", "lin"
	frequencies []float64
	result      *Result[complex128]
}

var _ Analyzer[complex128] = (*ACAnalysis)(nil)

func NewAC(fStart, fStop float64, nPoints int, pType string) *ACAnalysis {
	return &ACAnalysis{
		BaseAnalysis: *NewBaseAnalysis(),
		op:           NewOP(),
		startFreq:    fStart,
		stopFreq:     fStop,
		numPoints:    nPoints,
		pointsType:   strings.ToLower(pType),
	}
}

// FrequencyPoints generates the AC frequencies. For dec and oct, points is
// per decade or octave; for lin it is the total count.
func FrequencyPoints(variation string, points int, start, stop float64) ([]float64, error) {
	if points < 1 {
		return nil, fmt.Errorf("ac analysis needs at least one point")
	}
	if stop < start {
		return nil, fmt.Errorf("ac stop frequency %g below start %g", stop, start)
	}

	var base float64
	switch strings.ToLower(variation) {
	case "dec":
		base = 10
	case "oct":
		base = 2
	case "lin":
		if points == 1 {
			return []float64{start}, nil
		}
		freqs := make([]float64, points)
		step := (stop - start) / float64(points-1)
		for i := range freqs {
			freqs[i] = start + float64(i)*step
		}
		return freqs, nil
	default:
		return nil, fmt.Errorf("unknown ac variation %q", variation)
	}

	if start <= 0 {
		return nil, fmt.Errorf("%s sweep needs a positive start frequency", variation)
	}
	n := int(math.Floor(math.Log(stop/start)/math.Log(base)*float64(points)+1e-9)) + 1
	freqs := make([]float64, n)
	for i := range freqs {
		freqs[i] = start * math.Pow(base, float64(i)/float64(points))
	}
	return freqs, nil
}

func (ac *ACAnalysis) Setup(ckt *circuit.Circuit) error {
	if err := ac.BaseAnalysis.Setup(ckt); err != nil {
		return err
	}

	freqs, err := FrequencyPoints(ac.pointsType, ac.numPoints, ac.startFreq, ac.stopFreq)
	if err != nil {
		return err
	}
	ac.frequencies = freqs

	return ac.op.Setup(ckt)
}

func (ac *ACAnalysis) Execute(ctx context.Context) error {
	if ac.Circuit == nil {
		return fmt.Errorf("circuit not set")
	}

	// Linearize nonlinear devices around the operating point.
	if err := ac.op.Execute(ctx); err != nil {
		return fmt.Errorf("operating point analysis error: %w", err)
	}
	if err := ac.Circuit.UseComplexMatrix(); err != nil {
		return err
	}

	result := NewResult[complex128](KindAC, ac.Circuit.Name())
	status := ac.Circuit.NewStatus(device.ACAnalysis)
	mat := ac.Circuit.GetMatrix()
	freqAxis := make(Waveform[complex128], 0, len(ac.frequencies))

	for _, freq := range ac.frequencies {
		if err := ctx.Err(); err != nil {
			return err
		}

		status.Frequency = freq
		mat.Clear()
		err := ac.Circuit.Stamp(status)
		if err != nil {
			return fmt.Errorf("stamping error at f=%g: %w", freq, err)
		}

		err = mat.Solve()
		if err != nil {
			return fmt.Errorf("matrix solve error at f=%g: %w", freq, err)
		}

		nodes, branches := ac.Circuit.GetComplexSolution()
		for i, name := range ac.Circuit.NodeNames() {
			result.nodes.Append(name, nodes[i])
		}
		for i, name := range ac.Circuit.BranchNames() {
			result.branches.Append(name, branches[i])
		}
		freqAxis = append(freqAxis, complex(freq, 0))
	}

	result.SetFrequency(freqAxis)
	ac.result = result

	return nil
}

func (ac *ACAnalysis) Result() *Result[complex128] {
	return ac.result
}
