package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/edp1096/toy-spice-tutorials/pkg/circuit"
	"github.com/edp1096/toy-spice-tutorials/pkg/device"
	"github.com/edp1096/toy-spice-tutorials/pkg/util"
)

type Transient struct {
	BaseAnalysis
	op        *OperatingPoint
	startTime float64
	stopTime  float64
	timeStep  float64
	maxStep   float64
	minStep   float64
	useUIC    bool
	result    *Result[float64]
}

var _ Analyzer[float64] = (*Transient)(nil)

// NewTransient records samples every tStep from tStart to tStop. Internal
// steps never exceed tMax (tStep when zero) and are halved down to a small
// fraction of tStep when Newton iterations fail.
func NewTransient(tStart, tStop, tStep, tMax float64, uic bool) *Transient {
	if tMax <= 0 || tMax > tStep {
		tMax = tStep
	}

	return &Transient{
		BaseAnalysis: *NewBaseAnalysis(),
		op:           NewOP(),
		startTime:    tStart,
		stopTime:     tStop,
		timeStep:     tStep,
		maxStep:      tMax,
		minStep:      tStep * 1e-9,
		useUIC:       uic,
	}
}

func (tr *Transient) Setup(ckt *circuit.Circuit) error {
	if tr.timeStep <= 0 || tr.stopTime <= 0 {
		return fmt.Errorf("transient needs a positive step and stop time")
	}
	if tr.startTime < 0 || tr.startTime >= tr.stopTime {
		return fmt.Errorf("transient start time %g outside [0, %g)", tr.startTime, tr.stopTime)
	}
	if err := tr.BaseAnalysis.Setup(ckt); err != nil {
		return err
	}
	return tr.op.Setup(ckt)
}

// printTimes returns k*step for k = 0..round(stop/step), ending at stop.
func (tr *Transient) printTimes() []float64 {
	n := int(math.Round(tr.stopTime / tr.timeStep))
	times := make([]float64, 0, n+1)
	for k := 0; k <= n; k++ {
		t := float64(k) * tr.timeStep
		if t > tr.stopTime {
			t = tr.stopTime
		}
		times = append(times, t)
	}
	if last := times[len(times)-1]; last < tr.stopTime*(1-1e-9) {
		times = append(times, tr.stopTime)
	}
	return times
}

func (tr *Transient) Execute(ctx context.Context) error {
	if tr.Circuit == nil {
		return fmt.Errorf("circuit not set")
	}
	ckt := tr.Circuit
	mat := ckt.GetMatrix()

	if tr.useUIC {
		ckt.InitState(make([]float64, mat.Size+1))
	} else {
		if err := tr.op.Execute(ctx); err != nil {
			return fmt.Errorf("operating point analysis error: %w", err)
		}
		ckt.InitState(mat.Solution())
	}

	result := NewResult[float64](KindTransient, ckt.Name())
	timeAxis := Waveform[float64]{}
	record := func(t float64) {
		if t < tr.startTime*(1-1e-12) {
			return
		}
		if tr.useUIC && t == 0 {
			// No solution exists yet at t=0 with initial conditions.
			for _, name := range ckt.NodeNames() {
				result.nodes.Append(name, 0)
			}
			for _, name := range ckt.BranchNames() {
				result.branches.Append(name, 0)
			}
		} else {
			tr.storeSolution(result)
		}
		timeAxis = append(timeAxis, t)
	}

	printTimes := tr.printTimes()
	breakpoints := ckt.Breakpoints(tr.stopTime)
	targets := slices.Compact(slices.Sorted(slices.Values(append(slices.Clone(printTimes[1:]), breakpoints...))))

	record(0)
	status := ckt.NewStatus(device.TransientAnalysis)
	t := 0.0
	h := tr.maxStep
	lastStep := 0.0
	nextPrint := 1

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		for target-t > tr.minStep {
			step := min(h, tr.maxStep, target-t)
			status.Time = t + step
			status.TimeStep = step
			status.Order = 1
			if lastStep > 0 && math.Abs(step-lastStep) <= 1e-9*step {
				status.Order = util.MaxGearOrder
			}

			err := tr.doNRiter(status, 0, tr.convergence.maxTranIter)
			if err != nil {
				h = step / 2
				lastStep = 0
				if h < tr.minStep {
					return fmt.Errorf("timestep too small at t=%g: %w", t, err)
				}
				slog.Debug("transient step rejected", "time", t, "step", h)
				continue
			}

			ckt.AcceptStep(mat.Solution())
			t += step
			lastStep = step
			h = min(2*step, tr.maxStep)
		}
		t = target

		if slices.Contains(breakpoints, target) {
			// Waveform corner: restart integration at first order.
			lastStep = 0
		}
		for nextPrint < len(printTimes) && printTimes[nextPrint] <= t*(1+1e-12) {
			record(printTimes[nextPrint])
			nextPrint++
		}
	}

	result.SetTime(timeAxis)
	tr.result = result

	return nil
}

func (tr *Transient) Result() *Result[float64] {
	return tr.result
}
