package device

import (
	"fmt"
	"math"

	"github.com/edp1096/toy-spice-tutorials/pkg/matrix"
	"github.com/edp1096/toy-spice-tutorials/pkg/util"
)

type Inductor struct {
	BaseDevice
	current   util.History // accepted branch currents, newest first
	branchIdx int
}

var (
	_ TimeDependent = (*Inductor)(nil)
	_ BranchDevice  = (*Inductor)(nil)
)

func NewInductor(name string, nodeNames []string, value float64) *Inductor {
	return &Inductor{BaseDevice: newBaseDevice(name, value, nodeNames)}
}

func (l *Inductor) GetType() string { return "L" }

func (l *Inductor) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(l.Nodes) != 2 {
		return fmt.Errorf("inductor %s: requires exactly 2 nodes", l.Name)
	}

	n1, n2 := l.Nodes[0], l.Nodes[1]
	bIdx := l.branchIdx

	switch status.Mode {
	case ACAnalysis:
		// v1 - v2 - jwL*i = 0
		stampBranch(matrix, n1, n2, bIdx, true)
		omega := 2 * math.Pi * status.Frequency
		matrix.AddComplexElement(bIdx, bIdx, 0, -omega*l.Value)

	case TransientAnalysis:
		// v1 - v2 = L di/dt ~ L*(geq*i + ieq)
		geq, ieq := l.current.Companion(status.Order, status.TimeStep)
		stampBranch(matrix, n1, n2, bIdx, false)
		matrix.AddElement(bIdx, bIdx, -l.Value*geq)
		matrix.AddRHS(bIdx, l.Value*ieq)

	default:
		// Short circuit.
		stampBranch(matrix, n1, n2, bIdx, false)
	}

	return nil
}

func (l *Inductor) InitState(solution []float64) {
	l.current.Reset(branchCurrent(solution, l.branchIdx))
}

func (l *Inductor) AcceptStep(solution []float64) {
	l.current.Push(branchCurrent(solution, l.branchIdx))
}

func (l *Inductor) Current() float64 {
	return l.current.Last()
}

func (l *Inductor) BranchIndex() int {
	return l.branchIdx
}

func (l *Inductor) SetBranchIndex(idx int) {
	l.branchIdx = idx
}

func branchCurrent(solution []float64, idx int) float64 {
	if idx <= 0 || idx >= len(solution) {
		return 0
	}
	return solution[idx]
}
