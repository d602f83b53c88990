package device

import (
	"fmt"

	"github.com/edp1096/toy-spice-tutorials/pkg/matrix"
)

type VoltageSource struct {
	BaseDevice
	stimulus  *Stimulus
	branchIdx int
}

var (
	_ BranchDevice = (*VoltageSource)(nil)
	_ Source       = (*VoltageSource)(nil)
)

func NewVoltageSource(name string, nodeNames []string, stimulus *Stimulus) *VoltageSource {
	return &VoltageSource{
		BaseDevice: newBaseDevice(name, stimulus.DCValue(), nodeNames),
		stimulus:   stimulus,
	}
}

func NewDCVoltageSource(name string, nodeNames []string, value float64) *VoltageSource {
	return NewVoltageSource(name, nodeNames, NewDCStimulus(value))
}

func (v *VoltageSource) GetType() string { return "V" }

func (v *VoltageSource) Stimulus() *Stimulus { return v.stimulus }

func (v *VoltageSource) GetVoltage(t float64) float64 {
	return v.stimulus.At(t)
}

func (v *VoltageSource) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(v.Nodes) != 2 {
		return fmt.Errorf("voltage source %s: requires exactly 2 nodes", v.Name)
	}

	n1, n2 := v.Nodes[0], v.Nodes[1]
	bIdx := v.branchIdx

	switch status.Mode {
	case ACAnalysis:
		stampBranch(matrix, n1, n2, bIdx, true)
		re, im := v.stimulus.AC()
		matrix.AddComplexRHS(bIdx, re, im)
	case TransientAnalysis:
		// v1 - v2 = V
		stampBranch(matrix, n1, n2, bIdx, false)
		matrix.AddRHS(bIdx, v.stimulus.At(status.Time))
	default:
		stampBranch(matrix, n1, n2, bIdx, false)
		matrix.AddRHS(bIdx, v.stimulus.DCValue())
	}

	return nil
}

func (v *VoltageSource) BranchIndex() int {
	return v.branchIdx
}

func (v *VoltageSource) SetBranchIndex(idx int) {
	v.branchIdx = idx
}

func (v *VoltageSource) SetValue(value float64) {
	v.Value = value
	v.stimulus.SetDC(value)
}
