package device

import (
	"fmt"

	"github.com/edp1096/toy-spice-tutorials/pkg/matrix"
)

// CurrentSource drives its current from the positive node through the source
// into the negative node.
type CurrentSource struct {
	BaseDevice
	stimulus *Stimulus
}

var _ Source = (*CurrentSource)(nil)

func NewCurrentSource(name string, nodeNames []string, stimulus *Stimulus) *CurrentSource {
	return &CurrentSource{
		BaseDevice: newBaseDevice(name, stimulus.DCValue(), nodeNames),
		stimulus:   stimulus,
	}
}

func NewDCCurrentSource(name string, nodeNames []string, value float64) *CurrentSource {
	return NewCurrentSource(name, nodeNames, NewDCStimulus(value))
}

func (i *CurrentSource) GetType() string { return "I" }

func (i *CurrentSource) Stimulus() *Stimulus { return i.stimulus }

func (i *CurrentSource) GetCurrent(t float64) float64 {
	return i.stimulus.At(t)
}

func (i *CurrentSource) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(i.Nodes) != 2 {
		return fmt.Errorf("current source %s: requires exactly 2 nodes", i.Name)
	}

	n1, n2 := i.Nodes[0], i.Nodes[1]

	switch status.Mode {
	case ACAnalysis:
		re, im := i.stimulus.AC()
		if n1 != 0 {
			matrix.AddComplexRHS(n1, -re, -im)
		}
		if n2 != 0 {
			matrix.AddComplexRHS(n2, re, im)
		}
	case TransientAnalysis:
		stampCurrent(matrix, n1, n2, i.stimulus.At(status.Time))
	default:
		stampCurrent(matrix, n1, n2, i.stimulus.DCValue())
	}

	return nil
}

func (i *CurrentSource) SetValue(value float64) {
	i.Value = value
	i.stimulus.SetDC(value)
}
