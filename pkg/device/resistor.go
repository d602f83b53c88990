package device

import (
	"fmt"

	"github.com/edp1096/toy-spice-tutorials/pkg/matrix"
)

type Resistor struct {
	BaseDevice
	Tc1 float64
	Tc2 float64
}

func NewResistor(name string, nodeNames []string, value float64) *Resistor {
	return &Resistor{BaseDevice: newBaseDevice(name, value, nodeNames)}
}

func (r *Resistor) GetType() string { return "R" }

func (r *Resistor) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(r.Nodes) != 2 {
		return fmt.Errorf("resistor %s: requires exactly 2 nodes", r.Name)
	}

	value := r.temperatureAdjustedValue(status.Temp, status.Tnom)
	if value == 0 {
		return fmt.Errorf("resistor %s: zero resistance", r.Name)
	}

	n1, n2 := r.Nodes[0], r.Nodes[1]
	g := 1.0 / value // G = 1/R

	if status.Mode == ACAnalysis {
		stampAdmittance(matrix, n1, n2, g, 0)
		return nil
	}
	stampConductance(matrix, n1, n2, g)

	return nil
}

func (r *Resistor) temperatureAdjustedValue(temp, tnom float64) float64 {
	if temp == 0 || tnom == 0 {
		return r.Value
	}
	dt := temp - tnom
	factor := 1.0 + r.Tc1*dt + r.Tc2*dt*dt
	return r.Value * factor
}

func (r *Resistor) SetModelParameters(params map[string]float64) {
	if tc1, ok := params["tc1"]; ok {
		r.Tc1 = tc1
	}
	if tc2, ok := params["tc2"]; ok {
		r.Tc2 = tc2
	}
}
