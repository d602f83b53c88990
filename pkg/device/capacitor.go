package device

import (
	"fmt"
	"math"

	"github.com/edp1096/toy-spice-tutorials/pkg/matrix"
	"github.com/edp1096/toy-spice-tutorials/pkg/util"
)

type Capacitor struct {
	BaseDevice
	voltage util.History // accepted voltages, newest first
}

var _ TimeDependent = (*Capacitor)(nil)

func NewCapacitor(name string, nodeNames []string, value float64) *Capacitor {
	return &Capacitor{BaseDevice: newBaseDevice(name, value, nodeNames)}
}

func (c *Capacitor) GetType() string { return "C" }

func (c *Capacitor) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(c.Nodes) != 2 {
		return fmt.Errorf("capacitor %s: requires exactly 2 nodes", c.Name)
	}

	n1, n2 := c.Nodes[0], c.Nodes[1]

	switch status.Mode {
	case ACAnalysis:
		omega := 2 * math.Pi * status.Frequency
		stampAdmittance(matrix, n1, n2, 0, omega*c.Value) // jwC

	case TransientAnalysis:
		// i = C dv/dt ~ C*(geq*v + ieq)
		geq, ieq := c.voltage.Companion(status.Order, status.TimeStep)
		stampConductance(matrix, n1, n2, c.Value*geq)
		stampCurrent(matrix, n1, n2, c.Value*ieq)

	default:
		// Open circuit, kept from floating by gmin.
		stampConductance(matrix, n1, n2, max(status.Gmin, 1e-12))
	}

	return nil
}

func (c *Capacitor) InitState(solution []float64) {
	c.voltage.Reset(voltageAcross(solution, c.Nodes[0], c.Nodes[1]))
}

func (c *Capacitor) AcceptStep(solution []float64) {
	c.voltage.Push(voltageAcross(solution, c.Nodes[0], c.Nodes[1]))
}

func (c *Capacitor) Voltage() float64 {
	return c.voltage.Last()
}
