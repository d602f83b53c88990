package device

import (
	"github.com/edp1096/toy-spice-tutorials/pkg/matrix"
)

type Device interface {
	GetName() string
	GetType() string
	GetNodeNames() []string
	GetNodes() []int
	SetNodes(nodes []int)
	GetValue() float64
	Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error
}

// BranchDevice owns an extra MNA row carrying its current.
type BranchDevice interface {
	Device
	BranchIndex() int
	SetBranchIndex(idx int)
}

type NonLinear interface {
	Device
	// UpdateVoltages takes the latest Newton iterate. Implementations may
	// limit the step, in which case Limited reports true until the next call.
	UpdateVoltages(voltages []float64) error
	Limited() bool
}

type TimeDependent interface {
	Device
	// InitState seeds the integration history from a DC solution.
	InitState(solution []float64)
	// AcceptStep commits the state of a converged time point.
	AcceptStep(solution []float64)
}

// Source is an independent source whose DC value can be swept.
type Source interface {
	Device
	Stimulus() *Stimulus
}

type BaseDevice struct {
	Name      string
	Nodes     []int
	Value     float64
	NodeNames []string
}

type ModelParam struct {
	Type   string
	Name   string
	Params map[string]float64
}

type AnalysisMode int

const (
	OperatingPointAnalysis AnalysisMode = iota
	TransientAnalysis
	ACAnalysis
	DCSweep
)

func (m AnalysisMode) String() string {
	switch m {
	case OperatingPointAnalysis:
		return "op"
	case TransientAnalysis:
		return "tran"
	case ACAnalysis:
		return "ac"
	case DCSweep:
		return "dc"
	}
	return "unknown"
}

type CircuitStatus struct {
	Time      float64
	TimeStep  float64
	Gmin      float64
	Mode      AnalysisMode
	Temp      float64 // K
	Tnom      float64 // K
	Order     int     // integration order for the next step
	Frequency float64 // AC frequency
}

func (d *BaseDevice) GetName() string {
	return d.Name
}

func (d *BaseDevice) GetNodes() []int {
	return d.Nodes
}

func (d *BaseDevice) GetNodeNames() []string {
	return d.NodeNames
}

func (d *BaseDevice) GetValue() float64 {
	return d.Value
}

func (d *BaseDevice) SetNodes(nodes []int) {
	d.Nodes = nodes
}

func newBaseDevice(name string, value float64, nodeNames []string) BaseDevice {
	return BaseDevice{
		Name:      name,
		Value:     value,
		NodeNames: nodeNames,
		Nodes:     make([]int, len(nodeNames)),
	}
}

// voltageAcross reads v(n1) - v(n2) from a 1-based solution vector.
func voltageAcross(solution []float64, n1, n2 int) float64 {
	var v1, v2 float64
	if n1 != 0 && n1 < len(solution) {
		v1 = solution[n1]
	}
	if n2 != 0 && n2 < len(solution) {
		v2 = solution[n2]
	}
	return v1 - v2
}

// stampConductance adds a conductance g between n1 and n2.
func stampConductance(m matrix.DeviceMatrix, n1, n2 int, g float64) {
	if n1 != 0 {
		m.AddElement(n1, n1, g)
		if n2 != 0 {
			m.AddElement(n1, n2, -g)
		}
	}
	if n2 != 0 {
		if n1 != 0 {
			m.AddElement(n2, n1, -g)
		}
		m.AddElement(n2, n2, g)
	}
}

func stampAdmittance(m matrix.DeviceMatrix, n1, n2 int, g, b float64) {
	if n1 != 0 {
		m.AddComplexElement(n1, n1, g, b)
		if n2 != 0 {
			m.AddComplexElement(n1, n2, -g, -b)
		}
	}
	if n2 != 0 {
		if n1 != 0 {
			m.AddComplexElement(n2, n1, -g, -b)
		}
		m.AddComplexElement(n2, n2, g, b)
	}
}

// stampCurrent injects a current i flowing from n1 through the device to n2.
func stampCurrent(m matrix.DeviceMatrix, n1, n2 int, i float64) {
	if n1 != 0 {
		m.AddRHS(n1, -i)
	}
	if n2 != 0 {
		m.AddRHS(n2, i)
	}
}

// stampBranch adds the incidence entries of a branch current between n1 and n2.
func stampBranch(m matrix.DeviceMatrix, n1, n2, b int, complexMode bool) {
	add := func(i, j int, v float64) {
		if complexMode {
			m.AddComplexElement(i, j, v, 0)
			return
		}
		m.AddElement(i, j, v)
	}
	if n1 != 0 {
		add(b, n1, 1)
		add(n1, b, 1)
	}
	if n2 != 0 {
		add(b, n2, -1)
		add(n2, b, -1)
	}
}
