package circuit

import (
	"fmt"
	"slices"
	"strings"

	"github.com/edp1096/toy-spice-tutorials/internal/consts"
	"github.com/edp1096/toy-spice-tutorials/pkg/device"
	"github.com/edp1096/toy-spice-tutorials/pkg/matrix"
	"github.com/edp1096/toy-spice-tutorials/pkg/netlist"
)

type Circuit struct {
	name             string
	nodeNames        []string // index i+1 in the matrix
	nodeMap          map[string]int
	branchNames      []string // lower-case device names, in branch order
	branchMap        map[string]int
	devices          []device.Device
	nonlinearDevices []device.NonLinear
	timeDependent    []device.TimeDependent
	sources          map[string]device.Source
	matrix           *matrix.CircuitMatrix
	isComplex        bool
	temp             float64 // K
	tnom             float64 // K
	Models           map[string]*netlist.Model
}

func New(name string) *Circuit {
	return &Circuit{
		name:      name,
		nodeMap:   make(map[string]int),
		branchMap: make(map[string]int),
		sources:   make(map[string]device.Source),
		temp:      consts.ToKelvin(consts.DefaultTemp),
		tnom:      consts.ToKelvin(consts.DefaultTnom),
		Models:    make(map[string]*netlist.Model),
	}
}

// Build runs the usual setup sequence for a list of elements and models.
func Build(name string, elements []*netlist.Element, models []*netlist.Model) (*Circuit, error) {
	ckt := New(name)
	ckt.SetModels(models)

	err := ckt.AssignNodeBranchMaps(elements)
	if err != nil {
		return nil, err
	}
	err = ckt.CreateMatrix()
	if err != nil {
		return nil, err
	}
	err = ckt.SetupDevices(elements)
	if err != nil {
		ckt.Destroy()
		return nil, err
	}
	return ckt, nil
}

func (c *Circuit) SetModels(models []*netlist.Model) {
	for _, m := range models {
		c.Models[strings.ToLower(m.Name)] = m
	}
}

// SetTemperature sets the circuit and nominal temperatures in degC.
func (c *Circuit) SetTemperature(temp, tnom float64) {
	c.temp = consts.ToKelvin(temp)
	c.tnom = consts.ToKelvin(tnom)
}

// NewStatus returns a status for the given mode at the circuit temperature.
func (c *Circuit) NewStatus(mode device.AnalysisMode) *device.CircuitStatus {
	return &device.CircuitStatus{
		Mode:  mode,
		Temp:  c.temp,
		Tnom:  c.tnom,
		Gmin:  consts.DefaultGmin,
		Order: 1,
	}
}

func (c *Circuit) AssignNodeBranchMaps(elements []*netlist.Element) error {
	for _, elem := range elements {
		for _, nodeName := range elem.Nodes {
			if netlist.IsGround(nodeName) {
				continue
			}
			if _, exists := c.nodeMap[nodeName]; !exists {
				c.nodeNames = append(c.nodeNames, nodeName)
				c.nodeMap[nodeName] = len(c.nodeNames)
			}
		}
	}

	branchStart := len(c.nodeMap) + 1
	for _, elem := range elements {
		if elem.Type != "V" && elem.Type != "L" {
			continue
		}
		name := strings.ToLower(elem.Name)
		if _, exists := c.branchMap[name]; exists {
			return fmt.Errorf("duplicate branch %s", elem.Name)
		}
		c.branchMap[name] = branchStart
		c.branchNames = append(c.branchNames, name)
		branchStart++
	}

	return nil
}

func (c *Circuit) CreateMatrix() error {
	matrixSize := len(c.nodeMap) + len(c.branchMap)
	if matrixSize == 0 {
		return fmt.Errorf("circuit %q has no nodes", c.name)
	}

	var err error
	c.matrix, err = matrix.NewMatrix(matrixSize, c.isComplex)
	return err
}

// UseComplexMatrix swaps in a complex matrix of the same size for AC
// analysis. Device state, such as the linearization point, is kept.
func (c *Circuit) UseComplexMatrix() error {
	if c.isComplex {
		return nil
	}
	if c.matrix != nil {
		c.matrix.Destroy()
	}
	c.isComplex = true
	return c.CreateMatrix()
}

func (c *Circuit) SetupDevices(elements []*netlist.Element) error {
	for _, elem := range elements {
		dev, err := c.createDevice(elem)
		if err != nil {
			return fmt.Errorf("creating device %s: %w", elem.Name, err)
		}

		// Node index
		nodeIndices := make([]int, len(elem.Nodes))
		for i, nodeName := range elem.Nodes {
			if netlist.IsGround(nodeName) {
				continue
			}
			nodeIndices[i] = c.nodeMap[nodeName]
		}
		dev.SetNodes(nodeIndices)

		if b, ok := dev.(device.BranchDevice); ok {
			b.SetBranchIndex(c.branchMap[strings.ToLower(elem.Name)])
		}
		if nl, ok := dev.(device.NonLinear); ok {
			c.nonlinearDevices = append(c.nonlinearDevices, nl)
		}
		if td, ok := dev.(device.TimeDependent); ok {
			c.timeDependent = append(c.timeDependent, td)
		}
		if src, ok := dev.(device.Source); ok {
			c.sources[strings.ToLower(elem.Name)] = src
		}

		c.devices = append(c.devices, dev)
	}

	return nil
}

func (c *Circuit) Stamp(status *device.CircuitStatus) error {
	for _, dev := range c.devices {
		err := dev.Stamp(c.matrix, status)
		if err != nil {
			return fmt.Errorf("stamping device %s: %w", dev.GetName(), err)
		}
	}
	return nil
}

func (c *Circuit) UpdateNonlinearVoltages(solution []float64) error {
	for _, dev := range c.nonlinearDevices {
		err := dev.UpdateVoltages(solution)
		if err != nil {
			return fmt.Errorf("updating voltages: %w", err)
		}
	}
	return nil
}

// Limited reports whether any nonlinear device limited its last update.
func (c *Circuit) Limited() bool {
	for _, dev := range c.nonlinearDevices {
		if dev.Limited() {
			return true
		}
	}
	return false
}

func (c *Circuit) HasNonlinear() bool {
	return len(c.nonlinearDevices) > 0
}

func (c *Circuit) InitState(solution []float64) {
	for _, td := range c.timeDependent {
		td.InitState(solution)
	}
}

func (c *Circuit) AcceptStep(solution []float64) {
	for _, td := range c.timeDependent {
		td.AcceptStep(solution)
	}
}

// Source looks up an independent source by name, case-insensitively.
func (c *Circuit) Source(name string) (device.Source, bool) {
	src, ok := c.sources[strings.ToLower(name)]
	return src, ok
}

// Breakpoints returns the sorted, de-duplicated source corners up to stop.
func (c *Circuit) Breakpoints(stop float64) []float64 {
	var points []float64
	for _, src := range c.sources {
		points = append(points, src.Stimulus().Breakpoints(stop)...)
	}
	slices.Sort(points)
	return slices.Compact(points)
}

func (c *Circuit) GetMatrix() *matrix.CircuitMatrix {
	return c.matrix
}

func (c *Circuit) GetNodeMap() map[string]int {
	return c.nodeMap
}

func (c *Circuit) GetBranchMap() map[string]int {
	return c.branchMap
}

// NodeNames lists the nodes in matrix order.
func (c *Circuit) NodeNames() []string {
	return c.nodeNames
}

// BranchNames lists the branch currents in matrix order.
func (c *Circuit) BranchNames() []string {
	return c.branchNames
}

func (c *Circuit) GetDevices() []device.Device {
	return c.devices
}

// GetSolution returns the real node voltages and branch currents keyed by
// name, in that order.
func (c *Circuit) GetSolution() (nodes, branches []float64) {
	solution := c.matrix.Solution()
	nodes = make([]float64, len(c.nodeNames))
	for i := range c.nodeNames {
		nodes[i] = solution[i+1]
	}
	branches = make([]float64, len(c.branchNames))
	for i, name := range c.branchNames {
		branches[i] = solution[c.branchMap[name]]
	}
	return nodes, branches
}

func (c *Circuit) GetComplexSolution() (nodes, branches []complex128) {
	nodes = make([]complex128, len(c.nodeNames))
	for i := range c.nodeNames {
		nodes[i] = c.matrix.ComplexSolution(i + 1)
	}
	branches = make([]complex128, len(c.branchNames))
	for i, name := range c.branchNames {
		branches[i] = c.matrix.ComplexSolution(c.branchMap[name])
	}
	return nodes, branches
}

func (c *Circuit) Destroy() {
	if c.matrix != nil {
		c.matrix.Destroy()
		c.matrix = nil
	}
}

func (c *Circuit) Name() string {
	return c.name
}

func (c *Circuit) GetNumNodes() int {
	return len(c.nodeNames)
}

func (c *Circuit) GetNodeVoltage(nodeIdx int) float64 {
	if nodeIdx <= 0 { // ground or invalid node
		return 0
	}

	solution := c.matrix.Solution()
	if nodeIdx >= len(solution) {
		return 0
	}

	return solution[nodeIdx]
}
