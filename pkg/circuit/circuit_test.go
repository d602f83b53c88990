package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-spice-tutorials/pkg/netlist"
)

func TestBuildAssignsNodesAndBranches(t *testing.T) {
	n := netlist.New("rl")
	n.V("1", "in", n.Gnd, 5)
	n.R("1", "in", "mid", 10)
	n.L("1", "mid", "gnd", 1e-3)

	ckt, err := Build(n.Title, n.Elements(), n.Models())
	require.NoError(t, err)
	defer ckt.Destroy()

	assert.Equal(t, []string{"in", "mid"}, ckt.NodeNames())
	assert.Equal(t, []string{"v1", "l1"}, ckt.BranchNames())
	assert.Equal(t, 3, ckt.GetBranchMap()["v1"])
	assert.Equal(t, 4, ckt.GetMatrix().Size)

	src, ok := ckt.Source("V1")
	require.True(t, ok)
	assert.Equal(t, 5.0, src.Stimulus().DCValue())
}

func TestBuildMissingModel(t *testing.T) {
	n := netlist.New("diode")
	n.V("1", "a", n.Gnd, 1)
	n.D("1", "a", n.Gnd, "Nope")

	_, err := Build(n.Title, n.Elements(), n.Models())
	assert.ErrorContains(t, err, "Nope")
}

func TestBuildEmptyCircuit(t *testing.T) {
	_, err := Build("empty", nil, nil)
	assert.Error(t, err)
}

func TestBreakpointsMergeSources(t *testing.T) {
	n := netlist.New("pulses")
	n.PulseVoltageSource("1", "a", n.Gnd, netlist.PulseOptions{Pulsed: 1, Delay: 1e-3, Width: 1e-3})
	n.PWLVoltageSource("2", "b", n.Gnd, netlist.PWLPoint{Time: 0, Value: 0}, netlist.PWLPoint{Time: 1e-3, Value: 1})
	n.R("1", "a", "b", 1)

	ckt, err := Build(n.Title, n.Elements(), n.Models())
	require.NoError(t, err)
	defer ckt.Destroy()

	assert.Equal(t, []float64{1e-3, 2e-3}, ckt.Breakpoints(5e-3))
}
