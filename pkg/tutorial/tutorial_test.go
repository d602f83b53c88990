package tutorial

import (
	"context"
	"math"
	"math/cmplx"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-spice-tutorials/pkg/config"
	"github.com/edp1096/toy-spice-tutorials/pkg/simulator"
	"github.com/edp1096/toy-spice-tutorials/pkg/sweep"
)

func TestVoltageDivider(t *testing.T) {
	sim, err := simulator.New(config.Default(), VoltageDivider())
	require.NoError(t, err)
	r, err := sim.OperatingPoint(context.Background())
	require.NoError(t, err)

	n, err := r.Normalize()
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "out"}, n.Keys())

	out, ok := n.Get("out")
	require.True(t, ok)
	require.True(t, out.IsScalar())
	assert.InDelta(t, 1.0, out.Scalar(), 1e-9)
}

func TestSubcircuitMatchesInlineCircuit(t *testing.T) {
	ctx := context.Background()

	flat, err := simulator.New(config.Default(), DiodeDivider())
	require.NoError(t, err)
	want, err := flat.OperatingPoint(ctx)
	require.NoError(t, err)

	sub, err := simulator.New(config.Default(), SubcircuitDivider(1e3))
	require.NoError(t, err)
	got, err := sub.OperatingPoint(ctx)
	require.NoError(t, err)

	assert.InDelta(t, want.Node("3")[0], got.Node("3")[0], 1e-6)
	assert.InDelta(t, want.Node("2")[0], got.Node("2")[0], 1e-6)
}

func TestDiodeSweep(t *testing.T) {
	tut, err := Lookup("diode-sweep")
	require.NoError(t, err)

	sim, err := simulator.New(config.Default(), tut.Build())
	require.NoError(t, err)
	dc := tut.DC
	r, err := sim.DC(context.Background(), dc.Source, dc.Start, dc.Stop, dc.Step)
	require.NoError(t, err)

	in, out := r.Node("1"), r.Node("2")
	require.Len(t, in, 51)
	assert.InDelta(t, 0, out[0], 1e-6)
	// a forward-biased diode drops well under a volt at 5 V
	drop := in[50] - out[50]
	assert.Greater(t, drop, 0.5)
	assert.Less(t, drop, 1.0)
}

func TestLibraryDiodeNeedsNgspice(t *testing.T) {
	tut, err := Lookup("library-diode")
	require.NoError(t, err)
	assert.True(t, tut.NgspiceOnly)

	c := tut.Build()
	assert.True(t, strings.Contains(c.String(), ".include lib/1n4148.lib\n"))

	sim, err := simulator.New(config.Default(), c)
	require.NoError(t, err)
	_, err = sim.OperatingPoint(context.Background())
	assert.ErrorIs(t, err, simulator.ErrUnsupported)
}

func TestLookupTableNeedsNgspice(t *testing.T) {
	tut, err := Lookup("lookup-table")
	require.NoError(t, err)
	assert.True(t, tut.NgspiceOnly)
	require.NotNil(t, tut.DC)
	assert.Equal(t, "Vi", tut.DC.Source)
	assert.Equal(t, 5.0, tut.DC.Stop)

	c := tut.Build()
	require.NoError(t, c.Err())
	assert.Contains(t, c.String(),
		"BBs 1 0 v=pwl(v(img), 1,0.00000, 2,1.00000, 3,5.00000, 4,6.00000, 5,2.00000, 6,4.00000)\n")

	sim, err := simulator.New(config.Default(), c)
	require.NoError(t, err)
	_, err = sim.DC(context.Background(), "Vi", 1, 5, 1)
	assert.ErrorIs(t, err, simulator.ErrUnsupported)
}

func TestPWLLookupContinuation(t *testing.T) {
	values := make([]float64, 12)
	got := PWLLookup("x", values)
	assert.True(t, strings.HasPrefix(got, "pwl(v(x), 1,0.00000,"))
	assert.Contains(t, got, " 9,0.00000,\n+ 10,0.00000,")
	assert.True(t, strings.HasSuffix(got, " 12,0.00000)"))
}

func TestClipperAC(t *testing.T) {
	tut, err := Lookup("clipper")
	require.NoError(t, err)
	ac := tut.AC

	sim, err := simulator.New(config.Default(), tut.Build())
	require.NoError(t, err)
	r, err := sim.AC(context.Background(), ac.Variation, ac.Points, ac.Start, ac.Stop)
	require.NoError(t, err)

	require.True(t, r.HasFrequency())
	n2 := r.Node(ac.Output)
	require.Len(t, n2, len(r.Frequency()))
	assert.InDelta(t, 1.0, cmplx.Abs(n2[0]), 1e-2)
	// far above the break frequency the capacitor shorts n2
	assert.Less(t, cmplx.Abs(n2[len(n2)-1]), 1e-2)
	assert.InDelta(t, 159.15, ac.Marker, 0.01)
}

func TestBreakFrequency(t *testing.T) {
	assert.InDelta(t, 1/(2*math.Pi*1e-3), BreakFrequency(1e3, 1e-6), 1e-9)
}

func TestSweepResistances(t *testing.T) {
	r := SweepResistances()
	require.Len(t, r, 199)
	assert.Equal(t, 500e3, r[0])
	assert.Equal(t, 99500e3, r[len(r)-1])
}

func TestSweepCellDeterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("runs three transients twice")
	}
	ctx := context.Background()
	cfg := config.Default()
	inputs := []float64{1e3, 10e3, 100e3}

	seq, err := sweep.Map(ctx, inputs, SweepFunc(cfg))
	require.NoError(t, err)
	par, err := sweep.ParallelMap(ctx, inputs, SweepFunc(cfg), 3)
	require.NoError(t, err)
	require.NoError(t, sweep.Compare(seq, par, SameResult))

	keys := seq[0].Keys()
	assert.Equal(t, []string{"n1", "n2", "n3", "time"}, keys)
	tm, _ := seq[0].Get("time")
	assert.Equal(t, 1001, tm.Len())
}

func TestLookup(t *testing.T) {
	_, err := Lookup("Clipper")
	assert.NoError(t, err)
	_, err = Lookup("nope")
	assert.ErrorContains(t, err, "divider")
	assert.Len(t, All(), len(Names()))
}
