package tutorial

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/edp1096/toy-spice-tutorials/pkg/analysis"
	"github.com/edp1096/toy-spice-tutorials/pkg/config"
	"github.com/edp1096/toy-spice-tutorials/pkg/netlist"
	"github.com/edp1096/toy-spice-tutorials/pkg/simulator"
	"github.com/edp1096/toy-spice-tutorials/pkg/sweep"
)

// DiodeModel adds the 1N4148PH signal diode model used by every tutorial.
func DiodeModel(c *netlist.Circuit) *netlist.Model {
	return c.Model("MyDiode", "D",
		"IS", 4.352e-9,
		"RS", 0.6458,
		"BV", 110,
		"IBV", 0.0001,
		"N", 1.906,
	)
}

// VoltageDivider is a 10 V source over 9k and 1k; V(out) is 1 V.
func VoltageDivider() *netlist.Circuit {
	c := netlist.New("Voltage Divider")
	c.V("input", "in", c.Gnd, 10)
	c.R("1", "in", "out", 9e3)
	c.R("2", "out", c.Gnd, 1e3)
	return c
}

// DiodeDivider is the divider with a series diode and a diode across the
// bottom resistor.
func DiodeDivider() *netlist.Circuit {
	c := netlist.New("Diode Divider")
	DiodeModel(c)
	c.V("input", "1", c.Gnd, 10)
	c.R("1", "1", "2", 9e3)
	c.D("1", "2", "3", "MyDiode")
	c.R("2", "3", c.Gnd, 1e3)
	c.D("2", "3", c.Gnd, "MyDiode")
	return c
}

// SubcircuitDivider moves the bottom resistor and diode of DiodeDivider
// into a two pin sub-circuit.
func SubcircuitDivider(r float64) *netlist.Circuit {
	c := netlist.New("Sub-circuit Divider")
	DiodeModel(c)

	sub := c.Subcircuit("sub1", "t_in", "t_out")
	sub.R("2", "t_in", "t_out", r)
	sub.D("2", "t_in", "t_out", "MyDiode")

	c.V("input", "1", c.Gnd, 10)
	c.R("1", "1", "2", 9e3)
	c.D("1", "2", "3", "MyDiode")
	c.X("1", "sub1", "3", c.Gnd)
	return c
}

// DiodeResistor is a diode in series with 1k, swept from 0 to 5 V.
func DiodeResistor() *netlist.Circuit {
	c := netlist.New("Diode Resistor")
	DiodeModel(c)
	c.V("input", "1", c.Gnd, 10)
	c.D("1", "1", "2", "MyDiode")
	c.R("1", "2", c.Gnd, 1e3)
	return c
}

// LibraryDiode pulls the 1N4148 sub-circuit from a library file with a raw
// .include line. Only the ngspice backend can run it.
func LibraryDiode(includePath string) *netlist.Circuit {
	c := netlist.New("Library Diode")
	c.V("input", "1", c.Gnd, 10)
	c.R("1", "2", c.Gnd, 1e3)
	c.WriteLine(".include " + includePath)
	c.X("importDiode", "1N4148", "1", "2")
	return c
}

// LookupTableData is the table the behavioral source follows.
var LookupTableData = []float64{0, 1, 5, 6, 2, 4}

// PWLLookup renders a B-source pwl() expression that maps v(control) = k to
// values[k-1], k = 1..len(values). Ten points go on each line.
func PWLLookup(control string, values []float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "pwl(v(%s),", control)
	for i, v := range values {
		k := i + 1
		if k%10 == 0 {
			b.WriteString("\n+")
		}
		fmt.Fprintf(&b, " %d,%.5f", k, v)
		if k < len(values) {
			b.WriteByte(',')
		}
	}
	b.WriteByte(')')
	return b.String()
}

// LookupTable drives node 1 from a behavioral source whose voltage follows
// LookupTableData as Vi, on the otherwise floating node img, is swept. A
// diode and 1k load node 1. Only ngspice understands the B line.
func LookupTable() *netlist.Circuit {
	c := netlist.New("Lookup Table")
	DiodeModel(c)
	c.V("i", "img", c.Gnd, 0)
	c.D("1", "1", "2", "MyDiode")
	c.R("1", "2", c.Gnd, 1e3)
	c.WriteLine(fmt.Sprintf("BBs 1 %s v=%s", c.Gnd, PWLLookup("img", LookupTableData)))
	return c
}

const (
	ClipperFrequency   = 100.0
	ClipperCapacitance = 1e-6
)

// DiodeClipper drives an RC low-pass (r, 1uF) from a 1 V 100 Hz sine and
// loads the capacitor node with a diode and 1k.
func DiodeClipper(r float64) *netlist.Circuit {
	c := netlist.New(fmt.Sprintf("Diode Clipper R=%s Ohm", netlist.FormatValue(r)))
	c.SinusoidalVoltageSource("input", "n1", c.Gnd, netlist.SinusoidalOptions{
		Amplitude:   1,
		Frequency:   ClipperFrequency,
		ACMagnitude: 1,
	})
	c.R("1", "n1", "n2", r)
	c.C("1", "n2", c.Gnd, ClipperCapacitance)
	c.D("1", "n2", "n3", "MyDiode")
	c.R("2", "n3", c.Gnd, 1e3)
	DiodeModel(c)
	return c
}

// BreakFrequency is the -3 dB point of an RC low-pass.
func BreakFrequency(r, c float64) float64 {
	return 1 / (2 * math.Pi * r * c)
}

// Sweep settings of the parallel benchmark: R1 from 500k to 100M in 500k
// steps, each simulated for 100 ms at 0.1 ms.
const (
	SweepStep     = 1e-4
	SweepStop     = 0.1
	sweepRStart   = 500.0
	sweepRStop    = 100000.0
	sweepRStepKOh = 500.0
)

// SweepResistances returns the R1 values of the parallel benchmark in ohms.
func SweepResistances() []float64 {
	kohm := sweep.Arange(sweepRStart, sweepRStop, sweepRStepKOh)
	out := make([]float64, len(kohm))
	for i, k := range kohm {
		out[i] = k * 1e3
	}
	return out
}

// SweepCell builds the clipper for one resistance, runs the transient and
// normalizes it. Each call owns its circuit and simulator.
func SweepCell(ctx context.Context, cfg config.Config, r float64) (*analysis.Normalized[float64], error) {
	sim, err := simulator.New(cfg, DiodeClipper(r))
	if err != nil {
		return nil, err
	}
	res, err := sim.Transient(ctx, SweepStep, SweepStop)
	if err != nil {
		return nil, fmt.Errorf("R=%g: %w", r, err)
	}
	return res.Normalize()
}

// SweepFunc adapts SweepCell to the sweep runner.
func SweepFunc(cfg config.Config) sweep.Func[float64, *analysis.Normalized[float64]] {
	return func(ctx context.Context, r float64) (*analysis.Normalized[float64], error) {
		return SweepCell(ctx, cfg, r)
	}
}

// SameResult is the element-wise equality used to check a parallel sweep.
func SameResult(a, b *analysis.Normalized[float64]) bool {
	return a.Equal(b)
}

// DCSpec, TransientSpec and ACSpec are the analyses a tutorial runs.
type DCSpec struct {
	Source            string
	Start, Stop, Step float64
	XNode             string // plotted on the x axis
}

type TransientSpec struct {
	Step, Stop float64
}

type ACSpec struct {
	Variation   string
	Points      int
	Start, Stop float64
	Output      string
	Marker      float64
}

// Tutorial is one walkthrough: a circuit and the analyses run on it.
type Tutorial struct {
	Name        string
	Description string
	Build       func() *netlist.Circuit
	DC          *DCSpec
	Transient   *TransientSpec
	AC          *ACSpec
	NgspiceOnly bool
}

var tutorials = []Tutorial{
	{
		Name:        "divider",
		Description: "resistive voltage divider, operating point",
		Build:       VoltageDivider,
	},
	{
		Name:        "diode-divider",
		Description: "divider with series and shunt diodes, operating point",
		Build:       DiodeDivider,
	},
	{
		Name:        "subcircuit",
		Description: "diode divider with the shunt branch in a sub-circuit",
		Build:       func() *netlist.Circuit { return SubcircuitDivider(1e3) },
	},
	{
		Name:        "diode-sweep",
		Description: "diode and resistor, DC sweep 0..5 V",
		Build:       DiodeResistor,
		DC:          &DCSpec{Source: "Vinput", Start: 0, Stop: 5, Step: 0.1, XNode: "1"},
	},
	{
		Name:        "library-diode",
		Description: "1N4148 from a library file via .include, DC sweep -3..3 V",
		Build:       func() *netlist.Circuit { return LibraryDiode("lib/1n4148.lib") },
		DC:          &DCSpec{Source: "Vinput", Start: -3, Stop: 3, Step: 0.01, XNode: "1"},
		NgspiceOnly: true,
	},
	{
		Name:        "lookup-table",
		Description: "behavioral pwl source as a lookup table, DC sweep of Vi 1..5 V",
		Build:       LookupTable,
		DC: &DCSpec{
			Source: "Vi", Start: 1, Stop: float64(len(LookupTableData) - 1), Step: 1,
			XNode: "1",
		},
		NgspiceOnly: true,
	},
	{
		Name:        "clipper",
		Description: "RC low-pass with diode load: DC, transient and AC",
		Build:       func() *netlist.Circuit { return DiodeClipper(1e3) },
		DC:          &DCSpec{Source: "Vinput", Start: -3, Stop: 3, Step: 0.1, XNode: "n1"},
		Transient:   &TransientSpec{Step: 1e-4, Stop: 0.1},
		AC: &ACSpec{
			Variation: "dec", Points: 10, Start: 1, Stop: 1e6,
			Output: "n2",
			Marker: BreakFrequency(1e3, ClipperCapacitance),
		},
	},
	{
		Name:        "clipper-period",
		Description: "one period of the clipper at 1000 points",
		Build:       func() *netlist.Circuit { return DiodeClipper(1e3) },
		Transient:   &TransientSpec{Step: 1 / ClipperFrequency / 1000, Stop: 1 / ClipperFrequency},
	},
}

// All lists the tutorials in order.
func All() []Tutorial {
	return slices.Clone(tutorials)
}

func Names() []string {
	names := make([]string, len(tutorials))
	for i, t := range tutorials {
		names[i] = t.Name
	}
	return names
}

func Lookup(name string) (Tutorial, error) {
	for _, t := range tutorials {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return Tutorial{}, fmt.Errorf("unknown tutorial %q (have %s)", name, strings.Join(Names(), ", "))
}
