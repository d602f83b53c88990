package netlist

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func diodeClipper() *Circuit {
	c := New("diode clipper")
	c.Model("MyDiode", "D", "IS", 4.352e-9, "RS", 0.6458, "BV", 110, "IBV", 0.0001, "N", 1.906)
	c.SinusoidalVoltageSource("input", "in", c.Gnd, SinusoidalOptions{Amplitude: 1, Frequency: 100})
	c.R("1", "in", "out", 1e3)
	c.C("1", "out", "mid", 1e-6)
	c.D("1", "mid", c.Gnd, "MyDiode")
	c.R("2", "mid", c.Gnd, 1e3)
	return c
}

func TestRenderDiodeClipper(t *testing.T) {
	c := diodeClipper()
	c.WriteLine("* end of clipper")

	require.NoError(t, c.Err())
	golden.Assert(t, c.String(), "diode_clipper.golden")
}

func TestRenderSubcircuit(t *testing.T) {
	c := New("divider block")
	half := c.Subcircuit("half", "top", "bottom")
	half.R("1", "top", "mid", 1e3)
	half.R("2", "mid", "bottom", 1e3)
	c.V("1", N(1), c.Gnd, 2)
	c.X("div", "half", N(1), c.Gnd)

	golden.Assert(t, c.String(), "subcircuit.golden")
}

func TestWriteLineReturnsSameBuilder(t *testing.T) {
	c := New("raw")
	got := c.WriteLine("R9 a 0 10").WriteLine(".model DX D (IS=1e-14)")

	assert.Same(t, c, got)
	assert.Equal(t, "R9 a 0 10\n.model DX D (IS=1e-14)\n", c.Raw())
	assert.Contains(t, c.String(), "R9 a 0 10\n")
}

func TestElementNamePrefix(t *testing.T) {
	c := New("names")
	assert.Equal(t, "R1", c.R("1", "a", "b", 1).Name)
	assert.Equal(t, "R2", c.R("R2", "a", "b", 1).Name)
	assert.Equal(t, "Vinput", c.V("input", "a", c.Gnd, 1).Name)
	assert.Equal(t, "d1", c.D("d1", "a", c.Gnd, "DX").Name)
}

func TestDuplicateElement(t *testing.T) {
	c := New("dup")
	c.R("1", "a", "b", 1)
	c.R("1", "b", "c", 1)
	assert.ErrorIs(t, c.Err(), ErrDuplicateElement)
}

func TestModelParameterErrors(t *testing.T) {
	c := New("model")
	c.Model("DX", "D", "IS")
	assert.Error(t, c.Err())

	c = New("model")
	m := c.Model("DX", "D", "IS", "10f", "N", 2)
	require.NoError(t, c.Err())
	assert.InDelta(t, 1e-14, m.ParamMap()["is"], 1e-27)
	assert.Equal(t, 2.0, m.ParamMap()["n"])
}

func TestFlatten(t *testing.T) {
	c := New("flatten")
	half := c.Subcircuit("half", "top", "bottom")
	half.R("1", "top", "mid", 1e3)
	half.R("2", "mid", "bottom", 1e3)
	half.C("1", "mid", "gnd", 1e-9)
	c.V("1", "in", c.Gnd, 2)
	c.X("1", "half", "in", "out")
	c.X("2", "half", "out", c.Gnd)
	c.X("3", "external", "in", c.Gnd)

	flat, err := c.Flatten()
	require.NoError(t, err)

	var names []string
	for _, e := range flat.Elements() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"V1", "X1.R1", "X1.R2", "X1.C1", "X2.R1", "X2.R2", "X2.C1", "X3"}, names)

	r := flat.Element("X1.R2")
	require.NotNil(t, r)
	assert.Equal(t, []string{"X1.mid", "out"}, r.Nodes)
	assert.Equal(t, []string{"X2.mid", "0"}, flat.Element("X2.C1").Nodes)

	// The original is untouched.
	assert.Len(t, c.Elements(), 4)
	assert.Len(t, c.Subcircuits(), 1)
}

func TestFlattenPinMismatch(t *testing.T) {
	c := New("bad")
	c.Subcircuit("two", "a", "b").R("1", "a", "b", 1)
	c.X("1", "two", "n1")

	_, err := c.Flatten()
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	c := diodeClipper()
	snapshot := c.Clone()
	c.Element("R1").Value = 5e3
	c.WriteLine("* later")

	assert.Equal(t, 1e3, snapshot.Element("R1").Value)
	assert.Empty(t, snapshot.Raw())
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"9k", 9e3},
		{"9K", 9e3},
		{"1kOhm", 1e3},
		{"1meg", 1e6},
		{"1MEG", 1e6},
		{"2.2m", 2.2e-3},
		{"1uF", 1e-6},
		{"4.352n", 4.352e-9},
		{"10p", 10e-12},
		{"3f", 3e-15},
		{"1g", 1e9},
		{"1t", 1e12},
		{"1mil", 25.4e-6},
		{"100Hz", 100},
		{"-1.5V", -1.5},
		{"1e-3", 1e-3},
		{".5", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValue(tt.in)
			require.NoError(t, err)
			assert.InEpsilon(t, tt.want, got, 1e-12)
		})
	}

	_, err := ParseValue("abc")
	assert.Error(t, err)
}

func TestFormatValueRoundTrip(t *testing.T) {
	for _, v := range []float64{0.6458, 1e-6, 4.352e-9, 9e3, 1e6, 110, 1.906, -2.5e-3, 1e-4, 3.3e12} {
		s := FormatValue(v)
		got, err := ParseValue(s)
		require.NoError(t, err, s)
		assert.InEpsilon(t, v, got, 1e-9, s)
	}
	assert.Equal(t, "9k", FormatValue(9000))
	assert.Equal(t, "1meg", FormatValue(1e6))
	assert.Equal(t, "0", FormatValue(0))
}

func TestDecodeStatements(t *testing.T) {
	text := `* clipper tail
Rload out 0 10k tc1=1m
C2 out 0 100n
L1 out x 1m
Vpulse p 0 PULSE(0 5 1m 10u 10u 1m 2m)
Vsin s 0 DC 0 AC 1 SIN(0 1 1k)
Ipwl 0 q PWL(0 0 1m 1
+ 2m 0)
D9 out 0 DX ; trailing comment
.model DX D(IS=1e-14 N=1.5)
`
	st, err := DecodeStatements(text)
	require.NoError(t, err)
	require.Len(t, st.Elements, 7)
	require.Len(t, st.Models, 1)

	rload := st.Elements[0]
	assert.Equal(t, "R", rload.Type)
	assert.Equal(t, 10e3, rload.Value)
	assert.Equal(t, "1m", rload.Params["tc1"])

	pulse := st.Elements[3].Source
	assert.Equal(t, SourcePulse, pulse.Kind)
	assert.Equal(t, 5.0, pulse.Pulse.Pulsed)
	assert.InDelta(t, 2e-3, pulse.Pulse.Period, 1e-15)

	sin := st.Elements[4].Source
	assert.Equal(t, SourceSin, sin.Kind)
	assert.True(t, sin.HasDC)
	assert.Equal(t, 1.0, sin.ACMag)
	assert.Equal(t, 1e3, sin.Sin.Frequency)

	pwl := st.Elements[5].Source
	assert.Equal(t, SourcePWL, pwl.Kind)
	assert.Len(t, pwl.PWL, 3)

	assert.Equal(t, "DX", st.Elements[6].Model)
	assert.Equal(t, "D", st.Models[0].Kind)
	assert.Equal(t, 1.5, st.Models[0].ParamMap()["n"])
}

func TestDecodeRejectsInclude(t *testing.T) {
	_, err := DecodeStatements(".include /lib/diode.lib\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedStatement))

	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, 1, stmtErr.Line)
}
