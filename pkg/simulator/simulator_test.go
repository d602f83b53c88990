package simulator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-spice-tutorials/pkg/analysis"
	"github.com/edp1096/toy-spice-tutorials/pkg/config"
	"github.com/edp1096/toy-spice-tutorials/pkg/netlist"
)

const tranRaw = `Title: divider
Date: Thu Oct 16 10:00:00  2026
Plotname: Transient Analysis
Flags: real
No. Variables: 4
No. Points: 3
Variables:
	0	time	time
	1	v(in)	voltage
	2	v(out)	voltage
	3	i(vinput)	current
Values:
 0	0.000000000000000e+00
	1.000000000000000e+01
	1.000000000000000e+00
	-1.000000000000000e-03
 1	1.000000000000000e-04
	1.000000000000000e+01
	1.000000000000000e+00
	-1.000000000000000e-03
 2	2.000000000000000e-04
	1.000000000000000e+01
	1.000000000000000e+00
	-1.000000000000000e-03
`

const acRaw = `Title: low pass
Date: Thu Oct 16 10:00:00  2026
Plotname: AC Analysis
Flags: complex
No. Variables: 3
No. Points: 2
Variables:
	0	frequency	frequency	grid=3
	1	out	voltage
	2	vinput#branch	current
Values:
 0	1.000000000000000e+01,0.000000000000000e+00
	9.999999000000000e-01,-6.283000000000000e-03
	-1.000000000000000e-06,6.000000000000000e-06
 1	1.000000000000000e+02,0.000000000000000e+00
	9.990000000000000e-01,-6.270000000000000e-02
	-1.000000000000000e-05,6.000000000000000e-05
`

func TestReadRawReal(t *testing.T) {
	plots, err := ReadRaw(strings.NewReader(tranRaw))
	require.NoError(t, err)
	require.Len(t, plots, 1)

	p := plots[0]
	assert.Equal(t, "Transient Analysis", p.Name)
	assert.False(t, p.Complex)
	assert.Equal(t, 3, p.Points)
	require.Len(t, p.Variables, 4)
	assert.Equal(t, 2, p.Column("V(OUT)"))
	assert.Equal(t, []float64{0, 1e-4, 2e-4}, p.Real[0])
	assert.Equal(t, []float64{1, 1, 1}, p.Real[2])
}

func TestReadRawComplex(t *testing.T) {
	plots, err := ReadRaw(strings.NewReader(acRaw))
	require.NoError(t, err)
	p := plots[0]
	assert.True(t, p.Complex)
	assert.Equal(t, []complex128{10, 100}, p.Cplx[0])
	assert.Equal(t, complex(0.999, -0.0627), p.Cplx[1][1])
}

func TestReadRawMultiplePlots(t *testing.T) {
	plots, err := ReadRaw(strings.NewReader(tranRaw + acRaw))
	require.NoError(t, err)
	require.Len(t, plots, 2)
	assert.Equal(t, "AC Analysis", plots[1].Name)
}

func TestReadRawErrors(t *testing.T) {
	_, err := ReadRaw(strings.NewReader(""))
	assert.Error(t, err)

	truncated := tranRaw[:strings.LastIndex(tranRaw, " 2\t")]
	_, err = ReadRaw(strings.NewReader(truncated))
	assert.Error(t, err)

	_, err = ReadRaw(strings.NewReader("Title: x\nBinary:\n"))
	assert.Error(t, err)
}

func TestFillResult(t *testing.T) {
	plots, err := ReadRaw(strings.NewReader(acRaw))
	require.NoError(t, err)
	p := plots[0]

	col := complexColumn(p)
	r := analysis.NewResult[complex128](analysis.KindAC, "low pass")
	r.SetFrequency(col(0))
	fillResult(r, p.Variables, 1, col)

	assert.Equal(t, []string{"out"}, r.Nodes().Names())
	assert.Equal(t, []string{"vinput"}, r.Branches().Names())

	n, err := r.Normalize()
	require.NoError(t, err)
	assert.Equal(t, []string{"out", "frequency"}, n.Keys())
}

func TestVectorName(t *testing.T) {
	for raw, want := range map[string]struct {
		name   string
		branch bool
	}{
		"v(out)":    {"out", false},
		"V(X1.mid)": {"x1.mid", false},
		"i(vinput)": {"vinput", true},
		"l1#branch": {"l1", true},
		"in":        {"in", false},
	} {
		name, branch := vectorName(raw)
		assert.Equal(t, want.name, name, raw)
		assert.Equal(t, want.branch, branch, raw)
	}
}

func divider() *netlist.Circuit {
	c := netlist.New("Voltage Divider")
	c.V("input", "in", c.Gnd, 10)
	c.R("1", "in", "out", 9e3)
	c.R("2", "out", c.Gnd, 1e3)
	return c
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "xyce"
	_, err := New(cfg, divider())
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestNewReportsBuilderError(t *testing.T) {
	c := divider()
	c.R("1", "a", "b", 1)
	_, err := New(config.Default(), c)
	assert.ErrorIs(t, err, netlist.ErrDuplicateElement)
}

func TestBuiltinOperatingPoint(t *testing.T) {
	c := divider()
	sim, err := New(config.Default(), c)
	require.NoError(t, err)

	// the simulator works on a snapshot
	c.R("3", "out", c.Gnd, 1)

	r, err := sim.OperatingPoint(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r.Node("out")[0], 1e-9)
}

func TestBuiltinRawStatements(t *testing.T) {
	c := divider()
	c.WriteLine("R3 out 0 1k ; parallel load")

	sim, err := New(config.Default(), c)
	require.NoError(t, err)
	r, err := sim.OperatingPoint(context.Background())
	require.NoError(t, err)
	// 9k over 500 ohm
	assert.InDelta(t, 10*500.0/9500.0, r.Node("out")[0], 1e-9)
}

func TestBuiltinRejectsInclude(t *testing.T) {
	c := divider()
	c.Include("diode.lib")
	sim, err := New(config.Default(), c)
	require.NoError(t, err)

	_, err = sim.OperatingPoint(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestBuiltinRejectsUnknownSubcircuit(t *testing.T) {
	c := divider()
	c.X("D1", "1N4148", "out", c.Gnd)
	sim, err := New(config.Default(), c)
	require.NoError(t, err)

	_, err = sim.OperatingPoint(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestBuiltinRejectsControlCard(t *testing.T) {
	c := divider()
	c.WriteLine(".control")
	sim, err := New(config.Default(), c)
	require.NoError(t, err)

	_, err = sim.OperatingPoint(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestBuiltinSubcircuit(t *testing.T) {
	c := netlist.New("halves")
	half := c.Subcircuit("half", "top", "bottom")
	half.R("1", "top", "mid", 1e3)
	half.R("2", "mid", "bottom", 1e3)
	c.V("1", "1", c.Gnd, 2)
	c.X("div", "half", "1", c.Gnd)

	sim, err := New(config.Default(), c)
	require.NoError(t, err)
	r, err := sim.OperatingPoint(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r.Node("xdiv.mid")[0], 1e-9)
}

func TestBuiltinTransientOptions(t *testing.T) {
	c := netlist.New("rc")
	c.V("1", "in", c.Gnd, 1)
	c.R("1", "in", "out", 1e3)
	c.C("1", "out", c.Gnd, 1e-6)

	sim, err := New(config.Default(), c)
	require.NoError(t, err)

	r, err := sim.Transient(context.Background(), 1e-4, 2e-3, UseInitialConditions(), StartTime(1e-3))
	require.NoError(t, err)
	assert.InDelta(t, 1e-3, r.Time()[0], 1e-12)
	assert.InDelta(t, 1-0.3679, r.Node("out")[0], 0.02)
}

func TestNgspiceDeck(t *testing.T) {
	cfg := config.Default()
	cfg.Temperature = 27
	s := newNgspice(cfg, divider())

	deck := s.Deck(".op")
	assert.True(t, strings.HasPrefix(deck, ".title Voltage Divider\n"))
	assert.Contains(t, deck, ".options filetype=ascii\n")
	assert.Contains(t, deck, ".options temp=27 tnom=25\n")
	assert.True(t, strings.HasSuffix(deck, ".op\n.end\n"))
}

func fakeNgspice(t *testing.T, script string) config.Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "ngspice")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))

	cfg := config.Default()
	cfg.Backend = config.BackendNgspice
	cfg.NgspicePath = path
	cfg.OutputDir = t.TempDir()
	return cfg
}

func TestNgspiceTransient(t *testing.T) {
	rawPath := filepath.Join(t.TempDir(), "fixture.raw")
	require.NoError(t, os.WriteFile(rawPath, []byte(tranRaw), 0o644))
	// $3 is the raw file name passed after -r
	cfg := fakeNgspice(t, "grep -q '^.tran 0.0001 0.0002$' \"$4\" || exit 3\ncp "+rawPath+" \"$3\"\n")

	sim, err := New(cfg, divider())
	require.NoError(t, err)
	r, err := sim.Transient(context.Background(), 1e-4, 2e-4)
	require.NoError(t, err)

	assert.Equal(t, analysis.KindTransient, r.Kind())
	assert.Equal(t, []float64{0, 1e-4, 2e-4}, []float64(r.Time()))
	assert.Equal(t, []string{"in", "out"}, r.Nodes().Names())
	assert.InDelta(t, -1e-3, r.Branch("vinput")[0], 1e-15)

	// the work directory is removed after a successful run
	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNgspiceProcessError(t *testing.T) {
	cfg := fakeNgspice(t, "echo 'Error: unknown subckt' >&2\nexit 1\n")

	sim, err := New(cfg, divider())
	require.NoError(t, err)
	_, err = sim.OperatingPoint(context.Background())

	var perr *ProcessError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Stderr, "unknown subckt")
	assert.Contains(t, err.Error(), "unknown subckt")
}
