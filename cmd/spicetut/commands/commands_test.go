package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-spice-tutorials/pkg/analysis"
	"github.com/edp1096/toy-spice-tutorials/pkg/config"
	"github.com/edp1096/toy-spice-tutorials/pkg/sweep"
	"github.com/edp1096/toy-spice-tutorials/pkg/tutorial"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--output", t.TempDir(), "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "divider")
	assert.Contains(t, out, "op,dc,tran,ac")
	assert.Contains(t, out, "(ngspice)")
}

func TestNetlist(t *testing.T) {
	out, err := execute(t, "netlist", "divider")
	require.NoError(t, err)
	assert.Contains(t, out, ".title Voltage Divider\n")
	assert.Contains(t, out, "R1 in out 9k")
}

func TestOperatingPoint(t *testing.T) {
	out, err := execute(t, "op", "divider")
	require.NoError(t, err)
	assert.Regexp(t, `V\(out\) = (1\.000 V|1000\.000 mV)`, out)
	assert.Contains(t, out, "V(in) = 10.000 V")
	assert.Contains(t, out, "I(vinput) = ")
}

func TestDCUsesTutorialDefaults(t *testing.T) {
	out, err := execute(t, "dc", "diode-sweep", "--step", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "DC Sweep Analysis Results (6 points)")
}

func TestTransientPlot(t *testing.T) {
	dir := t.TempDir()
	color.NoColor = true
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"tran", "clipper", "--stop", "1e-3", "--plot", "--output", dir, "--log-level", "error"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Transient Analysis Results")

	_, err := os.Stat(filepath.Join(dir, OutputFigure))
	assert.NoError(t, err)
}

func TestNgspiceOnlyTutorialOnBuiltin(t *testing.T) {
	_, err := execute(t, "op", "library-diode", "--backend", "builtin")
	assert.ErrorIs(t, err, errNeedsNgspice)
}

func TestMissingAnalysis(t *testing.T) {
	_, err := execute(t, "ac", "divider")
	assert.ErrorContains(t, err, "has no AC analysis")
}

func TestPlotFlagIsPerCommand(t *testing.T) {
	dir := t.TempDir()
	color.NoColor = true
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	rootCmd.SetArgs([]string{"tran", "clipper", "--stop", "1e-3", "--plot", "--output", t.TempDir(), "--log-level", "error"})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"dc", "diode-sweep", "--step", "1", "--output", dir, "--log-level", "error"})
	require.NoError(t, rootCmd.Execute())
	_, err := os.Stat(filepath.Join(dir, OutputFigure))
	assert.True(t, errors.Is(err, os.ErrNotExist), "dc without --plot wrote a figure")
}

func TestTutorialCompletion(t *testing.T) {
	names, directive := tutorialArg(opCmd, nil, "di")
	assert.Equal(t, tutorial.Names(), names)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	names, _ = tutorialArg(opCmd, []string{"divider"}, "")
	assert.Empty(t, names)
}

// constantTask returns the same one-node result for every resistance and
// fails the first failFirst calls.
func constantTask(failFirst int32) func(config.Config) sweep.Func[float64, *analysis.Normalized[float64]] {
	var calls atomic.Int32
	return func(config.Config) sweep.Func[float64, *analysis.Normalized[float64]] {
		return func(ctx context.Context, r float64) (*analysis.Normalized[float64], error) {
			if calls.Add(1) <= failFirst {
				return nil, errors.New("solver diverged")
			}
			res := analysis.NewResult[float64](analysis.KindTransient, "const")
			res.Nodes().Set("n2", analysis.Waveform[float64]{0, 1})
			return res.Normalize()
		}
	}
}

func withSweepTask(t *testing.T, task func(config.Config) sweep.Func[float64, *analysis.Normalized[float64]]) {
	t.Helper()
	saved := sweepTask
	sweepTask = task
	t.Cleanup(func() { sweepTask = saved })
}

func TestSweepReportsMatch(t *testing.T) {
	withSweepTask(t, constantTask(0))
	out, err := execute(t, "sweep", "--kstart", "1", "--kstop", "4", "--kstep", "1", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "3 tasks on 2 workers")
	assert.Contains(t, out, "results match")
}

func TestSweepParallelFailureIsNotAMatch(t *testing.T) {
	withSweepTask(t, constantTask(1))
	out, err := execute(t, "sweep", "--kstart", "1", "--kstop", "4", "--kstep", "1", "--workers", "2")
	require.Error(t, err)
	assert.ErrorContains(t, err, "solver diverged")
	assert.Contains(t, out, "parallel failed")
	assert.NotContains(t, out, "results match")
}
