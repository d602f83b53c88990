package commands

import (
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"strings"

	"github.com/fatih/color"

	"github.com/edp1096/toy-spice-tutorials/pkg/analysis"
	"github.com/edp1096/toy-spice-tutorials/pkg/util"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	nameColor   = color.New(color.FgYellow)
)

func printHeader(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w)
	headerColor.Fprintf(w, format+"\n", args...)
	fmt.Fprintln(w, strings.Repeat("-", 64))
}

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w, "\nAnalysis Results:")
	headerColor.Fprintln(w, title)
	fmt.Fprintln(w, "================")
}

func printOperatingPoint(w io.Writer, r *analysis.Result[float64]) error {
	n, err := r.Normalize()
	if err != nil {
		return err
	}

	printTitle(w, r.Title())
	fmt.Fprintln(w, "\nNode Voltages:")
	for _, name := range n.Keys() {
		v, _ := n.Get(name)
		fmt.Fprintf(w, "%s = %s\n", nameColor.Sprintf("V(%s)", name), util.FormatValueFactor(sample(v, 0), "V"))
	}

	fmt.Fprintln(w, "\nBranch Currents:")
	for name, wf := range r.Branches().All() {
		if len(wf) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s = %s\n", nameColor.Sprintf("I(%s)", name), util.FormatValueFactor(wf[0], "A"))
	}
	return nil
}

// printRows prints one line per sample: the axis value then every node and
// branch.
func printRows(w io.Writer, r *analysis.Result[float64], axis analysis.Waveform[float64], axisFmt func(float64) string) error {
	n, err := r.Normalize(analysis.NodesOnly())
	if err != nil {
		return err
	}

	for i := range axis {
		fmt.Fprint(w, axisFmt(axis[i]))
		for _, name := range n.Keys() {
			v, _ := n.Get(name)
			fmt.Fprintf(w, "V(%s)=%s  ", name, util.FormatValueFactor(sample(v, i), "V"))
		}
		for name, wf := range r.Branches().All() {
			if i < len(wf) {
				fmt.Fprintf(w, "I(%s)=%s  ", name, util.FormatValueFactor(wf[i], "A"))
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func sample(v analysis.Value[float64], i int) float64 {
	if v.IsScalar() {
		return v.Scalar()
	}
	if s := v.Samples(); i < len(s) {
		return s[i]
	}
	return 0
}

func printSweep(w io.Writer, r *analysis.Result[float64]) error {
	printTitle(w, r.Title())
	printHeader(w, "DC Sweep Analysis Results (%d points):", len(r.Sweep()))
	fmt.Fprintln(w, "Sweep Values    Node Voltages        Branch Currents")
	name := r.SweepName()
	return printRows(w, r, r.Sweep(), func(v float64) string {
		return fmt.Sprintf("%s=%-9s  ", name, util.FormatValueFactor(v, "V"))
	})
}

func printTransient(w io.Writer, r *analysis.Result[float64]) error {
	printTitle(w, r.Title())
	printHeader(w, "Transient Analysis Results (%d time points):", len(r.Time()))
	fmt.Fprintln(w, "Time        Node Voltages        Branch Currents")
	return printRows(w, r, r.Time(), func(t float64) string {
		return fmt.Sprintf("%9s  ", util.FormatValueFactor(t, "s"))
	})
}

func printAC(w io.Writer, r *analysis.Result[complex128]) error {
	n, err := r.Normalize(analysis.NodesOnly())
	if err != nil {
		return err
	}

	printTitle(w, r.Title())
	printHeader(w, "AC Analysis Results (%d frequency points):", len(r.Frequency()))
	fmt.Fprintln(w, "Frequency      Node Voltages (Magnitude/Phase)        Branch Currents (Magnitude/Phase)")

	for i, f := range r.Frequency() {
		fmt.Fprintf(w, "%-13s", util.FormatFrequency(real(f)))
		for _, name := range n.Keys() {
			v, _ := n.Get(name)
			z := v.Scalar()
			if !v.IsScalar() {
				z = v.Samples()[i]
			}
			fmt.Fprintf(w, "%s  ", util.FormatMagnitudePhase("V("+name+")", cmplx.Abs(z), degrees(z)))
		}
		for name, wf := range r.Branches().All() {
			if i < len(wf) {
				fmt.Fprintf(w, "%s  ", util.FormatMagnitudePhase("I("+name+")", cmplx.Abs(wf[i]), degrees(wf[i])))
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func degrees(z complex128) float64 {
	return cmplx.Phase(z) * 180 / math.Pi
}
