package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edp1096/toy-spice-tutorials/pkg/simulator"
)

var opCmd = &cobra.Command{
	Use:               "op <tutorial>",
	Short:             "Run the operating point of a tutorial circuit",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: tutorialArg,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, sim, err := openTutorial(args)
		if err != nil {
			return err
		}
		r, err := sim.OperatingPoint(cmd.Context())
		if err != nil {
			return err
		}
		return printOperatingPoint(cmd.OutOrStdout(), r)
	},
}

func newDCCmd() *cobra.Command {
	var (
		source            string
		start, stop, step float64
		xNode             string
		plotOut           bool
	)
	cmd := &cobra.Command{
		Use:               "dc <tutorial>",
		Short:             "Sweep a voltage source of a tutorial circuit",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: tutorialArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			tut, sim, err := openTutorial(args)
			if err != nil {
				return err
			}
			if dc := tut.DC; dc != nil {
				f := cmd.Flags()
				if !f.Changed("source") {
					source = dc.Source
				}
				if !f.Changed("start") {
					start = dc.Start
				}
				if !f.Changed("stop") {
					stop = dc.Stop
				}
				if !f.Changed("step") {
					step = dc.Step
				}
				if !f.Changed("x-node") {
					xNode = dc.XNode
				}
			}
			if source == "" || step == 0 {
				return fmt.Errorf("%s has no DC sweep; pass --source and --step", tut.Name)
			}

			r, err := sim.DC(cmd.Context(), source, start, stop, step)
			if err != nil {
				return err
			}
			if err := printSweep(cmd.OutOrStdout(), r); err != nil {
				return err
			}
			if plotOut {
				return saveSweepFigure(r, xNode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "voltage source to sweep")
	cmd.Flags().Float64Var(&start, "start", 0, "sweep start [V]")
	cmd.Flags().Float64Var(&stop, "stop", 0, "sweep stop [V]")
	cmd.Flags().Float64Var(&step, "step", 0, "sweep increment [V]")
	cmd.Flags().StringVar(&xNode, "x-node", "", "node voltage on the plot x axis")
	addPlotFlag(cmd, &plotOut)
	return cmd
}

func newTranCmd() *cobra.Command {
	var (
		step, stop, start, maxStep float64
		uic, plotOut               bool
	)
	cmd := &cobra.Command{
		Use:               "tran <tutorial>",
		Short:             "Run a transient analysis of a tutorial circuit",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: tutorialArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			tut, sim, err := openTutorial(args)
			if err != nil {
				return err
			}
			if tr := tut.Transient; tr != nil {
				if !cmd.Flags().Changed("step") {
					step = tr.Step
				}
				if !cmd.Flags().Changed("stop") {
					stop = tr.Stop
				}
			}
			if step <= 0 || stop <= 0 {
				return fmt.Errorf("%s has no transient analysis; pass --step and --stop", tut.Name)
			}

			var opts []simulator.TransientOption
			if start > 0 {
				opts = append(opts, simulator.StartTime(start))
			}
			if maxStep > 0 {
				opts = append(opts, simulator.MaxStep(maxStep))
			}
			if uic {
				opts = append(opts, simulator.UseInitialConditions())
			}

			r, err := sim.Transient(cmd.Context(), step, stop, opts...)
			if err != nil {
				return err
			}
			if err := printTransient(cmd.OutOrStdout(), r); err != nil {
				return err
			}
			if plotOut {
				return saveTransientFigure(r)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&step, "step", 0, "print step [s]")
	cmd.Flags().Float64Var(&stop, "stop", 0, "end time [s]")
	cmd.Flags().Float64Var(&start, "start", 0, "first time point kept [s]")
	cmd.Flags().Float64Var(&maxStep, "max-step", 0, "largest internal step [s]")
	cmd.Flags().BoolVar(&uic, "uic", false, "skip the operating point and start from zero")
	addPlotFlag(cmd, &plotOut)
	return cmd
}

func newACCmd() *cobra.Command {
	var (
		variation     string
		points        int
		fstart, fstop float64
		node          string
		plotOut       bool
	)
	cmd := &cobra.Command{
		Use:               "ac <tutorial>",
		Short:             "Run a small-signal AC analysis of a tutorial circuit",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: tutorialArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			tut, sim, err := openTutorial(args)
			if err != nil {
				return err
			}
			var marker float64
			if ac := tut.AC; ac != nil {
				f := cmd.Flags()
				if !f.Changed("variation") {
					variation = ac.Variation
				}
				if !f.Changed("points") {
					points = ac.Points
				}
				if !f.Changed("fstart") {
					fstart = ac.Start
				}
				if !f.Changed("fstop") {
					fstop = ac.Stop
				}
				if !f.Changed("node") {
					node = ac.Output
				}
				marker = ac.Marker
			}
			if points <= 0 || fstart <= 0 {
				return fmt.Errorf("%s has no AC analysis; pass --points, --fstart and --fstop", tut.Name)
			}

			r, err := sim.AC(cmd.Context(), variation, points, fstart, fstop)
			if err != nil {
				return err
			}
			if err := printAC(cmd.OutOrStdout(), r); err != nil {
				return err
			}
			if plotOut {
				if node == "" {
					return fmt.Errorf("pass --node to plot")
				}
				return saveBodeFigure(r, node, marker)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&variation, "variation", "dec", "point spacing: dec, oct or lin")
	cmd.Flags().IntVar(&points, "points", 0, "points per decade/octave, or total for lin")
	cmd.Flags().Float64Var(&fstart, "fstart", 0, "start frequency [Hz]")
	cmd.Flags().Float64Var(&fstop, "fstop", 0, "stop frequency [Hz]")
	cmd.Flags().StringVar(&node, "node", "", "node shown in the Bode plot")
	addPlotFlag(cmd, &plotOut)
	return cmd
}

func init() {
	AddCommand(opCmd)
	AddCommand(newDCCmd())
	AddCommand(newTranCmd())
	AddCommand(newACCmd())
}
