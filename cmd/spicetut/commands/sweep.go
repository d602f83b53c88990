package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/edp1096/toy-spice-tutorials/pkg/analysis"
	"github.com/edp1096/toy-spice-tutorials/pkg/config"
	"github.com/edp1096/toy-spice-tutorials/pkg/plot"
	"github.com/edp1096/toy-spice-tutorials/pkg/sweep"
	"github.com/edp1096/toy-spice-tutorials/pkg/tutorial"
)

// sweepTask builds the per-resistance task; tests swap it.
var sweepTask = func(c config.Config) sweep.Func[float64, *analysis.Normalized[float64]] {
	return tutorial.SweepFunc(c)
}

func newSweepCmd() *cobra.Command {
	var (
		kStart, kStop, kStep float64
		plotOut              bool
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the clipper transient over many R1 values, in parallel and in sequence",
		Long: `sweep simulates the diode clipper once per R1 value on a worker pool, then
again one after the other, prints the speedup and checks both runs agree.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rs := tutorial.SweepResistances()
			if cmd.Flags().Changed("kstart") || cmd.Flags().Changed("kstop") || cmd.Flags().Changed("kstep") {
				if kStep <= 0 {
					return fmt.Errorf("--kstep must be positive")
				}
				rs = rs[:0]
				for _, k := range sweep.Arange(kStart, kStop, kStep) {
					rs = append(rs, k*1e3)
				}
			}
			if len(rs) == 0 {
				return fmt.Errorf("empty resistance range")
			}

			workers := cfg.WorkerCount()
			slog.Info("sweep started", "tasks", len(rs), "workers", workers, "backend", cfg.Backend)
			report, results, err := sweep.Benchmark(cmd.Context(), rs, sweepTask(cfg), workers, tutorial.SameResult)
			fmt.Fprintln(cmd.OutOrStdout(), report)
			if err != nil {
				return err
			}
			if report.ParallelErr != nil {
				return fmt.Errorf("parallel sweep failed, results not compared: %w", report.ParallelErr)
			}
			headerColor.Fprintln(cmd.OutOrStdout(), "parallel and sequential results match")

			if plotOut {
				return saveSweepOverlay(rs, results)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&kStart, "kstart", 500, "first R1 [kOhm]")
	cmd.Flags().Float64Var(&kStop, "kstop", 100000, "R1 upper bound, excluded [kOhm]")
	cmd.Flags().Float64Var(&kStep, "kstep", 500, "R1 increment [kOhm]")
	addPlotFlag(cmd, &plotOut)
	return cmd
}

// saveSweepOverlay draws V(n2) of a handful of the swept circuits.
func saveSweepOverlay(rs []float64, results []*analysis.Normalized[float64]) error {
	const maxCurves = 8
	stride := max(1, len(results)/maxCurves)

	var series []plot.Series
	for i := 0; i < len(results); i += stride {
		tm, ok := results[i].Get("time")
		if !ok {
			continue
		}
		v, ok := results[i].Get("n2")
		if !ok || v.IsScalar() {
			continue
		}
		series = append(series, plot.Series{
			Label: fmt.Sprintf("R1=%gk", rs[i]/1e3),
			X:     tm.Samples(),
			Y:     v.Samples(),
		})
	}
	return saveLines(plot.Figure{
		Title:  "Diode Clipper sweep",
		XLabel: "Time [s]",
		YLabel: "V(n2) [V]",
		Series: series,
	})
}

func init() {
	AddCommand(newSweepCmd())
}
