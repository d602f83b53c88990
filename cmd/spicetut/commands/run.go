package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/edp1096/toy-spice-tutorials/pkg/config"
	"github.com/edp1096/toy-spice-tutorials/pkg/simulator"
	"github.com/edp1096/toy-spice-tutorials/pkg/tutorial"
)

// OutputFigure is the file every plotting command writes into the output dir.
const OutputFigure = "Sim_Output.png"

var errNeedsNgspice = errors.New("tutorial needs the ngspice backend")

func addPlotFlag(cmd *cobra.Command, p *bool) {
	cmd.Flags().BoolVar(p, "plot", false, "save the waveforms to "+OutputFigure)
}

// openTutorial resolves args[0] and returns a simulator for its circuit.
func openTutorial(args []string) (tutorial.Tutorial, simulator.Simulator, error) {
	tut, err := tutorial.Lookup(args[0])
	if err != nil {
		return tut, nil, err
	}
	if tut.NgspiceOnly && cfg.Backend != config.BackendNgspice {
		return tut, nil, fmt.Errorf("%s: %w (use --backend %s)", tut.Name, errNeedsNgspice, config.BackendNgspice)
	}
	sim, err := simulator.New(cfg, tut.Build())
	if err != nil {
		return tut, nil, err
	}
	return tut, sim, nil
}

func figurePath() string {
	return filepath.Join(cfg.OutputDir, OutputFigure)
}

func tutorialArg(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return tutorial.Names(), cobra.ShellCompDirectiveNoFileComp
}
