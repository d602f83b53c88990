package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edp1096/toy-spice-tutorials/pkg/tutorial"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tutorials and the analyses they run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tANALYSES\tDESCRIPTION")
		for _, t := range tutorial.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", nameColor.Sprint(t.Name), analyses(t), t.Description)
		}
		return w.Flush()
	},
}

func analyses(t tutorial.Tutorial) string {
	a := []string{"op"}
	if t.DC != nil {
		a = append(a, "dc")
	}
	if t.Transient != nil {
		a = append(a, "tran")
	}
	if t.AC != nil {
		a = append(a, "ac")
	}
	if t.NgspiceOnly {
		a = append(a, "(ngspice)")
	}
	return strings.Join(a, ",")
}

var netlistCmd = &cobra.Command{
	Use:               "netlist <tutorial>",
	Short:             "Print the SPICE netlist of a tutorial circuit",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: tutorialArg,
	RunE: func(cmd *cobra.Command, args []string) error {
		tut, err := tutorial.Lookup(args[0])
		if err != nil {
			return err
		}
		c := tut.Build()
		if err := c.Err(); err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), c.String())
		return nil
	},
}

func init() {
	AddCommand(listCmd)
	AddCommand(netlistCmd)
}
