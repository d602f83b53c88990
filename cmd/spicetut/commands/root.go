package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edp1096/toy-spice-tutorials/internal/logging"
	"github.com/edp1096/toy-spice-tutorials/pkg/config"
)

var (
	envFile string
	cfg     config.Config
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spicetut",
		Short: "Circuit simulation tutorials",
		Long: `spicetut builds the tutorial circuits, runs them on the builtin engine or
on ngspice, prints the normalized waveforms and saves Sim_Output.png.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default .env, optional)")
	config.RegisterFlags(cmd.PersistentFlags())
	return cmd
}

// loadConfig resolves defaults, the env file, the environment and finally
// the flags set on cmd.
func loadConfig(cmd *cobra.Command) error {
	c, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := c.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}
	if _, err := logging.Setup(c.LogLevel, cmd.ErrOrStderr()); err != nil {
		return err
	}
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return fmt.Errorf("error creating output dir: %w", err)
	}
	cfg = c
	return nil
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// AddCommand allows adding subcommands from other files.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}
