package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sammcj/autobatch/config"
	"github.com/sammcj/autobatch/logging"
)

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	cfgFile string
	quiet   bool
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "autobatch",
		Short: "Estimate the largest training batch size that fits in accelerator memory",
		Long: `Autobatch probes a network at a ladder of batch sizes, fits a line to the
memory each one used and solves for the batch size that fills a fraction of
the free device memory.

Configuration is read from ~/.config/autobatch/config.json, then AUTOBATCH_*
environment variables, then flags.

Examples:
  autobatch estimate                           # yolov5s at 640px on the first GPU
  autobatch estimate -n yolov5m --imgsz 1280   # bigger network and images
  autobatch estimate -d sim --sim-total-gib 24 # simulate a 24 GiB card
  autobatch estimate --json                    # machine-readable output
  autobatch devices                            # list host memory and GPUs`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ~/.config/autobatch/config.json)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "log file path")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "log to the log file only")

	cmd.AddCommand(
		newEstimateCmd(a),
		newDevicesCmd(),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// setup loads configuration and starts logging before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	var console io.Writer
	if !a.quiet {
		console = cmd.ErrOrStderr()
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogFilePath, console); err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}

	a.cfg = cfg
	return nil
}

func skipSetup(cmd *cobra.Command, args []string) error {
	return nil
}
