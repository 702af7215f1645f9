package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	dataDir   string
	verbose   bool
	scopePath string

	logger = zap.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "motorsim",
		Short:         "dc motor and cascade control simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".motorsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().StringVar(&scopePath, "scope", "", "also write a scope plot (.png or .svg)")
	runCmd.Flags().Bool("plot", false, "print terminal plots after the run")
	runCmd.Flags().String("save-config", "", "write the effective config to a yaml file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse a run interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  viewRun,
	}

	scopeCmd := &cobra.Command{
		Use:   "scope [run_id]",
		Short: "write voltage, current and speed panels to an image",
		Args:  cobra.ExactArgs(1),
		RunE:  scopeRun,
	}
	scopeCmd.Flags().StringP("out", "o", "scope.png", "output file (.png or .svg)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringP("out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringP("out", "o", "", "output file (default stdout)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "modes, step response and spectrum of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().String("channel", "current", "channel for the spectrum")
	analyzeCmd.Flags().Bool("phase", false, "print the current/speed phase plane")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search controller gains",
		Args:  cobra.NoArgs,
		RunE:  tuneGains,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringArray("grid", nil, "parameter grid, e.g. speed_pid.kp=0.1,0.2,0.4 (repeatable)")
	tuneCmd.Flags().String("metric", "speed_iae", "metric to minimize")
	tuneCmd.Flags().Int("workers", 0, "parallel runs (0 = all cpus)")
	tuneCmd.Flags().Int("top", 5, "number of candidates to print")

	compareCmd := &cobra.Command{
		Use:   "compare [integrator1] [integrator2] ...",
		Short: "compare integrators on the same configuration",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	addConfigFlags(compareCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-18s %-8s %s:%s  %gs @ dt %g\n",
					name, p.Simulation.Mode, p.Reference.Kind, referenceSummary(p),
					p.Simulation.Duration, p.Simulation.Dt)
			}
			return nil
		},
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one config key over a range",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().String("key", "", "config key to sweep, e.g. motor.tl")
	sweepCmd.Flags().Float64("from", 0, "first value")
	sweepCmd.Flags().Float64("to", 1, "last value")
	sweepCmd.Flags().Int("steps", 5, "number of values")
	sweepCmd.Flags().Int("workers", 0, "parallel runs (0 = all cpus)")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run with randomly scattered motor parameters",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addConfigFlags(monteCarloCmd)
	monteCarloCmd.Flags().Float64("tolerance", 0.1, "relative parameter tolerance")
	monteCarloCmd.Flags().Int("trials", 50, "number of trials")
	monteCarloCmd.Flags().Int64("seed", 0, "random seed (0 = time based)")
	monteCarloCmd.Flags().Int("workers", 0, "parallel runs (0 = all cpus)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, viewCmd, scopeCmd, exportCSVCmd, exportJSONCmd,
		analyzeCmd, tuneCmd, compareCmd, scenarioCmd, sweepCmd, monteCarloCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newLogger writes warnings to stderr; verbose switches to the development
// config at debug level.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func referenceSummary(c *config.Config) string {
	r := c.Reference
	switch r.Kind {
	case "constant":
		return fmt.Sprintf("%g", r.Value)
	case "step":
		return fmt.Sprintf("%g,%g", r.Value, r.Delay)
	case "square":
		return fmt.Sprintf("%g,%g,%g", r.Freq, r.High, r.Low)
	case "triangle":
		return fmt.Sprintf("%g,%g,%g", r.Freq, r.High, r.Low)
	case "sine":
		return fmt.Sprintf("%g,%g,%g", r.Freq, r.Amp, r.Offset)
	}
	return ""
}
