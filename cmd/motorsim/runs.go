package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/san-kum/motorsim/internal/analysis"
	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/export"
	"github.com/san-kum/motorsim/internal/motor"
	"github.com/san-kum/motorsim/internal/sim"
	"github.com/san-kum/motorsim/internal/storage"
	"github.com/san-kum/motorsim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func openStore() *storage.Store {
	return storage.Open(dataDir, storage.WithLogger(logger))
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := openStore().List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tINTEGRATOR\tDT\tDURATION\tTIMESTAMP")
	fmt.Fprintln(w, "--\t----\t----------\t--\t--------\t---------")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%gs\t%s\n",
			r.ID, r.Mode, r.Integrator, r.Dt, r.Duration, r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *sim.Trajectory, error) {
	st := openStore()
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load run: %w", err)
	}
	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load trajectory: %w", err)
	}
	return meta, traj, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("run %s (%s, %d steps)\n", meta.ID, meta.Mode, meta.Steps)
	printPlots(traj)
	return nil
}

// printPlots decimates each channel to the terminal width.
func printPlots(traj *sim.Trajectory) {
	const width, height = 70, 12

	fmt.Println()
	fmt.Println(viz.Graph(decimate(traj.Voltage, width), width, height, "voltage [V]"))
	fmt.Println()
	if traj.CurrentRef != nil {
		fmt.Println(viz.Graphs([][]float64{
			decimate(traj.Current, width),
			decimate(traj.CurrentRef, width),
		}, width, height, "current [A] and reference"))
	} else {
		fmt.Println(viz.Graph(decimate(traj.Current, width), width, height, "current [A]"))
	}
	fmt.Println()
	fmt.Println(viz.Graph(decimate(traj.Speed, width), width, height, "speed [rad/s]"))
}

func decimate(data []float64, n int) []float64 {
	if len(data) <= n {
		return data
	}
	step := len(data) / n
	out := make([]float64, 0, n+1)
	for k := 0; k < len(data); k += step {
		out = append(out, data[k])
	}
	return out
}

func viewRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return viz.RunViewer(viz.NewViewer(meta.ID, traj, meta.Metrics))
}

// scopeOptions rebuilds the speed reference of closed loop runs.
func scopeOptions(title string, cfg *config.Config) (export.ScopeOptions, error) {
	opt := export.ScopeOptions{Title: title}
	if cfg == nil || cfg.Simulation.Mode == sim.ModeOpen {
		return opt, nil
	}
	ref, err := cfg.Reference.Build()
	if err != nil {
		return opt, err
	}
	opt.SpeedReference = ref
	return opt, nil
}

func scopeRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	opt, err := scopeOptions(meta.ID, meta.Config)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	if err := export.ScopeFile(out, traj, opt); err != nil {
		return err
	}
	fmt.Printf("scope written to %s\n", out)
	return nil
}

// withOutput runs write against the --out file, or stdout when it is empty.
func withOutput(cmd *cobra.Command, write func(io.Writer) error) (err error) {
	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	return write(f)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := openStore()
	return withOutput(cmd, func(w io.Writer) error { return st.ExportCSV(args[0], w) })
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := openStore()
	return withOutput(cmd, func(w io.Writer) error { return st.Export(args[0], w) })
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	cfg := meta.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	fmt.Printf("run %s (%s)\n\n", meta.ID, meta.Mode)

	m, err := motor.New(cfg.Motor)
	if err != nil {
		return err
	}
	report, err := analysis.Modes(m)
	if err != nil {
		return err
	}
	fmt.Println(viz.HeaderStyle.Render("plant modes"))
	for _, mode := range report.Modes {
		fmt.Println(viz.KeyValue(fmt.Sprintf("lambda %.4g%+.4gj", mode.Real, mode.Imag),
			fmt.Sprintf("tau %.4gs", mode.TimeConstant)))
	}
	fmt.Println(viz.KeyValue("euler max dt", fmt.Sprintf("%.4g", report.EulerMaxDt)))
	if meta.Integrator == "euler" && report.EulerMaxDt > 0 && meta.Dt > report.EulerMaxDt {
		fmt.Println(viz.WarnStyle.Render(fmt.Sprintf("dt %g exceeds the euler limit", meta.Dt)))
	}

	if meta.Mode != sim.ModeOpen && traj.Len() > 1 {
		ref, err := cfg.Reference.Build()
		if err != nil {
			return err
		}
		target := ref(traj.Time[traj.Len()-1])
		fmt.Println()
		fmt.Println(viz.HeaderStyle.Render("speed step response"))
		if step, err := analysis.StepInfo(traj.Time, traj.Speed, target, 0.02); err != nil {
			fmt.Println(viz.WarnStyle.Render(err.Error()))
		} else {
			fmt.Println(viz.KeyValue("target", fmt.Sprintf("%.4g", step.Target)))
			fmt.Println(viz.KeyValue("rise time", formatSeconds(step.RiseTime)))
			fmt.Println(viz.KeyValue("overshoot", fmt.Sprintf("%.2f%%", step.Overshoot)))
			fmt.Println(viz.KeyValue("settling time", formatSeconds(step.SettlingTime)))
			fmt.Println(viz.KeyValue("steady state error", fmt.Sprintf("%.4g", step.SteadyStateError)))
		}
	}

	channel, _ := cmd.Flags().GetString("channel")
	data, err := traj.Channel(channel)
	if err != nil {
		return err
	}
	sp := analysis.PowerSpectrum(data, traj.Dt())
	fmt.Println()
	fmt.Println(viz.HeaderStyle.Render(channel + " spectrum"))
	fmt.Println(viz.KeyValue("dominant frequency", fmt.Sprintf("%.4g Hz", sp.Dominant())))
	if n := len(sp.Magnitude); n > 8 {
		fmt.Println(viz.Graph(decimate(sp.Magnitude[1:n/8], 70), 70, 10, "magnitude, low eighth of the band"))
	}

	if phase, _ := cmd.Flags().GetBool("phase"); phase {
		stride := max(1, traj.Len()/2000)
		p := analysis.NewPhasePortrait("current [A]", traj.Current, "speed [rad/s]", traj.Speed, stride)
		fmt.Println()
		fmt.Println(viz.GraphStyle.Render(p.ASCII(60, 20)))
	}

	fmt.Println()
	fmt.Print(viz.MetricsTable(meta.Metrics))
	return nil
}

func formatSeconds(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4gs", v)
}
