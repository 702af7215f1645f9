package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/san-kum/motorsim/internal/analysis"
	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/experiment"
	"github.com/san-kum/motorsim/internal/export"
	"github.com/san-kum/motorsim/internal/motor"
	"github.com/san-kum/motorsim/internal/optim"
	"github.com/san-kum/motorsim/internal/sim"
	"github.com/san-kum/motorsim/internal/storage"
	"github.com/san-kum/motorsim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.WithLogger(logger))
	if err != nil {
		return err
	}
	cfg = exp.Config()
	warnStiff(cfg, exp)

	fmt.Printf("running %s: %s, dt=%g, duration=%gs, %d steps\n",
		cfg.Simulation.Mode, cfg.Simulation.Integrator,
		cfg.Simulation.Dt, cfg.Simulation.Duration, exp.SimConfig().Steps())

	start := time.Now()
	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := storage.Open(dataDir, storage.WithLogger(logger))
	runID, err := st.Save(cfg, result)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	fmt.Println(viz.Separator(44))
	fmt.Println(viz.KeyValue("run id", runID))
	fmt.Println(viz.KeyValue("elapsed", elapsed.Round(time.Millisecond)))
	fmt.Println(viz.KeyValue("final current [A]", fmt.Sprintf("%.4f", result.Final[motor.Current])))
	fmt.Println(viz.KeyValue("final speed [rad/s]", fmt.Sprintf("%.4f", result.Final[motor.Speed])))
	fmt.Println(viz.Separator(44))
	fmt.Print(viz.MetricsTable(result.Metrics))

	if show, _ := cmd.Flags().GetBool("plot"); show {
		printPlots(result.Trajectory)
	}

	if scopePath != "" {
		opt, err := scopeOptions(runID, cfg)
		if err != nil {
			return err
		}
		if err := export.ScopeFile(scopePath, result.Trajectory, opt); err != nil {
			return fmt.Errorf("failed to write scope: %w", err)
		}
		fmt.Printf("scope written to %s\n", scopePath)
	}

	if path, _ := cmd.Flags().GetString("save-config"); path != "" {
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		fmt.Printf("config written to %s\n", path)
	}

	return nil
}

// warnStiff flags explicit Euler runs whose step is past the stability
// limit of the electrical mode.
func warnStiff(cfg *config.Config, exp *experiment.Experiment) {
	if cfg.Simulation.Integrator != "euler" {
		return
	}
	report, err := analysis.Modes(exp.Motor())
	if err != nil {
		logger.Debug("mode analysis failed", zap.Error(err))
		return
	}
	if report.EulerMaxDt > 0 && cfg.Simulation.Dt > report.EulerMaxDt {
		logger.Warn("dt exceeds the euler stability limit, the run will diverge",
			zap.Float64("dt", cfg.Simulation.Dt),
			zap.Float64("max_dt", report.EulerMaxDt),
		)
	}
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("comparing %d integrators on %s, dt=%g, duration=%gs\n\n",
		len(args), cfg.Simulation.Mode, cfg.Simulation.Dt, cfg.Simulation.Duration)

	type row struct {
		name    string
		result  *sim.Result
		elapsed time.Duration
	}
	rows := make([]row, 0, len(args))

	for _, name := range args {
		c := cfg.Clone()
		c.Simulation.Integrator = name
		exp, err := experiment.New(c, experiment.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		start := time.Now()
		res, err := exp.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		rows = append(rows, row{name: name, result: res, elapsed: time.Since(start)})
	}

	base := rows[0].result.Trajectory.Speed
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tELAPSED\tFINAL I [A]\tFINAL W [rad/s]\tMAX |dW| VS "+rows[0].name)
	fmt.Fprintln(w, "----------\t-------\t-----------\t---------------\t-----------")
	for _, r := range rows {
		dev := 0.0
		for k, v := range r.result.Trajectory.Speed {
			if k < len(base) {
				dev = max(dev, abs(v-base[k]))
			}
		}
		fmt.Fprintf(w, "%s\t%v\t%.6f\t%.6f\t%.3e\n",
			r.name, r.elapsed.Round(time.Millisecond), r.result.Final[motor.Current], r.result.Final[motor.Speed], dev)
	}
	return w.Flush()
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	entries, _ := f.GetStringArray("grid")
	if len(entries) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}
	names, ranges, err := parseGrid(entries)
	if err != nil {
		return err
	}
	metric, _ := f.GetString("metric")
	workers, _ := f.GetInt("workers")
	top, _ := f.GetInt("top")

	gs := optim.NewGridSearch(names, ranges).WithWorkers(workers).WithLogger(logger)
	fmt.Printf("searching %d combinations for minimum %s\n", len(gs.Combinations()), metric)

	start := time.Now()
	best, all, err := gs.Search(cmd.Context(), cfg, metric)
	if err != nil {
		return err
	}

	ranked := optim.Ranked(all)
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := ""
	for _, n := range names {
		header += n + "\t"
	}
	fmt.Fprintln(w, header+metric)
	for _, c := range ranked {
		line := ""
		for _, n := range names {
			line += fmt.Sprintf("%g\t", c.Params[n])
		}
		fmt.Fprintf(w, "%s%.6g\n", line, c.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nbest %s = %.6g in %v\n", metric, best.Value, time.Since(start).Round(time.Millisecond))
	for _, n := range names {
		fmt.Printf("  --set %s=%g\n", n, best.Params[n])
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
