package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/san-kum/motorsim/internal/automation"
	"github.com/san-kum/motorsim/internal/motor"
	"github.com/spf13/cobra"
)

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}

	results, err := automation.RunScenario(cmd.Context(), sc, openStore(), logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tMODE\tFINAL I [A]\tFINAL W [rad/s]\tRUN ID")
	for _, r := range results {
		id := r.RunID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%s\n",
			r.Name, r.Result.Mode, r.Result.Final[motor.Current], r.Result.Final[motor.Speed], id)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	key, _ := f.GetString("key")
	from, _ := f.GetFloat64("from")
	to, _ := f.GetFloat64("to")
	steps, _ := f.GetInt("steps")
	workers, _ := f.GetInt("workers")
	if key == "" {
		return fmt.Errorf("--key is required")
	}

	results, err := automation.RunSweep(cmd.Context(), cfg, automation.ParameterSweep{
		Key: key, Min: from, Max: to, NumSteps: steps, Workers: workers,
	}, logger)
	if err != nil {
		return err
	}

	names := metricNames(results[0].Metrics)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := key + "\tFINAL W"
	for _, n := range names {
		header += "\t" + n
	}
	fmt.Fprintln(w, header)
	for _, r := range results {
		line := fmt.Sprintf("%g\t%.4f", r.Value, r.Final[motor.Speed])
		for _, n := range names {
			line += fmt.Sprintf("\t%.5g", r.Metrics[n])
		}
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	tol, _ := f.GetFloat64("tolerance")
	trials, _ := f.GetInt("trials")
	seed, _ := f.GetInt64("seed")
	workers, _ := f.GetInt("workers")

	fmt.Printf("running %d trials with motor parameters within ±%g%%\n", trials, tol*100)
	results, err := automation.RunMonteCarlo(cmd.Context(), cfg, automation.MonteCarloConfig{
		Tolerance: tol, NumTrials: trials, Seed: seed, Workers: workers,
	}, logger)
	if err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("stable %d, unstable %d\n\n", stable, unstable)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTD")
	for _, n := range metricNames(results[0].Metrics) {
		mean, std, err := automation.MetricSpread(results, n)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%.6g\t%.3g\n", n, mean, std)
	}
	return w.Flush()
}

func metricNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
