package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/simreview/sim-review/internal/analysis"
	"github.com/simreview/sim-review/internal/config"
	"github.com/simreview/sim-review/internal/pkg/logger"
	"github.com/simreview/sim-review/internal/runlog"
	"github.com/simreview/sim-review/internal/sampling"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sim-review",
		Short: "Sim Review - Active-learning simulation analysis",
		Long: `Sim Review analyzes logs of simulated systematic reviews: it
aggregates repeated active-learning runs over one dataset into recall
curves, work-saved and relevant-found metrics, discovery times, and
safe stopping points.

Run 'sim-review curve <dir>' to plot the averaged recall curve.
Run 'sim-review --help' for available commands.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("format", "text", "output format (text, json)")

	rootCmd.AddCommand(
		curveCmd(),
		wssCmd(),
		rrfCmd(),
		discoveryCmd(),
		limitsCmd(),
		sampleCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config and builds the logger shared by all subcommands.
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	return cfg, logger.New(level, cfg.Log.Format), nil
}

// openAnalysis loads every run log under dir into an Analysis.
func openAnalysis(cmd *cobra.Command, cfg *config.Config, log *logger.Logger, dir string) (*analysis.Analysis, error) {
	a, err := analysis.FromDir(cmd.Context(), dir, runlog.LoaderOptions{
		Pattern: cfg.Loader.Pattern,
		Workers: cfg.Loader.Workers,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}
	log.Debug("loaded analysis", "key", a.Key(), "runs", a.NumRuns())
	return a, nil
}

func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func curveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curve <dir>",
		Short: "Print the averaged recall curve for a run directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			resultFormat, _ := cmd.Flags().GetString("result-format")
			if resultFormat == "" {
				resultFormat = cfg.Analysis.ResultFormat
			}
			format, err := analysis.ParseFormat(resultFormat)
			if err != nil {
				return err
			}

			finalLabels, _ := cmd.Flags().GetBool("final-labels")
			if !cmd.Flags().Changed("final-labels") {
				finalLabels = cfg.Analysis.FinalLabels
			}

			a, err := openAnalysis(cmd, cfg, log, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			curve, err := a.InclusionsFound(format, finalLabels)
			if err != nil {
				return err
			}

			if out, _ := cmd.Flags().GetString("format"); out == "json" {
				return emitJSON(curve)
			}
			fmt.Printf("Recall curve for %q (%d runs, %s)\n", a.Key(), a.NumRuns(), format)
			fmt.Printf("%12s %12s %12s\n", "x", "y", "err")
			for i := range curve.X {
				fmt.Printf("%12.4f %12.4f %12.4f\n", curve.X[i], curve.Y[i], curve.YErr[i])
			}
			return nil
		},
	}

	cmd.Flags().String("result-format", "", "curve units (fraction, percentage, number)")
	cmd.Flags().Bool("final-labels", false, "analyze against the terminal labeling")

	return cmd
}

func barMetricCmd(use, short, flagName string, defaultAt func(*config.Config) float64,
	eval func(*analysis.Analysis, float64, analysis.ResultFormat) (*analysis.BarMetric, error)) *cobra.Command {

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			at, _ := cmd.Flags().GetFloat64("at")
			if !cmd.Flags().Changed("at") {
				at = defaultAt(cfg)
			}
			xFormat, _ := cmd.Flags().GetString("x-format")
			format, err := analysis.ParseFormat(xFormat)
			if err != nil {
				return err
			}

			a, err := openAnalysis(cmd, cfg, log, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			metric, err := eval(a, at, format)
			if err != nil {
				return err
			}

			if out, _ := cmd.Flags().GetString("format"); out == "json" {
				if metric == nil {
					return emitJSON(map[string]any{"reached": false})
				}
				return emitJSON(metric)
			}
			if metric == nil {
				fmt.Printf("%s@%g: target recall never reached\n", flagName, at)
				return nil
			}
			fmt.Printf("%s@%g = %.4f\n", flagName, at, metric.Value)
			fmt.Printf("  x: [%.4f, %.4f]\n", metric.XBar[0], metric.XBar[1])
			fmt.Printf("  y: [%.4f, %.4f]\n", metric.YBar[0], metric.YBar[1])
			return nil
		},
	}

	cmd.Flags().Float64("at", 0, "target recall in percent")
	cmd.Flags().String("x-format", "percentage", "bar coordinates (percentage, number)")

	return cmd
}

func wssCmd() *cobra.Command {
	return barMetricCmd(
		"wss <dir>",
		"Work saved over sampling at a target recall",
		"WSS",
		func(cfg *config.Config) float64 { return cfg.Analysis.WSSAt },
		func(a *analysis.Analysis, at float64, f analysis.ResultFormat) (*analysis.BarMetric, error) {
			return a.WSS(at, f)
		},
	)
}

func rrfCmd() *cobra.Command {
	return barMetricCmd(
		"rrf <dir>",
		"Relevant references found after screening a share of the pool",
		"RRF",
		func(cfg *config.Config) float64 { return cfg.Analysis.RRFAt },
		func(a *analysis.Analysis, at float64, f analysis.ResultFormat) (*analysis.BarMetric, error) {
			return a.RRF(at, f)
		},
	)
}

func discoveryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discovery <dir>",
		Short: "Average time to discovery for each relevant item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			a, err := openAnalysis(cmd, cfg, log, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			times, err := a.AvgTimeToDiscovery()
			if err != nil {
				return err
			}

			if out, _ := cmd.Flags().GetString("format"); out == "json" {
				return emitJSON(times)
			}
			ids := make([]int, 0, len(times))
			for id := range times {
				ids = append(ids, id)
			}
			sort.Ints(ids)
			fmt.Printf("Average time to discovery (%d relevant items)\n", len(ids))
			for _, id := range ids {
				fmt.Printf("%8d %10.2f\n", id, times[id])
			}
			return nil
		},
	}
}

func limitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limits <dir>",
		Short: "Safe stopping points over the course of the review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			allowMiss, _ := cmd.Flags().GetFloat64Slice("allow-miss")
			if !cmd.Flags().Changed("allow-miss") {
				allowMiss = cfg.Analysis.AllowMiss
			}

			a, err := openAnalysis(cmd, cfg, log, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			series, err := a.Limits(allowMiss...)
			if err != nil {
				return err
			}

			if out, _ := cmd.Flags().GetString("format"); out == "json" {
				return emitJSON(series)
			}
			fmt.Printf("%10s", "n_train")
			for _, p := range allowMiss {
				fmt.Printf(" %12s", fmt.Sprintf("limit@%g", p))
			}
			fmt.Println()
			for i, n := range series.XRange {
				fmt.Printf("%10d", n)
				for pi := range allowMiss {
					fmt.Printf(" %12d", series.Limits[pi][i])
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().Float64Slice("allow-miss", nil, "stopping tolerances (expected missed relevant items)")

	return cmd
}

func sampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample <labels.json>",
		Short: "Draw prior-knowledge indices from a labeled dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}

			labels, err := readLabels(args[0])
			if err != nil {
				return err
			}

			included, _ := cmd.Flags().GetInt("included")
			if !cmd.Flags().Changed("included") {
				included = cfg.Sampling.PriorIncluded
			}
			excluded, _ := cmd.Flags().GetInt("excluded")
			if !cmd.Flags().Changed("excluded") {
				excluded = cfg.Sampling.PriorExcluded
			}
			seed, _ := cmd.Flags().GetInt64("seed")
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Sampling.Seed
			}

			prior, err := sampling.SamplePrior(labels, included, excluded, rand.New(rand.NewSource(seed)))
			if err != nil {
				return err
			}

			if out, _ := cmd.Flags().GetString("format"); out == "json" {
				return emitJSON(prior)
			}
			fmt.Printf("Prior knowledge (%d included, %d excluded, seed %d):\n", included, excluded, seed)
			for _, idx := range prior {
				fmt.Printf("%8d %d\n", idx, labels[idx])
			}
			return nil
		},
	}

	cmd.Flags().Int("included", 0, "number of relevant items to draw")
	cmd.Flags().Int("excluded", 0, "number of irrelevant items to draw")
	cmd.Flags().Int64("seed", 0, "random seed")

	return cmd
}

// readLabels accepts either a bare JSON array of labels or a full run
// log, in which case the log's labels series is used.
func readLabels(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var labels []int
	if err := json.Unmarshal(data, &labels); err == nil {
		return labels, nil
	}

	l, err := runlog.Open(path)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	return l.Get(runlog.KeyLabels)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sim-review %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
