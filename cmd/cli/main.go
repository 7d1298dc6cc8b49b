package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"lec-market/internal/analysis"
	"lec-market/internal/config"
	"lec-market/internal/logger"
	"lec-market/internal/simulation"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cli",
		Short:        "Local energy community market simulator",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to YAML config")
	_ = root.MarkPersistentFlagRequired("config")

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newRankCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation and write one CSV row per agent, resource and period",
		Example: `  cli run --config examples/config.yaml --out results/records.csv
  cli run -c examples/config.yaml --clearing-out results/clearing.csv -n 24`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			outPath, _ := cmd.Flags().GetString("out")
			clearingPath, _ := cmd.Flags().GetString("clearing-out")
			n, _ := cmd.Flags().GetInt("periods")

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			sc, err := cfg.Build()
			if err != nil {
				return err
			}

			// ensure output dir exists
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return err
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			sink := simulation.NewCSVSink(f)

			runner, err := simulation.New(sc, simulation.Options{MaxPeriods: n, Workers: cfg.Workers}, log, sink)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, runErr := runner.Run(ctx)
			if err := sink.Flush(); err != nil {
				return err
			}
			if runErr != nil {
				log.Error("simulation failed", zap.Error(runErr))
				return runErr
			}

			if clearingPath != "" {
				if err := os.MkdirAll(filepath.Dir(clearingPath), 0o755); err != nil {
					return err
				}
				if err := simulation.WriteClearingCSV(clearingPath, res.Clearing); err != nil {
					return err
				}
				fmt.Printf("Wrote %d clearing rows to %s\n", len(res.Clearing), clearingPath)
			}

			fmt.Printf("Wrote %d rows to %s\n", len(res.Records), outPath)
			printSummary(analysis.Summarize(res, sc.Grid.Schedule()))
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "results/records.csv", "Output CSV path")
	cmd.Flags().String("clearing-out", "", "Optional: also write every clearing leg to this CSV")
	cmd.Flags().IntP("periods", "n", 0, "Optional: limit to first N periods (0=all)")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a config without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			fmt.Printf("%s: ok (%d agents, %d periods)\n", cfgPath, len(cfg.Agents), cfg.Horizon)
			return nil
		},
	}
}

func newRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Run the simulation and rank agents by balance or savings against the grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			by, _ := cmd.Flags().GetString("by")

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			sc, err := cfg.Build()
			if err != nil {
				return err
			}
			runner, err := simulation.New(sc, simulation.Options{Workers: cfg.Workers}, log, nil)
			if err != nil {
				return err
			}
			res, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			s := analysis.Summarize(res, sc.Grid.Schedule())
			var ranked []analysis.RankedAgent
			switch by {
			case "balance":
				ranked = analysis.RankByBalance(s.Agents)
			case "savings":
				ranked = analysis.RankBySavings(s.Agents)
			default:
				return fmt.Errorf("unsupported ranking: %q (want balance or savings)", by)
			}

			fmt.Printf("%-4s %-18s %-12s %-12s %-12s\n", "rank", "agent", "balance", "grid-only", "savings")
			for _, r := range ranked {
				fmt.Printf("%-4d %-18s %-12s %-12s %-12s\n",
					r.Rank,
					r.AgentID,
					r.Balance.StringFixed(2),
					r.GridOnlyBalance.StringFixed(2),
					r.Savings.StringFixed(2),
				)
			}
			return nil
		},
	}
	cmd.Flags().String("by", "balance", "Ranking key: balance or savings")
	return cmd
}

func printSummary(s analysis.Summary) {
	fmt.Printf("Periods=%d Community balance=%s\n", s.Periods, s.CommunityBalance.StringFixed(2))
	for _, r := range s.Resources {
		fmt.Printf("  %-12s local=%.3f import=%.3f export=%.3f self-sufficiency=%.1f%% mean price=%.4f\n",
			r.Resource, r.LocalVolume, r.GridImport, r.GridExport, 100*r.SelfSufficiency, r.MeanLocalPrice)
	}
}
