package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/signalrun/internal/data/postgres"
	"github.com/sawpanic/signalrun/internal/sim"
)

func newBacktestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay signals against history and report performance",
		Long: `Loads every instrument's bar history, scores each bar with the
regime-selected weights, replays the signals through the trade simulator,
and writes JSON and markdown artifacts for the run.`,
		RunE: runBacktest,
	}
	addDataFlags(cmd.Flags())
	cmd.Flags().Float64("min-confidence", -1, "Entry confidence gate (overrides config)")
	cmd.Flags().Int("workers", 0, "Parallel instrument simulations (overrides config)")
	cmd.Flags().String("output", "", "Artifact directory (overrides config)")
	cmd.Flags().Bool("atr-levels", false, "Scale stop/target distances with the entry bar's ATR%")
	return cmd
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetFloat64("min-confidence"); v >= 0 {
		cfg.Sim.MinConfidence = v
	}
	if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
		cfg.Sim.Workers = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Output.Dir = v
	}
	if v, _ := cmd.Flags().GetBool("atr-levels"); v {
		cfg.Sim.ATRLevels = true
	}

	histories, err := loadHistories(ctx, cfg)
	if err != nil {
		return err
	}
	selector, err := loadSelector(cfg)
	if err != nil {
		return err
	}

	runner, err := sim.NewRunner(sim.Config{
		MinConfidence:  cfg.Sim.MinConfidence,
		LongStopPct:    cfg.Sim.LongStopPct,
		LongTargetPct:  cfg.Sim.LongTargetPct,
		ShortStopPct:   cfg.Sim.ShortStopPct,
		ShortTargetPct: cfg.Sim.ShortTargetPct,
		ATRLevels:      cfg.Sim.ATRLevels,
		Capital:        cfg.Sim.Capital,
	}, selector)
	if err != nil {
		return err
	}

	summary := runner.RunAll(ctx, histories, cfg.Sim.Workers)

	writer := sim.NewWriter(cfg.Output.Dir)
	if err := writer.WriteSummary(summary); err != nil {
		return err
	}
	if err := writer.WriteReport(summary); err != nil {
		return err
	}
	log.Info().Str("run_id", writer.RunID()).Str("dir", writer.OutputDir()).Msg("artifacts written")

	if cfg.Data.PostgresDSN != "" {
		if err := archiveResults(ctx, cfg.Data.PostgresDSN, writer.RunID(), summary); err != nil {
			log.Warn().Err(err).Msg("result archive failed")
		}
	}

	printSummary(summary)
	return nil
}

// archiveResults stores each instrument's result in Postgres under the run
// ID.
func archiveResults(ctx context.Context, dsn, runID string, summary sim.Summary) error {
	db, err := postgres.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return err
	}
	repo := postgres.NewResultRepo(db, 30*time.Second)
	for _, res := range summary.Results {
		if err := repo.SaveResult(ctx, runID, res); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(summary sim.Summary) {
	printf("Backtest: %d symbols, %d trades, total PnL %.2f\n",
		summary.Symbols, summary.TotalTrades, summary.TotalPnL)
	printf("Mean return %.2f%%, mean prediction accuracy %.2f%%, %d profitable\n",
		summary.MeanReturnPct, summary.MeanAccuracyPct, summary.ProfitableCount)
	printf("%-10s %7s %9s %8s %9s %9s\n", "SYMBOL", "TRADES", "WIN RATE", "PF", "RETURN", "ACCURACY")
	for _, res := range summary.Results {
		pf := fmt.Sprintf("%.2f", res.ProfitFactor)
		if res.ProfitFactorInf {
			pf = "inf"
		}
		printf("%-10s %7d %8.1f%% %8s %8.2f%% %8.1f%%\n",
			res.Symbol, res.TradeCount, res.WinRatePct, pf, res.TotalReturnPct, res.PredictionAccuracyPct)
	}
	for _, e := range summary.Errors {
		printf("ERROR %s: %s\n", e.Symbol, e.Err)
	}
}
