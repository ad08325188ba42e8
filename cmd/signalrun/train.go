package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/tune"
)

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the per-regime weight map from history",
		Long: `Pools every instrument's scorable bars, evaluates each candidate
weight vector per regime against realized next-bar direction, and writes the
winning map as the weights artifact plus a JSON evaluation report.`,
		RunE: runTrain,
	}
	addDataFlags(cmd.Flags())
	cmd.Flags().Int("min-samples", 0, "Minimum samples before a regime is mapped (overrides config)")
	cmd.Flags().String("report", "", "Write the per-candidate evaluation report to this file")
	return cmd
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetInt("min-samples"); v > 0 {
		cfg.Train.MinSamples = v
	}

	histories, err := loadHistories(ctx, cfg)
	if err != nil {
		return err
	}

	trainer, err := tune.NewTrainer(tune.Config{MinSamples: cfg.Train.MinSamples})
	if err != nil {
		return err
	}
	report, err := trainer.TrainAll(histories)
	if err != nil {
		return err
	}

	if err := config.SaveWeightMap(cfg.Weights.Path, report.Weights); err != nil {
		return err
	}
	log.Info().Str("path", cfg.Weights.Path).Int("regimes", len(report.Weights.Regimes)).
		Msg("weight map written")

	reportPath, _ := cmd.Flags().GetString("report")
	if reportPath == "" {
		reportPath = filepath.Join(filepath.Dir(cfg.Weights.Path), "train_report.json")
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(reportPath, data, 0644); err != nil {
		return err
	}

	printTrainReport(report)
	return nil
}

func printTrainReport(report tune.Report) {
	printf("Trained on %d bars (%d samples)\n", report.Bars, report.Samples)
	for _, rr := range report.Regimes {
		printf("%-18s %5d samples  best=%-16s baseline=%.2f%%  improvement=%+.2f%%\n",
			rr.Regime, rr.Samples, rr.Best, rr.Baseline, rr.Improvement)
	}
}
