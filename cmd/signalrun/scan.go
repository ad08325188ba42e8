package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sawpanic/signalrun/internal/scan"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Score the latest bar of every instrument once",
		RunE:  runScan,
	}
	addDataFlags(cmd.Flags())
	cmd.Flags().Bool("json", false, "Emit signals as JSON instead of a table")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	src, err := buildSource(cfg)
	if err != nil {
		return err
	}
	selector, err := loadSelector(cfg)
	if err != nil {
		return err
	}

	scanner := scan.New(src, selector, nil, nil, nil)
	signals, err := scanner.ScanOnce(ctx)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return json.NewEncoder(os.Stdout).Encode(signals)
	}

	printf("%-10s %-6s %7s %11s %-18s %s\n", "SYMBOL", "DIR", "SCORE", "CONFIDENCE", "REGIME", "REASONS")
	for _, sig := range signals {
		printf("%-10s %-6s %7.3f %10.1f%% %-18s %s\n",
			sig.Symbol, sig.Direction, sig.Score, sig.Confidence, sig.Regime,
			strings.Join(firstN(sig.Reasons, 3), "; "))
	}
	return nil
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
