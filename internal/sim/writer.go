package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Writer persists run artifacts under <outputDir>/<date>/<run-id>/: one JSONL
// line per instrument result, a summary JSON, and a markdown report.
type Writer struct {
	runID  string
	outDir string
}

// NewWriter allocates a run ID and the artifact directory for one run.
func NewWriter(outputDir string) *Writer {
	runID := uuid.New().String()
	return &Writer{
		runID:  runID,
		outDir: filepath.Join(outputDir, time.Now().UTC().Format("2006-01-02"), runID),
	}
}

// RunID returns the run's unique identifier.
func (w *Writer) RunID() string {
	return w.runID
}

// OutputDir returns the run's artifact directory.
func (w *Writer) OutputDir() string {
	return w.outDir
}

// WriteSummary writes results.jsonl (one line per instrument, summary last)
// and summary.json.
func (w *Writer) WriteSummary(summary Summary) error {
	if err := os.MkdirAll(w.outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(filepath.Join(w.outDir, "results.jsonl"))
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, res := range summary.Results {
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result %s: %w", res.Symbol, err)
		}
	}
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.outDir, "summary.json"), data, 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// WriteReport writes a human-readable markdown digest of the run.
func (w *Writer) WriteReport(summary Summary) error {
	if err := os.MkdirAll(w.outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	report := w.renderReport(summary)
	if err := os.WriteFile(filepath.Join(w.outDir, "report.md"), []byte(report), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (w *Writer) renderReport(summary Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Backtest Report\n\n")
	fmt.Fprintf(&b, "**Run ID:** %s\n", w.runID)
	fmt.Fprintf(&b, "**Started:** %s\n", summary.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Finished:** %s\n\n", summary.FinishedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "- Symbols: %d (%d profitable)\n", summary.Symbols, summary.ProfitableCount)
	fmt.Fprintf(&b, "- Total trades: %d\n", summary.TotalTrades)
	fmt.Fprintf(&b, "- Total PnL: %.2f\n", summary.TotalPnL)
	fmt.Fprintf(&b, "- Mean return: %.2f%%\n", summary.MeanReturnPct)
	fmt.Fprintf(&b, "- Mean prediction accuracy: %.2f%%\n\n", summary.MeanAccuracyPct)

	fmt.Fprintf(&b, "## Per-Symbol Results\n\n")
	fmt.Fprintf(&b, "| Symbol | Trades | Win Rate | Profit Factor | Return | Accuracy |\n")
	fmt.Fprintf(&b, "|--------|--------|----------|---------------|--------|----------|\n")
	for _, res := range summary.Results {
		pf := fmt.Sprintf("%.2f", res.ProfitFactor)
		if res.ProfitFactorInf {
			pf = "inf"
		}
		fmt.Fprintf(&b, "| %s | %d | %.1f%% | %s | %.2f%% | %.1f%% |\n",
			res.Symbol, res.TradeCount, res.WinRatePct, pf, res.TotalReturnPct, res.PredictionAccuracyPct)
	}

	if len(summary.Errors) > 0 {
		fmt.Fprintf(&b, "\n## Errors\n\n")
		for _, e := range summary.Errors {
			fmt.Fprintf(&b, "- **%s**: %s\n", e.Symbol, e.Err)
		}
	}
	return b.String()
}
