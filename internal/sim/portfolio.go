package sim

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/signalrun/internal/domain/bars"
	applog "github.com/sawpanic/signalrun/internal/log"
)

// SymbolError pairs a failed instrument with its cause.
type SymbolError struct {
	Symbol string `json:"symbol"`
	Err    string `json:"error"`
}

// Summary aggregates a multi-instrument run. Per-symbol results are sorted by
// symbol so output is stable regardless of completion order.
type Summary struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Config     Config           `json:"config"`
	Results    []BacktestResult `json:"results"`
	Errors     []SymbolError    `json:"errors,omitempty"`

	Symbols         int     `json:"symbols"`
	TotalTrades     int     `json:"total_trades"`
	TotalPnL        float64 `json:"total_pnl"`
	MeanReturnPct   float64 `json:"mean_return_pct"`
	MeanAccuracyPct float64 `json:"mean_accuracy_pct"`
	ProfitableCount int     `json:"profitable_count"`
}

// RunAll backtests every instrument concurrently. Simulations share no
// mutable state, so the fan-out needs no coordination beyond collecting
// results. workers <= 0 runs one goroutine per instrument.
func (r *Runner) RunAll(ctx context.Context, histories map[string][]bars.Bar, workers int) Summary {
	summary := Summary{
		StartedAt: time.Now().UTC(),
		Config:    r.config,
		Symbols:   len(histories),
	}

	symbols := make([]string, 0, len(histories))
	for s := range histories {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	if workers <= 0 || workers > len(symbols) {
		workers = len(symbols)
	}

	progress := applog.NewProgress("backtest", len(symbols))

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan string)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				result, err := r.Run(ctx, symbol, histories[symbol])
				mu.Lock()
				if err != nil {
					summary.Errors = append(summary.Errors, SymbolError{Symbol: symbol, Err: err.Error()})
					log.Error().Err(err).Str("symbol", symbol).Msg("backtest failed")
				} else {
					summary.Results = append(summary.Results, result)
				}
				mu.Unlock()
				progress.Step(1)
			}
		}()
	}
	for _, s := range symbols {
		jobs <- s
	}
	close(jobs)
	wg.Wait()
	progress.Done()

	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Symbol < summary.Results[j].Symbol
	})
	sort.Slice(summary.Errors, func(i, j int) bool {
		return summary.Errors[i].Symbol < summary.Errors[j].Symbol
	})

	for _, res := range summary.Results {
		summary.TotalTrades += res.TradeCount
		summary.TotalPnL += res.TotalPnL
		summary.MeanReturnPct += res.TotalReturnPct
		summary.MeanAccuracyPct += res.PredictionAccuracyPct
		if res.TotalPnL > 0 {
			summary.ProfitableCount++
		}
	}
	if n := len(summary.Results); n > 0 {
		summary.MeanReturnPct /= float64(n)
		summary.MeanAccuracyPct /= float64(n)
	}

	summary.FinishedAt = time.Now().UTC()
	return summary
}
