package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/signalrun/internal/domain/bars"
	"github.com/sawpanic/signalrun/internal/domain/indicators"
	"github.com/sawpanic/signalrun/internal/domain/regime"
	"github.com/sawpanic/signalrun/internal/domain/scoring"
)

// Runner replays one instrument's bar history through the scorer and the
// position state machine. Runners are stateless across runs; each Run owns
// its accumulator exclusively, so independent instruments can run in
// parallel.
type Runner struct {
	config    Config
	extractor *indicators.Extractor
	selector  *regime.Selector
}

// NewRunner builds a runner. A nil selector means every regime scores with
// the static default weights.
func NewRunner(config Config, selector *regime.Selector) (*Runner, error) {
	if config.MinConfidence < 0 || config.MinConfidence > 100 {
		return nil, fmt.Errorf("min_confidence %.2f outside [0,100]", config.MinConfidence)
	}
	for name, pct := range map[string]float64{
		"long_stop_pct":    config.LongStopPct,
		"long_target_pct":  config.LongTargetPct,
		"short_stop_pct":   config.ShortStopPct,
		"short_target_pct": config.ShortTargetPct,
	} {
		if pct <= 0 || pct >= 1 {
			return nil, fmt.Errorf("%s %.4f outside (0,1)", name, pct)
		}
	}
	if selector == nil {
		var err error
		selector, err = regime.NewSelector(regime.DefaultWeightMap())
		if err != nil {
			return nil, err
		}
	}
	return &Runner{
		config:    config,
		extractor: indicators.NewExtractor(indicators.ExtractorConfig{}),
		selector:  selector,
	}, nil
}

// Run executes the backtest over seq. Bars are processed strictly in
// ascending order; nothing at bar t reads a later bar except the one-step
// lookahead used for prediction accuracy, which scores a past signal, never a
// trade decision.
func (r *Runner) Run(ctx context.Context, symbol string, seq []bars.Bar) (BacktestResult, error) {
	acc := newAccumulator(symbol, len(seq), r.config.Capital)
	if len(seq) == 0 {
		return acc.finalize(), nil
	}
	acc.result.StartTime = seq[0].Timestamp
	acc.result.EndTime = seq[len(seq)-1].Timestamp

	features, err := r.extractor.Extract(seq)
	if err != nil {
		return BacktestResult{}, fmt.Errorf("extract features: %w", err)
	}

	var open *Position
	for i, bar := range seq {
		if err := ctx.Err(); err != nil {
			return BacktestResult{}, err
		}

		// Exit checks run before any new signal on the same bar, and never
		// on the entry bar itself.
		if open != nil {
			if closed, ok := r.checkExit(*open, bar); ok {
				acc.recordClose(closed)
				open = nil
			}
		}

		if !features[i].Scorable() {
			continue
		}
		weights := r.selector.Select(regime.Classify(features[i].ADX, features[i].ATRPercent))
		sig, err := scoring.Score(features[i], weights)
		if err != nil {
			continue
		}

		if i+1 < len(seq) {
			actual := scoring.Short
			if seq[i+1].Close > bar.Close {
				actual = scoring.Long
			}
			acc.recordSignal(sig.Direction == actual)
		}

		if open == nil && sig.Confidence >= r.config.MinConfidence {
			p := r.openPosition(sig.Direction, bar, features[i].ATRPercent)
			open = &p
		}
	}

	// Anything still open at the end of history closes at the last close.
	if open != nil {
		last := seq[len(seq)-1]
		acc.recordClose(r.closePosition(*open, last.Close, last.Timestamp, ExitEndOfData))
	}

	result := acc.finalize()
	log.Debug().
		Str("symbol", symbol).
		Int("bars", result.Bars).
		Int("trades", result.TradeCount).
		Float64("return_pct", result.TotalReturnPct).
		Msg("backtest complete")
	return result, nil
}

// openPosition enters at the triggering bar's close with direction-specific
// stop and target distances. In ATR mode the distances scale with the entry
// bar's volatility at a fixed 1:2 risk/reward.
func (r *Runner) openPosition(dir scoring.Direction, bar bars.Bar, atrPercent float64) Position {
	entry := bar.Close
	p := Position{
		Direction:     dir,
		EntryPrice:    entry,
		OpenTimestamp: bar.Timestamp,
	}

	stopPct, targetPct := r.config.LongStopPct, r.config.LongTargetPct
	if dir == scoring.Short {
		stopPct, targetPct = r.config.ShortStopPct, r.config.ShortTargetPct
	}
	if r.config.ATRLevels {
		stopPct = math.Min(3.0, math.Max(1.5, atrPercent*1.5)) / 100.0
		targetPct = stopPct * 2
	}

	if dir == scoring.Long {
		p.StopPrice = entry * (1 - stopPct)
		p.TargetPrice = entry * (1 + targetPct)
	} else {
		p.StopPrice = entry * (1 + stopPct)
		p.TargetPrice = entry * (1 - targetPct)
	}
	return p
}

// checkExit tests whether the bar's range crosses the stop or target. When
// both are crossed within the same bar the stop is honored first, which keeps
// the backtest conservative.
func (r *Runner) checkExit(p Position, bar bars.Bar) (Position, bool) {
	if p.Direction == scoring.Long {
		if bar.Low <= p.StopPrice {
			return r.closePosition(p, p.StopPrice, bar.Timestamp, ExitStop), true
		}
		if bar.High >= p.TargetPrice {
			return r.closePosition(p, p.TargetPrice, bar.Timestamp, ExitTarget), true
		}
		return p, false
	}
	if bar.High >= p.StopPrice {
		return r.closePosition(p, p.StopPrice, bar.Timestamp, ExitStop), true
	}
	if bar.Low <= p.TargetPrice {
		return r.closePosition(p, p.TargetPrice, bar.Timestamp, ExitTarget), true
	}
	return p, false
}

func (r *Runner) closePosition(p Position, exitPrice float64, ts time.Time, reason ExitReason) Position {
	p.CloseTimestamp = ts
	p.ExitReason = reason
	if p.Direction == scoring.Long {
		p.RealizedPnL = exitPrice - p.EntryPrice
	} else {
		p.RealizedPnL = p.EntryPrice - exitPrice
	}
	return p
}
