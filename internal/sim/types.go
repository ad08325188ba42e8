// Package sim replays scored signals against price history with a
// deterministic one-position-per-instrument state machine and aggregates the
// resulting performance statistics.
package sim

import (
	"time"

	"github.com/sawpanic/signalrun/internal/domain/scoring"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStop      ExitReason = "stop"
	ExitTarget    ExitReason = "target"
	ExitEndOfData ExitReason = "end_of_data"
)

// Config defines the simulation parameters for one backtest run. Long and
// short exit distances are independent: the historical configuration runs
// tighter stops on longs than shorts.
type Config struct {
	// MinConfidence gates entries: signals below it never open a position.
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence" default:"60"`

	LongStopPct    float64 `json:"long_stop_pct" yaml:"long_stop_pct" default:"0.02"`
	LongTargetPct  float64 `json:"long_target_pct" yaml:"long_target_pct" default:"0.04"`
	ShortStopPct   float64 `json:"short_stop_pct" yaml:"short_stop_pct" default:"0.05"`
	ShortTargetPct float64 `json:"short_target_pct" yaml:"short_target_pct" default:"0.05"`

	// ATRLevels switches exits to volatility-scaled distances: the stop is
	// ATR% x 1.5 clamped to [1.5%, 3%], the target twice the stop, for both
	// directions. The fixed percentages above are ignored in this mode.
	ATRLevels bool `json:"atr_levels" yaml:"atr_levels"`

	// Capital is the fixed notional that total_return_pct is measured
	// against. Positions are one unit each; capital is never compounded.
	Capital float64 `json:"capital" yaml:"capital" default:"10000"`
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		MinConfidence:  60,
		LongStopPct:    0.02,
		LongTargetPct:  0.04,
		ShortStopPct:   0.05,
		ShortTargetPct: 0.05,
		Capital:        10000,
	}
}

// Position is one simulated trade. Immutable once closed.
type Position struct {
	Direction      scoring.Direction `json:"direction"`
	EntryPrice     float64           `json:"entry_price"`
	StopPrice      float64           `json:"stop_price"`
	TargetPrice    float64           `json:"target_price"`
	OpenTimestamp  time.Time         `json:"open_timestamp"`
	CloseTimestamp time.Time         `json:"close_timestamp"`
	ExitReason     ExitReason        `json:"exit_reason"`
	// RealizedPnL is per unit: exit minus entry for longs, entry minus exit
	// for shorts.
	RealizedPnL float64 `json:"realized_pnl"`
}

// EquityPoint is one step of the cumulative PnL curve, recorded at each
// position close.
type EquityPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	CumulativePnL float64   `json:"cumulative_pnl"`
}

// BacktestResult is the aggregate outcome of replaying one instrument's bar
// history. A run with zero scorable bars yields the zero value with
// Bars/Symbol filled in, not an error.
type BacktestResult struct {
	Symbol    string    `json:"symbol"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Bars      int       `json:"bars"`

	Signals        int `json:"signals"`
	SignalsCorrect int `json:"signals_correct"`
	// PredictionAccuracyPct is scored over all signals with a successor bar,
	// independent of whether a trade was opened.
	PredictionAccuracyPct float64 `json:"prediction_accuracy_pct"`

	Trades     []Position `json:"trades"`
	TradeCount int        `json:"trade_count"`
	Wins       int        `json:"wins"`
	Losses     int        `json:"losses"`
	WinRatePct float64    `json:"win_rate_pct"`

	// ProfitFactor is gross profit over gross loss. Zero trades report 0
	// with ProfitFactorInf false; wins with zero realized losses report
	// ProfitFactorInf true and leave ProfitFactor at 0 so the struct stays
	// JSON-encodable.
	ProfitFactor    float64 `json:"profit_factor"`
	ProfitFactorInf bool    `json:"profit_factor_infinite"`

	TotalPnL       float64       `json:"total_pnl"`
	TotalReturnPct float64       `json:"total_return_pct"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
}
