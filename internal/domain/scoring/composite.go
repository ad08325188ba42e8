// Package scoring converts a bar's indicator features into a directional
// trading signal by combining regime-weighted category sub-scores.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/signalrun/internal/domain/indicators"
	"github.com/sawpanic/signalrun/internal/domain/regime"
)

// Direction is the side of a trading signal.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// ErrNotScorable marks a feature set that is still inside its warm-up window.
var ErrNotScorable = errors.New("feature set not scorable")

// Signal is the scored output for one bar. It carries the per-category
// sub-scores and the applied weight vector so any score can be audited after
// the fact.
type Signal struct {
	Symbol     string               `json:"symbol,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
	Direction  Direction            `json:"direction"`
	Score      float64              `json:"score"`
	Confidence float64              `json:"confidence"`
	Regime     regime.Type          `json:"regime"`
	SubScores  map[string]float64   `json:"sub_scores"`
	Weights    regime.WeightVector  `json:"weights"`
	Reasons    []string             `json:"reasons,omitempty"`
}

// Score computes the weighted composite score for a scorable feature set.
// Sub-scores are normalized to [0,1] with 0.5 neutral; the weight vector
// sums to 1, so the final score is itself in [0,1]. A score strictly above
// 0.5 is LONG, anything else SHORT. Pure: no internal state is touched.
func Score(fs indicators.FeatureSet, weights regime.WeightVector) (Signal, error) {
	if !fs.Scorable() {
		return Signal{}, fmt.Errorf("%w: missing %v", ErrNotScorable, fs.Missing)
	}

	var reasons []string
	note := func(format string, args ...interface{}) {
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	trend := trendSubScore(fs, note)
	momentum := momentumSubScore(fs, note)
	volatility := volatilitySubScore(fs, note)
	trendStrength := trendStrengthSubScore(fs, note)
	stochastic := stochasticSubScore(fs, note)

	final := trend*weights.Trend +
		momentum*weights.Momentum +
		volatility*weights.Volatility +
		trendStrength*weights.TrendStrength +
		stochastic*weights.Stochastic

	direction := Short
	if final > 0.5 {
		direction = Long
	}
	confidence := clamp(math.Abs(final-0.5)*200.0, 0, 100)

	return Signal{
		Timestamp:  fs.Timestamp,
		Direction:  direction,
		Score:      final,
		Confidence: confidence,
		Regime:     regime.Classify(fs.ADX, fs.ATRPercent),
		SubScores: map[string]float64{
			regime.CategoryTrend:         trend,
			regime.CategoryMomentum:      momentum,
			regime.CategoryVolatility:    volatility,
			regime.CategoryTrendStrength: trendStrength,
			regime.CategoryStochastic:    stochastic,
		},
		Weights: weights,
		Reasons: reasons,
	}, nil
}

// trendSubScore combines the MA-cross agreement with the regression slope
// sign, mapped to {0, 0.5, 1}.
func trendSubScore(fs indicators.FeatureSet, note func(string, ...interface{})) float64 {
	smaBull := fs.SMA20 > fs.SMA50
	emaBull := fs.EMA12 > fs.EMA26
	slopeBull := fs.Slope > 0

	if smaBull {
		note("SMA20 > SMA50 (uptrend)")
	} else {
		note("SMA20 <= SMA50 (downtrend)")
	}
	if emaBull {
		note("EMA12 > EMA26 (bullish)")
	} else {
		note("EMA12 <= EMA26 (bearish)")
	}
	if slopeBull {
		note("positive slope (bullish)")
	} else {
		note("negative slope (bearish)")
	}

	cross := 0
	switch {
	case smaBull && emaBull:
		cross = 1
	case !smaBull && !emaBull:
		cross = -1
	}

	switch {
	case cross > 0 && slopeBull:
		return 1.0
	case cross < 0 && !slopeBull:
		return 0.0
	default:
		return 0.5
	}
}

// momentumSubScore blends the RSI band position with the MACD histogram
// flag. RSI contributes -2..+2, MACD ±1; the sum is normalized via (s+2)/4
// and clamped to [0,1].
func momentumSubScore(fs indicators.FeatureSet, note func(string, ...interface{})) float64 {
	s := 0.0
	switch {
	case fs.RSI < 30:
		s += 2
		note("RSI %.1f oversold (strong buy)", fs.RSI)
	case fs.RSI < 50:
		s += 1
		note("RSI %.1f below midline (mild buy)", fs.RSI)
	case fs.RSI > 70:
		s -= 2
		note("RSI %.1f overbought (strong sell)", fs.RSI)
	default:
		note("RSI %.1f neutral", fs.RSI)
	}

	if fs.MACDHist > 0 && fs.MACD > fs.MACDSignal {
		s += 1
		note("MACD bullish (histogram > 0)")
	} else if fs.MACDHist < 0 && fs.MACD < fs.MACDSignal {
		s -= 1
		note("MACD bearish (histogram < 0)")
	}

	return clamp((s+2)/4.0, 0, 1)
}

// volatilitySubScore reads Bollinger %B contrarian (near the lower band is a
// bullish contribution) together with the ATR% band, normalized via (s+1)/2.
func volatilitySubScore(fs indicators.FeatureSet, note func(string, ...interface{})) float64 {
	s := 0.0
	switch {
	case fs.PercentB < 0.2:
		s += 1
		note("price near lower Bollinger band (support)")
	case fs.PercentB > 0.8:
		s -= 1
		note("price near upper Bollinger band (resistance)")
	default:
		note("price at %.1f%% of Bollinger range", fs.PercentB*100)
	}

	switch {
	case fs.ATRPercent < 1.0:
		s += 1
		note("low volatility (ATR%% %.2f)", fs.ATRPercent)
	case fs.ATRPercent > 3.0:
		s -= 1
		note("high volatility (ATR%% %.2f)", fs.ATRPercent)
	}

	return clamp((s+1)/2.0, 0, 1)
}

// trendStrengthSubScore scales ADX against a fixed reference of 40.
func trendStrengthSubScore(fs indicators.FeatureSet, note func(string, ...interface{})) float64 {
	switch {
	case fs.ADX > 25:
		note("strong trend (ADX %.1f)", fs.ADX)
	case fs.ADX > 20:
		note("moderate trend (ADX %.1f)", fs.ADX)
	default:
		note("weak or no trend (ADX %.1f)", fs.ADX)
	}
	return clamp(fs.ADX/40.0, 0, 1)
}

// stochasticSubScore is the %K/%D crossover: bullish when %K leads.
func stochasticSubScore(fs indicators.FeatureSet, note func(string, ...interface{})) float64 {
	switch {
	case fs.StochK > fs.StochD:
		note("stochastic %%K > %%D (bullish crossover)")
		return 1.0
	case fs.StochK < fs.StochD:
		note("stochastic %%K < %%D (bearish crossover)")
		return 0.0
	default:
		note("stochastic %%K == %%D")
		return 0.5
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
