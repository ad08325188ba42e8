// Package indicators computes technical-indicator features from ordered bar
// sequences. All computations are causal: a feature set at bar t depends only
// on bars at or before t.
package indicators

import (
	"fmt"
	"time"

	"github.com/sawpanic/signalrun/internal/domain/bars"
)

// FeatureSet holds the indicator values derived for one bar. Missing lists
// the indicators that could not be computed from the available history; a
// feature set with a non-empty Missing list must not be scored.
type FeatureSet struct {
	Timestamp time.Time `json:"timestamp"`
	Close     float64   `json:"close"`

	SMA20      float64 `json:"sma_20"`
	SMA50      float64 `json:"sma_50"`
	EMA12      float64 `json:"ema_12"`
	EMA26      float64 `json:"ema_26"`
	Slope      float64 `json:"slope"`
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_histogram"`
	PercentB   float64 `json:"bb_position"`
	ATR        float64 `json:"atr"`
	ATRPercent float64 `json:"atr_percent"`
	ADX        float64 `json:"adx"`
	StochK     float64 `json:"k_stoch"`
	StochD     float64 `json:"d_stoch"`

	Missing []string `json:"missing,omitempty"`
}

// Scorable reports whether every indicator was computed.
func (fs FeatureSet) Scorable() bool {
	return len(fs.Missing) == 0
}

// Values returns the numeric indicator values keyed by name, for artifact
// output and caching.
func (fs FeatureSet) Values() map[string]float64 {
	return map[string]float64{
		"close":          fs.Close,
		"sma_20":         fs.SMA20,
		"sma_50":         fs.SMA50,
		"ema_12":         fs.EMA12,
		"ema_26":         fs.EMA26,
		"slope":          fs.Slope,
		"rsi":            fs.RSI,
		"macd":           fs.MACD,
		"macd_signal":    fs.MACDSignal,
		"macd_histogram": fs.MACDHist,
		"bb_position":    fs.PercentB,
		"atr":            fs.ATR,
		"atr_percent":    fs.ATRPercent,
		"adx":            fs.ADX,
		"k_stoch":        fs.StochK,
		"d_stoch":        fs.StochD,
	}
}

// ExtractorConfig controls warm-up and lookback behavior.
type ExtractorConfig struct {
	// Warmup is the minimum number of bars required before any feature set
	// is produced. Must cover the longest indicator lookback.
	Warmup int
	// SlopeWindow is the number of closes used for the regression slope.
	SlopeWindow int
}

// DefaultExtractorConfig covers the longest lookback (SMA 50).
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Warmup:      50,
		SlopeWindow: 10,
	}
}

// Extractor computes one FeatureSet per bar from an ordered sequence.
type Extractor struct {
	config ExtractorConfig
}

// NewExtractor creates a feature extractor, falling back to defaults for
// zero-valued config fields.
func NewExtractor(config ExtractorConfig) *Extractor {
	def := DefaultExtractorConfig()
	if config.Warmup <= 0 {
		config.Warmup = def.Warmup
	}
	if config.SlopeWindow <= 0 {
		config.SlopeWindow = def.SlopeWindow
	}
	return &Extractor{config: config}
}

// Extract validates the sequence and returns one FeatureSet per bar, aligned
// by index. Bars inside the warm-up window carry an explicit "warmup" marker
// rather than approximate values.
func (e *Extractor) Extract(seq []bars.Bar) ([]FeatureSet, error) {
	if err := bars.ValidateSequence(seq); err != nil {
		return nil, fmt.Errorf("invalid bar sequence: %w", err)
	}

	out := make([]FeatureSet, len(seq))
	for i := range seq {
		if i+1 < e.config.Warmup {
			out[i] = FeatureSet{
				Timestamp: seq[i].Timestamp,
				Close:     seq[i].Close,
				Missing:   []string{"warmup"},
			}
			continue
		}
		out[i] = e.computeAt(seq[:i+1])
	}
	return out, nil
}

// ExtractLatest computes the feature set for the final bar only.
func (e *Extractor) ExtractLatest(seq []bars.Bar) (FeatureSet, error) {
	if err := bars.ValidateSequence(seq); err != nil {
		return FeatureSet{}, fmt.Errorf("invalid bar sequence: %w", err)
	}
	if len(seq) < e.config.Warmup {
		return FeatureSet{}, fmt.Errorf("need at least %d bars, have %d", e.config.Warmup, len(seq))
	}
	return e.computeAt(seq), nil
}

func (e *Extractor) computeAt(window []bars.Bar) FeatureSet {
	last := window[len(window)-1]
	closes := bars.Closes(window)

	fs := FeatureSet{
		Timestamp: last.Timestamp,
		Close:     last.Close,
	}
	miss := func(name string) {
		fs.Missing = append(fs.Missing, name)
	}

	if v, ok := SMA(closes, SMAFastPeriod); ok {
		fs.SMA20 = v
	} else {
		miss("sma_20")
	}
	if v, ok := SMA(closes, SMASlowPeriod); ok {
		fs.SMA50 = v
	} else {
		miss("sma_50")
	}
	if v, ok := EMA(closes, EMAFastSpan); ok {
		fs.EMA12 = v
	} else {
		miss("ema_12")
	}
	if v, ok := EMA(closes, EMASlowSpan); ok {
		fs.EMA26 = v
	} else {
		miss("ema_26")
	}
	if v, ok := Slope(closes, e.config.SlopeWindow); ok {
		fs.Slope = v
	} else {
		miss("slope")
	}

	if rsi := CalculateRSI(closes, RSIPeriod); rsi.IsValid {
		fs.RSI = rsi.Value
	} else {
		miss("rsi")
	}

	if macd := CalculateMACD(closes, EMAFastSpan, EMASlowSpan, MACDSignalSpan); macd.IsValid {
		fs.MACD = macd.Line
		fs.MACDSignal = macd.Signal
		fs.MACDHist = macd.Histogram
	} else {
		miss("macd")
	}

	if bb := CalculateBollinger(closes, BollingerPeriod, BollingerStdDev); bb.IsValid {
		fs.PercentB = bb.PercentB
	} else {
		miss("bb_position")
	}

	if atr := CalculateATR(window, ATRPeriod); atr.IsValid {
		fs.ATR = atr.Value
		fs.ATRPercent = atr.Percent
	} else {
		miss("atr")
	}

	if adx := CalculateADX(window, ADXPeriod); adx.IsValid {
		fs.ADX = adx.ADX
	} else {
		miss("adx")
	}

	if st := CalculateStochastic(window, StochPeriod, StochSmoothK, StochSmoothD); st.IsValid {
		fs.StochK = st.K
		fs.StochD = st.D
	} else {
		miss("stochastic")
	}

	return fs
}
