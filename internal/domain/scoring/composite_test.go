package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/sawpanic/signalrun/internal/domain/indicators"
	"github.com/sawpanic/signalrun/internal/domain/regime"
)

// bullishFeatures is uniformly long: rising MAs, oversold RSI, bullish MACD,
// price at the lower band, strong trend, bullish stochastic crossover.
func bullishFeatures() indicators.FeatureSet {
	return indicators.FeatureSet{
		Timestamp:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Close:      100,
		SMA20:      102,
		SMA50:      98,
		EMA12:      103,
		EMA26:      99,
		Slope:      0.8,
		RSI:        25,
		MACD:       1.2,
		MACDSignal: 0.8,
		MACDHist:   0.4,
		PercentB:   0.1,
		ATR:        0.8,
		ATRPercent: 0.8,
		ADX:        45,
		StochK:     30,
		StochD:     20,
	}
}

// bearishFeatures mirrors bullishFeatures on the short side.
func bearishFeatures() indicators.FeatureSet {
	fs := bullishFeatures()
	fs.SMA20, fs.SMA50 = 98, 102
	fs.EMA12, fs.EMA26 = 99, 103
	fs.Slope = -0.8
	fs.RSI = 80
	fs.MACD, fs.MACDSignal, fs.MACDHist = -1.2, -0.8, -0.4
	fs.PercentB = 0.95
	fs.ATRPercent = 4.0
	fs.StochK, fs.StochD = 20, 30
	return fs
}

func TestScoreRejectsWarmup(t *testing.T) {
	fs := indicators.FeatureSet{Missing: []string{"warmup"}}
	_, err := Score(fs, regime.DefaultWeightVector())
	if !errors.Is(err, ErrNotScorable) {
		t.Errorf("Score() error = %v, want ErrNotScorable", err)
	}
}

func TestScoreBullish(t *testing.T) {
	sig, err := Score(bullishFeatures(), regime.DefaultWeightVector())
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if sig.Direction != Long {
		t.Errorf("Direction = %s, want LONG", sig.Direction)
	}
	if sig.Score <= 0.5 {
		t.Errorf("Score = %f, want > 0.5", sig.Score)
	}
	if sig.Confidence <= 0 || sig.Confidence > 100 {
		t.Errorf("Confidence = %f, out of (0,100]", sig.Confidence)
	}
	if sig.Regime != regime.TrendingStrong {
		t.Errorf("Regime = %s, want trending_strong at ADX 45", sig.Regime)
	}
	if len(sig.Reasons) == 0 {
		t.Error("Reasons empty, want per-category explanations")
	}
}

func TestScoreBearish(t *testing.T) {
	sig, err := Score(bearishFeatures(), regime.DefaultWeightVector())
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if sig.Direction != Short {
		t.Errorf("Direction = %s, want SHORT", sig.Direction)
	}
	if sig.Score >= 0.5 {
		t.Errorf("Score = %f, want < 0.5", sig.Score)
	}
}

func TestScoreSubScoreBounds(t *testing.T) {
	for name, fs := range map[string]indicators.FeatureSet{
		"bullish": bullishFeatures(),
		"bearish": bearishFeatures(),
	} {
		sig, err := Score(fs, regime.DefaultWeightVector())
		if err != nil {
			t.Fatalf("%s: Score() error = %v", name, err)
		}
		for _, cat := range regime.Categories() {
			s, ok := sig.SubScores[cat]
			if !ok {
				t.Errorf("%s: missing sub-score %s", name, cat)
				continue
			}
			if s < 0 || s > 1 {
				t.Errorf("%s: sub-score %s = %f, out of [0,1]", name, cat, s)
			}
		}
		if sig.Score < 0 || sig.Score > 1 {
			t.Errorf("%s: Score = %f, out of [0,1]", name, sig.Score)
		}
	}
}

func TestScoreNeutralIsShort(t *testing.T) {
	// Mixed signals that land exactly on 0.5 resolve to SHORT.
	fs := bullishFeatures()
	fs.SMA20, fs.SMA50 = 98, 102 // mixed cross: trend 0.5
	fs.Slope = 0.1
	fs.RSI = 60 // neutral band
	fs.MACDHist = 0
	fs.PercentB = 0.5
	fs.ATRPercent = 2.0 // no volatility contribution
	fs.ADX = 20
	fs.StochK, fs.StochD = 50, 50

	// Binary-exact weights keep the 0.5 sum exact in floating point.
	weights := regime.WeightVector{Trend: 0.25, Momentum: 0.25, Volatility: 0.25, TrendStrength: 0.125, Stochastic: 0.125}
	sig, err := Score(fs, weights)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if sig.Score != 0.5 {
		t.Fatalf("Score = %f, want exactly 0.5 for this construction", sig.Score)
	}
	if sig.Direction != Short {
		t.Errorf("Direction = %s, want SHORT at the neutral score", sig.Direction)
	}
	if sig.Confidence != 0 {
		t.Errorf("Confidence = %f, want 0 at the neutral score", sig.Confidence)
	}
}

func TestScoreConfidenceScaling(t *testing.T) {
	sig, err := Score(bullishFeatures(), regime.DefaultWeightVector())
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	want := (sig.Score - 0.5) * 200
	if diff := sig.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Confidence = %f, want %f", sig.Confidence, want)
	}
}

func TestScoreRespectsWeights(t *testing.T) {
	fs := bullishFeatures()
	fs.StochK, fs.StochD = 20, 30 // bearish stochastic against a bullish rest

	allStoch := regime.WeightVector{Stochastic: 1.0}
	sig, err := Score(fs, allStoch)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if sig.Direction != Short {
		t.Errorf("Direction = %s, want SHORT when all weight sits on a bearish category", sig.Direction)
	}
	if sig.Score != 0 {
		t.Errorf("Score = %f, want 0", sig.Score)
	}
}
