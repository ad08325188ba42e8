// Package regime classifies market behavior from trend strength and
// volatility, and defines the per-regime indicator weight allocations used by
// the composite scorer.
package regime

// Type is a coarse market-regime label.
type Type string

const (
	TrendingStrong Type = "trending_strong"
	TrendingWeak   Type = "trending_weak"
	RangingLowVol  Type = "ranging_low_vol"
	RangingHighVol Type = "ranging_high_vol"
)

// Classification thresholds. ADX above 30 marks a strong trend, 20-30 a weak
// one; below that, ATR% separates quiet ranges from volatile chop.
const (
	ADXStrongThreshold = 30.0
	ADXWeakThreshold   = 20.0
	HighVolATRPercent  = 2.5
)

// String returns the regime label.
func (t Type) String() string {
	return string(t)
}

// All returns every regime label in a stable order.
func All() []Type {
	return []Type{TrendingStrong, TrendingWeak, RangingLowVol, RangingHighVol}
}

// Valid reports whether t is a known regime label.
func (t Type) Valid() bool {
	switch t {
	case TrendingStrong, TrendingWeak, RangingLowVol, RangingHighVol:
		return true
	}
	return false
}

// Classify maps ADX and ATR% to a regime label. It is a pure, total function:
// every (adx, atrPercent) pair yields exactly one label.
func Classify(adx, atrPercent float64) Type {
	switch {
	case adx > ADXStrongThreshold:
		return TrendingStrong
	case adx > ADXWeakThreshold:
		return TrendingWeak
	case atrPercent > HighVolATRPercent:
		return RangingHighVol
	default:
		return RangingLowVol
	}
}
