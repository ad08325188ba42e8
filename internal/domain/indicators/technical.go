package indicators

import (
	"math"

	"github.com/sawpanic/signalrun/internal/domain/bars"
)

// Standard lookback periods used across the engine.
const (
	SMAFastPeriod   = 20
	SMASlowPeriod   = 50
	EMAFastSpan     = 12
	EMASlowSpan     = 26
	MACDSignalSpan  = 9
	RSIPeriod       = 14
	BollingerPeriod = 20
	BollingerStdDev = 2.0
	ADXPeriod       = 14
	ATRPeriod       = 14
	StochPeriod     = 14
	StochSmoothK    = 3
	StochSmoothD    = 3
)

// SMA returns the arithmetic mean of the last period values. The second
// return value reports whether enough history was available.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// EMA returns the exponentially weighted mean of values with the given span,
// seeded from the first value (alpha = 2/(span+1)).
func EMA(values []float64, span int) (float64, bool) {
	series, ok := emaSeries(values, span)
	if !ok {
		return 0, false
	}
	return series[len(series)-1], true
}

func emaSeries(values []float64, span int) ([]float64, bool) {
	if span <= 0 || len(values) == 0 {
		return nil, false
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}
	return out, true
}

// Slope returns the least-squares linear regression slope of the last window
// values against their index.
func Slope(values []float64, window int) (float64, bool) {
	if window < 2 || len(values) < window {
		return 0, false
	}
	tail := values[len(values)-window:]
	n := float64(window)
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range tail {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	return (n*sumXY - sumX*sumY) / denom, true
}

// RSIResult holds a Relative Strength Index computation.
type RSIResult struct {
	Value   float64
	Period  int
	IsValid bool
}

// CalculateRSI computes Wilder's RSI over the price series. A window with
// zero average loss returns exactly 100, zero average gain returns 0, and a
// completely flat window returns the neutral 50.
func CalculateRSI(prices []float64, period int) RSIResult {
	if period <= 0 || len(prices) < period+1 {
		return RSIResult{Period: period}
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder's smoothing for the remainder of the series.
	alpha := 1.0 / float64(period)
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = avgGain*(1-alpha) + gain*alpha
		avgLoss = avgLoss*(1-alpha) + loss*alpha
	}

	switch {
	case avgGain == 0 && avgLoss == 0:
		return RSIResult{Value: 50.0, Period: period, IsValid: true}
	case avgLoss == 0:
		return RSIResult{Value: 100.0, Period: period, IsValid: true}
	case avgGain == 0:
		return RSIResult{Value: 0.0, Period: period, IsValid: true}
	}

	rs := avgGain / avgLoss
	return RSIResult{Value: 100.0 - 100.0/(1.0+rs), Period: period, IsValid: true}
}

// MACDResult holds the MACD line, its signal line, and the histogram.
type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
	IsValid   bool
}

// CalculateMACD computes MACD(fast,slow,signal): EMA(fast) - EMA(slow) as the
// line, EMA(signal) of the line as the signal, histogram = line - signal.
func CalculateMACD(prices []float64, fast, slow, signal int) MACDResult {
	if len(prices) < slow+signal {
		return MACDResult{}
	}
	fastSeries, ok1 := emaSeries(prices, fast)
	slowSeries, ok2 := emaSeries(prices, slow)
	if !ok1 || !ok2 {
		return MACDResult{}
	}
	line := make([]float64, len(prices))
	for i := range prices {
		line[i] = fastSeries[i] - slowSeries[i]
	}
	signalSeries, ok := emaSeries(line, signal)
	if !ok {
		return MACDResult{}
	}
	last := len(prices) - 1
	return MACDResult{
		Line:      line[last],
		Signal:    signalSeries[last],
		Histogram: line[last] - signalSeries[last],
		IsValid:   true,
	}
}

// BollingerResult holds Bollinger Band levels and the %B position of the
// latest price within the bands (0 = lower band, 1 = upper band).
type BollingerResult struct {
	Upper    float64
	Middle   float64
	Lower    float64
	PercentB float64
	IsValid  bool
}

// CalculateBollinger computes Bollinger Bands over the last period prices
// using the sample standard deviation. Collapsed bands (zero width) yield the
// neutral %B of 0.5.
func CalculateBollinger(prices []float64, period int, numStd float64) BollingerResult {
	if period < 2 || len(prices) < period {
		return BollingerResult{}
	}
	window := prices[len(prices)-period:]
	mean := 0.0
	for _, p := range window {
		mean += p
	}
	mean /= float64(period)

	variance := 0.0
	for _, p := range window {
		variance += (p - mean) * (p - mean)
	}
	std := math.Sqrt(variance / float64(period-1))

	upper := mean + std*numStd
	lower := mean - std*numStd
	percentB := 0.5
	if width := upper - lower; width > 0 {
		percentB = (prices[len(prices)-1] - lower) / width
	}
	return BollingerResult{
		Upper:    upper,
		Middle:   mean,
		Lower:    lower,
		PercentB: percentB,
		IsValid:  true,
	}
}

// ATRResult holds an Average True Range computation. Percent expresses the
// ATR relative to the latest close.
type ATRResult struct {
	Value   float64
	Percent float64
	Period  int
	IsValid bool
}

// CalculateATR computes Wilder's Average True Range over the bar sequence.
func CalculateATR(seq []bars.Bar, period int) ATRResult {
	if period <= 0 || len(seq) < period+1 {
		return ATRResult{Period: period}
	}
	ranges := trueRanges(seq)

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += ranges[i]
	}
	atr /= float64(period)

	alpha := 1.0 / float64(period)
	for i := period; i < len(ranges); i++ {
		atr = atr*(1-alpha) + ranges[i]*alpha
	}

	lastClose := seq[len(seq)-1].Close
	percent := 0.0
	if lastClose != 0 {
		percent = atr / lastClose * 100.0
	}
	return ATRResult{Value: atr, Percent: percent, Period: period, IsValid: true}
}

func trueRanges(seq []bars.Bar) []float64 {
	out := make([]float64, len(seq)-1)
	for i := 1; i < len(seq); i++ {
		hl := seq[i].High - seq[i].Low
		hc := math.Abs(seq[i].High - seq[i-1].Close)
		lc := math.Abs(seq[i].Low - seq[i-1].Close)
		out[i-1] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ADXResult holds the Average Directional Index and both directional
// indicators.
type ADXResult struct {
	ADX     float64
	PDI     float64
	MDI     float64
	Period  int
	IsValid bool
}

// CalculateADX computes the standard directional-movement index with Wilder
// smoothing applied to TR, +DM, -DM, and the DX series itself. Needs at
// least 2*period+1 bars.
func CalculateADX(seq []bars.Bar, period int) ADXResult {
	if period <= 0 || len(seq) < 2*period+1 {
		return ADXResult{Period: period}
	}

	n := len(seq) - 1
	tr := trueRanges(seq)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < len(seq); i++ {
		up := seq[i].High - seq[i-1].High
		down := seq[i-1].Low - seq[i].Low
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	alpha := 1.0 / float64(period)
	smTR, smPlus, smMinus := 0.0, 0.0, 0.0
	for i := 0; i < period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	var pdi, mdi, adx float64
	adxSeeded := false
	dxCount := 0
	dxSeed := 0.0

	record := func() {
		if smTR == 0 {
			pdi, mdi = 0, 0
		} else {
			pdi = 100.0 * smPlus / smTR
			mdi = 100.0 * smMinus / smTR
		}
		dx := 0.0
		if sum := pdi + mdi; sum > 0 {
			dx = 100.0 * math.Abs(pdi-mdi) / sum
		}
		if !adxSeeded {
			dxSeed += dx
			dxCount++
			if dxCount == period {
				adx = dxSeed / float64(period)
				adxSeeded = true
			}
			return
		}
		adx = adx*(1-alpha) + dx*alpha
	}
	record()

	for i := period; i < n; i++ {
		smTR = smTR*(1-alpha) + tr[i]*alpha
		smPlus = smPlus*(1-alpha) + plusDM[i]*alpha
		smMinus = smMinus*(1-alpha) + minusDM[i]*alpha
		record()
	}

	if !adxSeeded {
		return ADXResult{Period: period}
	}
	return ADXResult{ADX: adx, PDI: pdi, MDI: mdi, Period: period, IsValid: true}
}

// StochasticResult holds the smoothed %K and %D oscillator values.
type StochasticResult struct {
	K       float64
	D       float64
	IsValid bool
}

// CalculateStochastic computes the Stochastic oscillator: raw %K over the
// high/low range of the last period bars, smoothed by smoothK, with %D the
// smoothD-average of smoothed %K. A window where high equals low yields the
// neutral %K of 50.
func CalculateStochastic(seq []bars.Bar, period, smoothK, smoothD int) StochasticResult {
	need := period + smoothK + smoothD - 2
	if period <= 0 || smoothK <= 0 || smoothD <= 0 || len(seq) < need {
		return StochasticResult{}
	}

	rawK := func(end int) float64 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := end - period + 1; i <= end; i++ {
			lo = math.Min(lo, seq[i].Low)
			hi = math.Max(hi, seq[i].High)
		}
		if hi == lo {
			return 50.0
		}
		return 100.0 * (seq[end].Close - lo) / (hi - lo)
	}

	smoothedK := func(end int) float64 {
		sum := 0.0
		for i := end - smoothK + 1; i <= end; i++ {
			sum += rawK(i)
		}
		return sum / float64(smoothK)
	}

	last := len(seq) - 1
	k := smoothedK(last)
	d := 0.0
	for i := last - smoothD + 1; i <= last; i++ {
		d += smoothedK(i)
	}
	d /= float64(smoothD)

	return StochasticResult{K: k, D: d, IsValid: true}
}
