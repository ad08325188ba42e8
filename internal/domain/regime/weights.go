package regime

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
)

// WeightSumTolerance is the allowed deviation from 1.0 for a weight vector's
// category sum.
const WeightSumTolerance = 1e-6

// Category names, in the order they are reported.
const (
	CategoryTrend         = "trend"
	CategoryMomentum      = "momentum"
	CategoryVolatility    = "volatility"
	CategoryTrendStrength = "trend_strength"
	CategoryStochastic    = "stochastic"
)

// Categories returns the five fixed category names in reporting order.
func Categories() []string {
	return []string{CategoryTrend, CategoryMomentum, CategoryVolatility, CategoryTrendStrength, CategoryStochastic}
}

// WeightVector allocates scoring weight across the five indicator
// categories. A valid vector has non-negative entries summing to 1.0 within
// WeightSumTolerance.
type WeightVector struct {
	Trend         float64 `yaml:"trend" json:"trend"`
	Momentum      float64 `yaml:"momentum" json:"momentum"`
	Volatility    float64 `yaml:"volatility" json:"volatility"`
	TrendStrength float64 `yaml:"trend_strength" json:"trend_strength"`
	Stochastic    float64 `yaml:"stochastic" json:"stochastic"`
}

// NewWeightVector builds a validated weight vector.
func NewWeightVector(trend, momentum, volatility, trendStrength, stochastic float64) (WeightVector, error) {
	wv := WeightVector{
		Trend:         trend,
		Momentum:      momentum,
		Volatility:    volatility,
		TrendStrength: trendStrength,
		Stochastic:    stochastic,
	}
	if err := wv.Validate(); err != nil {
		return WeightVector{}, err
	}
	return wv, nil
}

// DefaultWeightVector returns the static default allocation used when no
// trained map is available.
func DefaultWeightVector() WeightVector {
	return WeightVector{
		Trend:         0.20,
		Momentum:      0.25,
		Volatility:    0.20,
		TrendStrength: 0.20,
		Stochastic:    0.15,
	}
}

// Sum returns the total allocation across all categories.
func (w WeightVector) Sum() float64 {
	return w.Trend + w.Momentum + w.Volatility + w.TrendStrength + w.Stochastic
}

// Validate checks non-negativity and the sum-to-1 invariant.
func (w WeightVector) Validate() error {
	for name, v := range w.Map() {
		if v < 0 {
			return fmt.Errorf("%s weight cannot be negative: %f", name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("weights sum to %.6f, expected 1.0 within %.0e", sum, WeightSumTolerance)
	}
	return nil
}

// Map returns the vector keyed by category name.
func (w WeightVector) Map() map[string]float64 {
	return map[string]float64{
		CategoryTrend:         w.Trend,
		CategoryMomentum:      w.Momentum,
		CategoryVolatility:    w.Volatility,
		CategoryTrendStrength: w.TrendStrength,
		CategoryStochastic:    w.Stochastic,
	}
}

// WeightMap associates one weight vector per regime plus a default used for
// unmapped regimes. Built once (trained or hand-authored) and treated as a
// read-only artifact during scoring.
type WeightMap struct {
	Default WeightVector          `yaml:"default" json:"default"`
	Regimes map[Type]WeightVector `yaml:"regimes" json:"regimes"`
}

// Validate checks every vector in the map, including the default. A map with
// any invalid vector must be rejected whole; partial application is never
// allowed.
func (m WeightMap) Validate() error {
	if err := m.Default.Validate(); err != nil {
		return fmt.Errorf("default weights: %w", err)
	}
	for r, wv := range m.Regimes {
		if !r.Valid() {
			return fmt.Errorf("unknown regime %q in weight map", r)
		}
		if err := wv.Validate(); err != nil {
			return fmt.Errorf("regime %s weights: %w", r, err)
		}
	}
	return nil
}

// DefaultWeightMap returns a map with no regime overrides: every regime
// resolves to the static default vector.
func DefaultWeightMap() WeightMap {
	return WeightMap{Default: DefaultWeightVector()}
}

// Selector resolves the weight vector for a regime, falling back to the
// map's default for unmapped regimes. Selection never fails.
type Selector struct {
	mu sync.RWMutex
	m  WeightMap
}

// NewSelector validates the map and builds a selector. Validation is
// fail-fast: an invalid map is rejected before any scoring can use it.
func NewSelector(m WeightMap) (*Selector, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weight map: %w", err)
	}
	return &Selector{m: m}, nil
}

// Select returns the weight vector for the regime, or the default when the
// regime is unmapped.
func (s *Selector) Select(r Type) WeightVector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if wv, ok := s.m.Regimes[r]; ok {
		return wv
	}
	log.Info().Str("regime", r.String()).Msg("regime unmapped, using default weights")
	return s.m.Default
}

// Reload replaces the whole map atomically after validating it. The old map
// stays in effect if validation fails.
func (s *Selector) Reload(m WeightMap) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid weight map: %w", err)
	}
	s.mu.Lock()
	s.m = m
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current map.
func (s *Selector) Snapshot() WeightMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := WeightMap{Default: s.m.Default}
	if s.m.Regimes != nil {
		out.Regimes = make(map[Type]WeightVector, len(s.m.Regimes))
		for r, wv := range s.m.Regimes {
			out.Regimes[r] = wv
		}
	}
	return out
}
