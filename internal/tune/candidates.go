// Package tune trains the per-regime weight map by replaying historical bars
// through the composite scorer under a fixed set of candidate weight vectors
// and keeping the most accurate candidate for each regime.
package tune

import (
	"fmt"

	"github.com/sawpanic/signalrun/internal/domain/regime"
)

// Candidate is a named weight vector entered into the per-regime evaluation.
// Candidate order is significant: ties resolve to the earliest candidate.
type Candidate struct {
	Name    string              `json:"name" yaml:"name"`
	Weights regime.WeightVector `json:"weights" yaml:"weights"`
}

// DefaultCandidates returns the six hand-chosen allocations evaluated per
// regime. "standard" doubles as the accuracy baseline in reports.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{
			Name:    "standard",
			Weights: regime.WeightVector{Trend: 0.20, Momentum: 0.25, Volatility: 0.20, TrendStrength: 0.20, Stochastic: 0.15},
		},
		{
			Name:    "momentum_heavy",
			Weights: regime.WeightVector{Trend: 0.15, Momentum: 0.40, Volatility: 0.15, TrendStrength: 0.20, Stochastic: 0.10},
		},
		{
			Name:    "trend_heavy",
			Weights: regime.WeightVector{Trend: 0.35, Momentum: 0.15, Volatility: 0.20, TrendStrength: 0.25, Stochastic: 0.05},
		},
		{
			Name:    "volatility_aware",
			Weights: regime.WeightVector{Trend: 0.15, Momentum: 0.20, Volatility: 0.35, TrendStrength: 0.15, Stochastic: 0.15},
		},
		{
			Name:    "adx_focused",
			Weights: regime.WeightVector{Trend: 0.15, Momentum: 0.20, Volatility: 0.15, TrendStrength: 0.40, Stochastic: 0.10},
		},
		{
			Name:    "balanced",
			Weights: regime.WeightVector{Trend: 0.20, Momentum: 0.30, Volatility: 0.25, TrendStrength: 0.15, Stochastic: 0.10},
		},
	}
}

// validateCandidates checks every candidate vector and rejects duplicate
// names, since names key the report output.
func validateCandidates(candidates []Candidate) error {
	if len(candidates) == 0 {
		return fmt.Errorf("no candidates to evaluate")
	}
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.Name == "" {
			return fmt.Errorf("candidate with empty name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate candidate name %q", c.Name)
		}
		seen[c.Name] = true
		if err := c.Weights.Validate(); err != nil {
			return fmt.Errorf("candidate %s: %w", c.Name, err)
		}
	}
	return nil
}
