package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightVectorValidate(t *testing.T) {
	tests := []struct {
		name    string
		vector  WeightVector
		wantErr bool
	}{
		{
			name:   "default is valid",
			vector: DefaultWeightVector(),
		},
		{
			name:   "exact sum",
			vector: WeightVector{Trend: 0.2, Momentum: 0.2, Volatility: 0.2, TrendStrength: 0.2, Stochastic: 0.2},
		},
		{
			name:    "sum above one",
			vector:  WeightVector{Trend: 0.5, Momentum: 0.5, Volatility: 0.2, TrendStrength: 0.2, Stochastic: 0.1},
			wantErr: true,
		},
		{
			name:    "sum below one",
			vector:  WeightVector{Trend: 0.1, Momentum: 0.1, Volatility: 0.1, TrendStrength: 0.1, Stochastic: 0.1},
			wantErr: true,
		},
		{
			name:    "negative entry",
			vector:  WeightVector{Trend: -0.1, Momentum: 0.4, Volatility: 0.3, TrendStrength: 0.2, Stochastic: 0.2},
			wantErr: true,
		},
		{
			name:   "within tolerance",
			vector: WeightVector{Trend: 0.2 + 5e-7, Momentum: 0.25, Volatility: 0.2, TrendStrength: 0.2, Stochastic: 0.15},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vector.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWeightMapValidateRejectsWhole(t *testing.T) {
	m := WeightMap{
		Default: DefaultWeightVector(),
		Regimes: map[Type]WeightVector{
			TrendingStrong: DefaultWeightVector(),
			RangingLowVol:  {Trend: 0.9, Momentum: 0.9}, // sums to 1.8
		},
	}
	assert.Error(t, m.Validate())

	m.Regimes = map[Type]WeightVector{Type("sideways"): DefaultWeightVector()}
	assert.Error(t, m.Validate(), "unknown regime label must be rejected")
}

func TestSelectorFallback(t *testing.T) {
	custom, err := NewWeightVector(0.40, 0.20, 0.15, 0.15, 0.10)
	require.NoError(t, err)

	sel, err := NewSelector(WeightMap{
		Default: DefaultWeightVector(),
		Regimes: map[Type]WeightVector{TrendingStrong: custom},
	})
	require.NoError(t, err)

	assert.Equal(t, custom, sel.Select(TrendingStrong))
	assert.Equal(t, DefaultWeightVector(), sel.Select(RangingHighVol), "unmapped regime falls back to default")
}

func TestSelectorReload(t *testing.T) {
	sel, err := NewSelector(DefaultWeightMap())
	require.NoError(t, err)

	custom, err := NewWeightVector(0.10, 0.30, 0.20, 0.25, 0.15)
	require.NoError(t, err)

	require.NoError(t, sel.Reload(WeightMap{
		Default: DefaultWeightVector(),
		Regimes: map[Type]WeightVector{TrendingWeak: custom},
	}))
	assert.Equal(t, custom, sel.Select(TrendingWeak))

	// A failed reload keeps the previous map in effect.
	bad := WeightMap{Default: WeightVector{Trend: 2.0}}
	assert.Error(t, sel.Reload(bad))
	assert.Equal(t, custom, sel.Select(TrendingWeak))
}

func TestSelectorSnapshotIsCopy(t *testing.T) {
	sel, err := NewSelector(WeightMap{
		Default: DefaultWeightVector(),
		Regimes: map[Type]WeightVector{TrendingStrong: DefaultWeightVector()},
	})
	require.NoError(t, err)

	snap := sel.Snapshot()
	snap.Regimes[TrendingStrong] = WeightVector{Trend: 1.0}

	assert.Equal(t, DefaultWeightVector(), sel.Select(TrendingStrong), "mutating a snapshot must not affect the selector")
}
