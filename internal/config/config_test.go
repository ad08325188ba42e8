package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/signalrun/internal/domain/regime"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 60.0, cfg.Sim.MinConfidence)
	assert.Equal(t, 0.02, cfg.Sim.LongStopPct)
	assert.Equal(t, 0.04, cfg.Sim.LongTargetPct)
	assert.Equal(t, 0.05, cfg.Sim.ShortStopPct)
	assert.Equal(t, 10000.0, cfg.Sim.Capital)
	assert.Equal(t, 10, cfg.Train.MinSamples)
	assert.Equal(t, ":8080", cfg.Monitor.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Data.CacheTTL)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverridesAndFills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
log_level: debug
sim:
  min_confidence: 75
monitor:
  addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 75.0, cfg.Sim.MinConfidence)
	assert.Equal(t, ":9090", cfg.Monitor.Addr)
	// Untouched fields still receive defaults.
	assert.Equal(t, 0.02, cfg.Sim.LongStopPct)
	assert.Equal(t, "data/bars", cfg.Data.CSVDir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
log_level: loud
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	body = `
sim:
  min_confidence: 150
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestWeightMapRoundTrip(t *testing.T) {
	custom, err := regime.NewWeightVector(0.35, 0.15, 0.20, 0.25, 0.05)
	require.NoError(t, err)

	m := regime.WeightMap{
		Default: regime.DefaultWeightVector(),
		Regimes: map[regime.Type]regime.WeightVector{
			regime.TrendingStrong: custom,
			regime.RangingHighVol: regime.DefaultWeightVector(),
		},
	}

	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, SaveWeightMap(path, m))

	loaded, err := LoadWeightMap(path)
	require.NoError(t, err)
	assert.Equal(t, m.Default, loaded.Default)
	assert.Equal(t, m.Regimes, loaded.Regimes)
}

func TestLoadWeightMapRejectsBadSum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	body := `
default:
  trend: 0.2
  momentum: 0.25
  volatility: 0.2
  trend_strength: 0.2
  stochastic: 0.15
regimes:
  trending_strong:
    trend: 0.3
    momentum: 0.3
    volatility: 0.3
    trend_strength: 0.3
    stochastic: 0.3
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	_, err := LoadWeightMap(path)
	assert.Error(t, err, "sum 1.5 must reject the whole file")
}

func TestSaveWeightMapRefusesInvalid(t *testing.T) {
	bad := regime.WeightMap{Default: regime.WeightVector{Trend: 0.9}}
	err := SaveWeightMap(filepath.Join(t.TempDir(), "weights.yaml"), bad)
	assert.Error(t, err)
}
