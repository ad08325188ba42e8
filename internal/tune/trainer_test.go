package tune

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/signalrun/internal/domain/bars"
	"github.com/sawpanic/signalrun/internal/domain/regime"
)

func trainingBars(n int) []bars.Bar {
	seq := make([]bars.Bar, n)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := range seq {
		// Alternating drift keeps both directions represented.
		move := 0.6
		if i%4 == 0 || i%7 == 0 {
			move = -0.5
		}
		price += move
		seq[i] = bars.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price - move,
			High:      price + 0.7,
			Low:       price - 0.7,
			Close:     price,
			Volume:    500,
		}
	}
	return seq
}

func TestNewTrainerRejectsInvalidCandidates(t *testing.T) {
	_, err := NewTrainer(Config{Candidates: []Candidate{
		{Name: "broken", Weights: regime.WeightVector{Trend: 0.9, Momentum: 0.9}},
	}})
	assert.Error(t, err)

	_, err = NewTrainer(Config{Candidates: []Candidate{
		{Name: "dup", Weights: regime.DefaultWeightVector()},
		{Name: "dup", Weights: regime.DefaultWeightVector()},
	}})
	assert.Error(t, err)
}

func TestDefaultCandidatesAreValid(t *testing.T) {
	cands := DefaultCandidates()
	require.Len(t, cands, 6)
	assert.Equal(t, "standard", cands[0].Name)
	for _, c := range cands {
		assert.NoError(t, c.Weights.Validate(), c.Name)
	}
}

func TestTrainDeterministic(t *testing.T) {
	tr, err := NewTrainer(Config{MinSamples: 1})
	require.NoError(t, err)

	seq := trainingBars(160)
	first, err := tr.Train(seq)
	require.NoError(t, err)
	second, err := tr.Train(seq)
	require.NoError(t, err)

	assert.Equal(t, first.Weights, second.Weights)
	assert.Equal(t, first.Samples, second.Samples)
	require.Equal(t, len(first.Regimes), len(second.Regimes))
	for i := range first.Regimes {
		assert.Equal(t, first.Regimes[i].Best, second.Regimes[i].Best)
		assert.Equal(t, first.Regimes[i].Scores, second.Regimes[i].Scores)
	}
}

func TestTrainTieBreakFirstWins(t *testing.T) {
	// Identical weights under different names force an exact tie.
	same := regime.DefaultWeightVector()
	tr, err := NewTrainer(Config{
		Candidates: []Candidate{
			{Name: "first", Weights: same},
			{Name: "second", Weights: same},
		},
		MinSamples: 1,
	})
	require.NoError(t, err)

	report, err := tr.Train(trainingBars(160))
	require.NoError(t, err)
	require.NotEmpty(t, report.Regimes)
	for _, rr := range report.Regimes {
		assert.Equal(t, "first", rr.Best, "tie must resolve to the earliest candidate")
	}
}

func TestTrainOmitsThinRegimes(t *testing.T) {
	tr, err := NewTrainer(Config{MinSamples: 1 << 20})
	require.NoError(t, err)

	report, err := tr.Train(trainingBars(160))
	require.NoError(t, err)
	assert.Empty(t, report.Weights.Regimes, "regimes below the sample floor stay unmapped")
	assert.NoError(t, report.Weights.Validate())
	assert.Equal(t, regime.DefaultWeightVector(), report.Weights.Default)
}

func TestTrainErrorsWithoutSamples(t *testing.T) {
	tr, err := NewTrainer(Config{MinSamples: 1})
	require.NoError(t, err)
	_, err = tr.Train(trainingBars(10))
	assert.Error(t, err, "all bars inside warm-up must fail training")
}

func TestTrainAllPoolsInstruments(t *testing.T) {
	tr, err := NewTrainer(Config{MinSamples: 1})
	require.NoError(t, err)

	a := trainingBars(160)
	b := trainingBars(120)
	report, err := tr.TrainAll(map[string][]bars.Bar{"AAA": a, "BBB": b})
	require.NoError(t, err)

	assert.Equal(t, len(a)+len(b), report.Bars)

	only, err := tr.Train(a)
	require.NoError(t, err)
	assert.Greater(t, report.Samples, only.Samples, "pooled run must see more samples than one instrument")

	again, err := tr.TrainAll(map[string][]bars.Bar{"BBB": b, "AAA": a})
	require.NoError(t, err)
	assert.Equal(t, report.Weights, again.Weights, "map iteration order must not affect training")
}

func TestTrainReportShape(t *testing.T) {
	tr, err := NewTrainer(Config{MinSamples: 1})
	require.NoError(t, err)

	seq := trainingBars(200)
	report, err := tr.Train(seq)
	require.NoError(t, err)

	assert.Equal(t, len(seq), report.Bars)
	assert.Greater(t, report.Samples, 0)
	for _, rr := range report.Regimes {
		require.Len(t, rr.Scores, len(DefaultCandidates()))
		var best CandidateScore
		for _, cs := range rr.Scores {
			assert.Equal(t, rr.Samples, cs.Samples)
			assert.GreaterOrEqual(t, cs.Accuracy, 0.0)
			assert.LessOrEqual(t, cs.Accuracy, 100.0)
			if cs.Name == rr.Best {
				best = cs
			}
		}
		for _, cs := range rr.Scores {
			assert.LessOrEqual(t, cs.Accuracy, best.Accuracy, "chosen candidate must have the top accuracy")
		}
		assert.InDelta(t, best.Accuracy-rr.Baseline, rr.Improvement, 1e-12)
	}
}
