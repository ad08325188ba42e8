package tune

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/signalrun/internal/domain/bars"
	"github.com/sawpanic/signalrun/internal/domain/indicators"
	"github.com/sawpanic/signalrun/internal/domain/regime"
	"github.com/sawpanic/signalrun/internal/domain/scoring"
)

// Config controls a training run.
type Config struct {
	// Candidates is the ordered list of weight vectors to evaluate. Empty
	// means DefaultCandidates.
	Candidates []Candidate
	// MinSamples is the minimum number of regime samples required before a
	// regime receives a trained entry. Regimes below the floor are omitted
	// from the output map and resolve to the default at selection time.
	MinSamples int
	// Extractor overrides the feature extractor; nil uses defaults.
	Extractor *indicators.Extractor
}

// DefaultConfig returns the standard training configuration.
func DefaultConfig() Config {
	return Config{
		Candidates: DefaultCandidates(),
		MinSamples: 10,
	}
}

// CandidateScore is one candidate's accuracy within one regime.
type CandidateScore struct {
	Name     string              `json:"name"`
	Weights  regime.WeightVector `json:"weights"`
	Correct  int                 `json:"correct"`
	Samples  int                 `json:"samples"`
	Accuracy float64             `json:"accuracy"`
}

// RegimeReport holds the full evaluation for one regime.
type RegimeReport struct {
	Regime      regime.Type      `json:"regime"`
	Samples     int              `json:"samples"`
	Scores      []CandidateScore `json:"scores"`
	Best        string           `json:"best"`
	Baseline    float64          `json:"baseline_accuracy"`
	Improvement float64          `json:"improvement"`
}

// Report is the result of a training run: the trained weight map plus the
// per-regime evaluation behind every choice.
type Report struct {
	TrainedAt time.Time        `json:"trained_at"`
	Bars      int              `json:"bars"`
	Samples   int              `json:"samples"`
	Regimes   []RegimeReport   `json:"regimes"`
	Weights   regime.WeightMap `json:"weights"`
}

// Trainer evaluates candidate weight vectors per regime. Training is
// deterministic: the same bars and candidates always yield the same map.
type Trainer struct {
	candidates []Candidate
	minSamples int
	extractor  *indicators.Extractor
}

// NewTrainer validates the configuration and builds a trainer.
func NewTrainer(config Config) (*Trainer, error) {
	if len(config.Candidates) == 0 {
		config.Candidates = DefaultCandidates()
	}
	if err := validateCandidates(config.Candidates); err != nil {
		return nil, err
	}
	if config.MinSamples <= 0 {
		config.MinSamples = DefaultConfig().MinSamples
	}
	if config.Extractor == nil {
		config.Extractor = indicators.NewExtractor(indicators.ExtractorConfig{})
	}
	return &Trainer{
		candidates: config.Candidates,
		minSamples: config.MinSamples,
		extractor:  config.Extractor,
	}, nil
}

// sample is one scorable bar paired with the realized next-bar direction.
type sample struct {
	features indicators.FeatureSet
	actual   scoring.Direction
}

// Train replays one bar history. See TrainAll for the multi-instrument
// variant.
func (t *Trainer) Train(seq []bars.Bar) (Report, error) {
	return t.TrainAll(map[string][]bars.Bar{"": seq})
}

// TrainAll pools samples from every instrument, groups scorable bars by
// regime, scores each group under every candidate, and keeps the most
// accurate candidate per regime. Accuracy is predicted direction against the
// next bar's close; each instrument's final bar has no successor and is
// never a sample. Instruments are pooled in symbol order so the run is
// deterministic.
func (t *Trainer) TrainAll(histories map[string][]bars.Bar) (Report, error) {
	symbols := make([]string, 0, len(histories))
	for s := range histories {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	byRegime := make(map[regime.Type][]sample)
	total, totalBars := 0, 0
	for _, symbol := range symbols {
		seq := histories[symbol]
		totalBars += len(seq)

		features, err := t.extractor.Extract(seq)
		if err != nil {
			return Report{}, fmt.Errorf("extract features for %q: %w", symbol, err)
		}
		for i := 0; i+1 < len(seq); i++ {
			if !features[i].Scorable() {
				continue
			}
			actual := scoring.Short
			if seq[i+1].Close > seq[i].Close {
				actual = scoring.Long
			}
			r := regime.Classify(features[i].ADX, features[i].ATRPercent)
			byRegime[r] = append(byRegime[r], sample{features: features[i], actual: actual})
			total++
		}
	}
	if total == 0 {
		return Report{}, fmt.Errorf("no scorable samples in %d bars", totalBars)
	}

	report := Report{
		TrainedAt: time.Now().UTC(),
		Bars:      totalBars,
		Samples:   total,
		Weights:   regime.WeightMap{Default: regime.DefaultWeightVector()},
	}

	// Iterate regimes in their fixed declaration order so report output and
	// map construction stay deterministic.
	for _, r := range regime.All() {
		samples := byRegime[r]
		if len(samples) == 0 {
			continue
		}
		if len(samples) < t.minSamples {
			log.Info().
				Str("regime", r.String()).
				Int("samples", len(samples)).
				Int("min_samples", t.minSamples).
				Msg("too few samples, regime left unmapped")
			continue
		}

		rr := t.evaluateRegime(r, samples)
		report.Regimes = append(report.Regimes, rr)

		best := rr.Scores[0]
		for _, cs := range rr.Scores {
			if cs.Name == rr.Best {
				best = cs
				break
			}
		}
		if report.Weights.Regimes == nil {
			report.Weights.Regimes = make(map[regime.Type]regime.WeightVector)
		}
		report.Weights.Regimes[r] = best.Weights

		log.Info().
			Str("regime", r.String()).
			Str("candidate", rr.Best).
			Float64("accuracy", best.Accuracy).
			Float64("improvement", rr.Improvement).
			Int("samples", rr.Samples).
			Msg("regime weights trained")
	}

	if err := report.Weights.Validate(); err != nil {
		return Report{}, fmt.Errorf("trained weight map invalid: %w", err)
	}
	return report, nil
}

// evaluateRegime scores every candidate over the regime's samples. The first
// candidate to reach the top accuracy wins ties.
func (t *Trainer) evaluateRegime(r regime.Type, samples []sample) RegimeReport {
	rr := RegimeReport{
		Regime:  r,
		Samples: len(samples),
		Scores:  make([]CandidateScore, 0, len(t.candidates)),
	}

	bestIdx := 0
	for i, c := range t.candidates {
		correct := 0
		for _, s := range samples {
			sig, err := scoring.Score(s.features, c.Weights)
			if err != nil {
				continue
			}
			if sig.Direction == s.actual {
				correct++
			}
		}
		cs := CandidateScore{
			Name:     c.Name,
			Weights:  c.Weights,
			Correct:  correct,
			Samples:  len(samples),
			Accuracy: 100.0 * float64(correct) / float64(len(samples)),
		}
		rr.Scores = append(rr.Scores, cs)

		if cs.Accuracy > rr.Scores[bestIdx].Accuracy {
			bestIdx = i
		}
		if c.Name == "standard" {
			rr.Baseline = cs.Accuracy
		}
	}

	rr.Best = rr.Scores[bestIdx].Name
	rr.Improvement = rr.Scores[bestIdx].Accuracy - rr.Baseline
	return rr
}
