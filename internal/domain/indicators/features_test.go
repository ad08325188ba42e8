package indicators

import (
	"testing"
	"time"

	"github.com/sawpanic/signalrun/internal/domain/bars"
)

func syntheticBars(n int) []bars.Bar {
	seq := make([]bars.Bar, n)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := range seq {
		// Mild sawtooth so every indicator sees both gains and losses.
		move := 0.4
		if i%3 == 0 {
			move = -0.3
		}
		price += move
		seq[i] = bars.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price - move,
			High:      price + 0.5,
			Low:       price - 0.5,
			Close:     price,
			Volume:    1000 + float64(i),
		}
	}
	return seq
}

func TestExtractorWarmup(t *testing.T) {
	ex := NewExtractor(ExtractorConfig{})
	seq := syntheticBars(80)
	features, err := ex.Extract(seq)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(features) != len(seq) {
		t.Fatalf("Extract() produced %d feature sets for %d bars", len(features), len(seq))
	}

	warmup := DefaultExtractorConfig().Warmup
	for i, fs := range features {
		scorable := fs.Scorable()
		if i+1 < warmup && scorable {
			t.Errorf("bar %d scorable inside warm-up window", i)
		}
		if i+1 >= warmup && !scorable {
			t.Errorf("bar %d not scorable past warm-up: missing %v", i, fs.Missing)
		}
	}
}

func TestExtractorAlignment(t *testing.T) {
	ex := NewExtractor(ExtractorConfig{})
	seq := syntheticBars(60)
	features, err := ex.Extract(seq)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	for i := range seq {
		if !features[i].Timestamp.Equal(seq[i].Timestamp) {
			t.Errorf("feature %d timestamp %v, want %v", i, features[i].Timestamp, seq[i].Timestamp)
		}
		if features[i].Close != seq[i].Close {
			t.Errorf("feature %d close %f, want %f", i, features[i].Close, seq[i].Close)
		}
	}
}

func TestExtractorCausality(t *testing.T) {
	// The feature set at bar t must not change when later bars are appended.
	ex := NewExtractor(ExtractorConfig{})
	seq := syntheticBars(70)

	full, err := ex.Extract(seq)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	prefix, err := ex.Extract(seq[:60])
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	at := 59
	fullVals := full[at].Values()
	prefixVals := prefix[at].Values()
	for name, v := range prefixVals {
		if fullVals[name] != v {
			t.Errorf("%s at bar %d changed after appending bars: %f vs %f", name, at, v, fullVals[name])
		}
	}
}

func TestExtractorRejectsUnorderedBars(t *testing.T) {
	ex := NewExtractor(ExtractorConfig{})
	seq := syntheticBars(10)
	seq[4].Timestamp = seq[7].Timestamp
	if _, err := ex.Extract(seq); err == nil {
		t.Error("Extract() accepted non-monotonic timestamps, want error")
	}
}

func TestExtractLatest(t *testing.T) {
	ex := NewExtractor(ExtractorConfig{})
	seq := syntheticBars(80)

	fs, err := ex.ExtractLatest(seq)
	if err != nil {
		t.Fatalf("ExtractLatest() error = %v", err)
	}
	if !fs.Scorable() {
		t.Errorf("latest feature set not scorable: missing %v", fs.Missing)
	}

	if _, err := ex.ExtractLatest(seq[:20]); err == nil {
		t.Error("ExtractLatest() accepted short history, want error")
	}
}
