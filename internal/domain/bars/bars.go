// Package bars defines the OHLCV bar type and sequence validation shared by
// the feature extractor, the simulator, and the data loaders.
package bars

import (
	"fmt"
	"time"
)

// Bar represents a single OHLCV price bar. Bars are immutable once produced.
type Bar struct {
	Timestamp time.Time `json:"timestamp" db:"ts"`
	Open      float64   `json:"open" db:"open"`
	High      float64   `json:"high" db:"high"`
	Low       float64   `json:"low" db:"low"`
	Close     float64   `json:"close" db:"close"`
	Volume    float64   `json:"volume" db:"volume"`
}

// ValidateSequence checks that a bar sequence is strictly ascending by
// timestamp with no duplicates. A malformed sequence is a hard failure: the
// caller must abort the run rather than reorder or deduplicate.
func ValidateSequence(seq []Bar) error {
	for i := 1; i < len(seq); i++ {
		prev, cur := seq[i-1].Timestamp, seq[i].Timestamp
		if cur.Equal(prev) {
			return fmt.Errorf("duplicate bar timestamp %s at index %d", cur.Format(time.RFC3339), i)
		}
		if cur.Before(prev) {
			return fmt.Errorf("non-monotonic bar timestamp %s at index %d (previous %s)",
				cur.Format(time.RFC3339), i, prev.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes extracts the close prices from a bar sequence.
func Closes(seq []Bar) []float64 {
	out := make([]float64, len(seq))
	for i, b := range seq {
		out[i] = b.Close
	}
	return out
}
