package log

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Progress reports completion of a counted operation at a bounded rate, so a
// 10k-symbol run does not produce 10k log lines.
type Progress struct {
	mu         sync.Mutex
	name       string
	total      int
	current    int
	started    time.Time
	lastReport time.Time
	interval   time.Duration
}

// NewProgress creates a reporter for total steps, logging at most once per
// second.
func NewProgress(name string, total int) *Progress {
	return &Progress{
		name:     name,
		total:    total,
		started:  time.Now(),
		interval: time.Second,
	}
}

// Step records n completed steps.
func (p *Progress) Step(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	if time.Since(p.lastReport) < p.interval && p.current < p.total {
		return
	}
	p.lastReport = time.Now()

	ev := log.Info().
		Str("op", p.name).
		Int("done", p.current).
		Int("total", p.total)
	if p.current > 0 && p.current < p.total {
		elapsed := time.Since(p.started)
		remaining := time.Duration(float64(elapsed) / float64(p.current) * float64(p.total-p.current))
		ev = ev.Dur("eta", remaining.Round(time.Second))
	}
	ev.Msg("progress")
}

// Done logs the final tally with the elapsed time.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	log.Info().
		Str("op", p.name).
		Int("done", p.current).
		Int("total", p.total).
		Dur("elapsed", time.Since(p.started).Round(time.Millisecond)).
		Msg("complete")
}
