// Package source abstracts where bar histories come from and guards every
// provider with a circuit breaker and a rate limiter so one flaky store
// degrades instead of failing a whole multi-symbol run.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/signalrun/internal/data/csv"
	"github.com/sawpanic/signalrun/internal/data/postgres"
	"github.com/sawpanic/signalrun/internal/domain/bars"
	"github.com/sawpanic/signalrun/internal/net/ratelimit"
)

// BarSource supplies ordered bar histories per instrument.
type BarSource interface {
	Name() string
	Symbols(ctx context.Context) ([]string, error)
	Bars(ctx context.Context, symbol string) ([]bars.Bar, error)
}

// CSVSource serves histories from a directory of CSV files, loaded once.
type CSVSource struct {
	dir       string
	histories map[string][]bars.Bar
}

// NewCSVSource loads every instrument file in dir eagerly.
func NewCSVSource(dir string) (*CSVSource, error) {
	histories, err := csv.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return &CSVSource{dir: dir, histories: histories}, nil
}

func (s *CSVSource) Name() string { return "csv:" + s.dir }

func (s *CSVSource) Symbols(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(s.histories))
	for sym := range s.histories {
		out = append(out, sym)
	}
	return out, nil
}

func (s *CSVSource) Bars(ctx context.Context, symbol string) ([]bars.Bar, error) {
	seq, ok := s.histories[symbol]
	if !ok {
		return nil, fmt.Errorf("no bars for symbol %s in %s", symbol, s.dir)
	}
	return seq, nil
}

// StoreSource serves histories from the Postgres bar repository.
type StoreSource struct {
	repo *postgres.BarRepo
}

// NewStoreSource wraps a bar repository as a BarSource.
func NewStoreSource(repo *postgres.BarRepo) *StoreSource {
	return &StoreSource{repo: repo}
}

func (s *StoreSource) Name() string { return "postgres" }

func (s *StoreSource) Symbols(ctx context.Context) ([]string, error) {
	return s.repo.Symbols(ctx)
}

func (s *StoreSource) Bars(ctx context.Context, symbol string) ([]bars.Bar, error) {
	return s.repo.LoadBars(ctx, symbol, time.Time{}, time.Time{})
}

// Guarded wraps a BarSource with a circuit breaker and a per-source rate
// limiter.
type Guarded struct {
	inner   BarSource
	breaker *gobreaker.CircuitBreaker
	limiter *ratelimit.Limiter
}

// NewGuarded builds the guard. The breaker opens after five consecutive
// failures and probes again after 30 seconds.
func NewGuarded(inner BarSource, limiter *ratelimit.Limiter) *Guarded {
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("source", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("bar source breaker state change")
		},
	}
	return &Guarded{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: limiter,
	}
}

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) Symbols(ctx context.Context) ([]string, error) {
	if err := g.limiter.Wait(ctx, g.inner.Name()); err != nil {
		return nil, err
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Symbols(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("symbols from %s: %w", g.inner.Name(), err)
	}
	return out.([]string), nil
}

func (g *Guarded) Bars(ctx context.Context, symbol string) ([]bars.Bar, error) {
	if err := g.limiter.Wait(ctx, g.inner.Name()); err != nil {
		return nil, err
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Bars(ctx, symbol)
	})
	if err != nil {
		return nil, fmt.Errorf("bars for %s from %s: %w", symbol, g.inner.Name(), err)
	}
	return out.([]bars.Bar), nil
}

// LoadAll fetches every instrument's history through the source.
func LoadAll(ctx context.Context, src BarSource) (map[string][]bars.Bar, error) {
	symbols, err := src.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]bars.Bar, len(symbols))
	for _, sym := range symbols {
		seq, err := src.Bars(ctx, sym)
		if err != nil {
			log.Warn().Err(err).Str("symbol", sym).Msg("skipping symbol")
			continue
		}
		out[sym] = seq
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no histories loadable from %s", src.Name())
	}
	return out, nil
}
