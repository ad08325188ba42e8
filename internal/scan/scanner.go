// Package scan produces the latest signal per instrument from a bar source
// and publishes it to the cache, the websocket hub, and the metrics
// registry.
package scan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/signalrun/internal/data/cache"
	"github.com/sawpanic/signalrun/internal/data/source"
	"github.com/sawpanic/signalrun/internal/domain/indicators"
	"github.com/sawpanic/signalrun/internal/domain/regime"
	"github.com/sawpanic/signalrun/internal/domain/scoring"
	httpiface "github.com/sawpanic/signalrun/internal/interfaces/http"
)

// Broadcaster receives each fresh signal. The websocket hub implements it.
type Broadcaster interface {
	Broadcast(sig scoring.Signal)
}

// Scanner scores the newest bar of every instrument a source offers.
type Scanner struct {
	src       source.BarSource
	extractor *indicators.Extractor
	selector  *regime.Selector
	store     *cache.SignalStore
	hub       Broadcaster
	metrics   *httpiface.MetricsRegistry
}

// New builds a scanner. hub and metrics may be nil for one-shot CLI use.
func New(src source.BarSource, selector *regime.Selector, store *cache.SignalStore,
	hub Broadcaster, metrics *httpiface.MetricsRegistry) *Scanner {
	return &Scanner{
		src:       src,
		extractor: indicators.NewExtractor(indicators.ExtractorConfig{}),
		selector:  selector,
		store:     store,
		hub:       hub,
		metrics:   metrics,
	}
}

// ScanOnce scores every instrument once and returns the signals sorted by
// symbol. Instruments with too little history are skipped, not fatal.
func (s *Scanner) ScanOnce(ctx context.Context) ([]scoring.Signal, error) {
	started := time.Now()

	symbols, err := s.src.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	sort.Strings(symbols)

	var signals []scoring.Signal
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sig, err := s.scanSymbol(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("skipping symbol")
			continue
		}
		signals = append(signals, sig)
	}

	if s.metrics != nil {
		s.metrics.ScansTotal.Inc()
		s.metrics.ScanDuration.Observe(time.Since(started).Seconds())
	}
	log.Info().Int("symbols", len(symbols)).Int("signals", len(signals)).
		Dur("elapsed", time.Since(started)).Msg("scan pass complete")
	return signals, nil
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string) (scoring.Signal, error) {
	seq, err := s.src.Bars(ctx, symbol)
	if err != nil {
		return scoring.Signal{}, err
	}

	fs, err := s.extractor.ExtractLatest(seq)
	if err != nil {
		return scoring.Signal{}, err
	}

	r := regime.Classify(fs.ADX, fs.ATRPercent)
	sig, err := scoring.Score(fs, s.selector.Select(r))
	if err != nil {
		return scoring.Signal{}, err
	}
	sig.Symbol = symbol

	if s.store != nil {
		if err := s.store.Put(sig); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("signal cache write failed")
		}
	}
	if s.hub != nil {
		s.hub.Broadcast(sig)
	}
	if s.metrics != nil {
		s.metrics.SignalsTotal.WithLabelValues(string(sig.Direction), sig.Regime.String()).Inc()
		s.metrics.ActiveRegime.WithLabelValues(symbol, sig.Regime.String()).Set(1)
	}
	return sig, nil
}

// Run scans on the interval until the context ends.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.ScanOnce(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("scan pass failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
