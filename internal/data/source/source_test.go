package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sawpanic/signalrun/internal/domain/bars"
	"github.com/sawpanic/signalrun/internal/net/ratelimit"
)

type fakeSource struct {
	name  string
	fails int
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Symbols(ctx context.Context) ([]string, error) {
	return []string{"AAA"}, nil
}

func (f *fakeSource) Bars(ctx context.Context, symbol string) ([]bars.Bar, error) {
	f.calls++
	if f.calls <= f.fails {
		return nil, errors.New("store down")
	}
	return []bars.Bar{{Timestamp: time.Now(), Close: 100}}, nil
}

func TestGuardedPassesThrough(t *testing.T) {
	g := NewGuarded(&fakeSource{name: "ok"}, ratelimit.NewLimiter(100, 10))

	seq, err := g.Bars(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("Bars() error = %v", err)
	}
	if len(seq) != 1 {
		t.Errorf("Bars() returned %d bars, want 1", len(seq))
	}

	symbols, err := g.Symbols(context.Background())
	if err != nil {
		t.Fatalf("Symbols() error = %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "AAA" {
		t.Errorf("Symbols() = %v", symbols)
	}
}

func TestGuardedOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeSource{name: "flaky", fails: 1 << 30}
	g := NewGuarded(inner, ratelimit.NewLimiter(1000, 1000))

	for i := 0; i < 5; i++ {
		if _, err := g.Bars(context.Background(), "AAA"); err == nil {
			t.Fatal("failing source returned no error")
		}
	}
	callsAtTrip := inner.calls

	// Breaker is open now: requests fail fast without touching the source.
	if _, err := g.Bars(context.Background(), "AAA"); err == nil {
		t.Error("open breaker allowed a call through")
	}
	if inner.calls != callsAtTrip {
		t.Errorf("open breaker still reached the source (%d calls, want %d)", inner.calls, callsAtTrip)
	}
}

func TestGuardedHonorsContext(t *testing.T) {
	g := NewGuarded(&fakeSource{name: "slow"}, ratelimit.NewLimiter(0.001, 1))
	// Drain the single token.
	if _, err := g.Bars(context.Background(), "AAA"); err != nil {
		t.Fatalf("first call error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := g.Bars(ctx, "AAA"); err == nil {
		t.Error("rate-limited call did not respect context deadline")
	}
}

func TestLoadAllSkipsFailingSymbols(t *testing.T) {
	inner := &fakeSource{name: "once", fails: 1}
	histories, err := LoadAll(context.Background(), inner)
	if err == nil {
		// Single symbol failed once and LoadAll does not retry, so this
		// source yields nothing.
		t.Fatalf("LoadAll() = %v, want error for empty result", histories)
	}
}
