// Package cache stores recent scan output (latest signal per symbol) behind
// a byte-level cache with an in-memory default and an optional Redis backend.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/sawpanic/signalrun/internal/domain/scoring"
)

// Cache is a byte-level TTL cache.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte, ttl time.Duration)
}

type memory struct {
	mu sync.Mutex
	m  map[string]entry
}

type entry struct {
	b   []byte
	exp time.Time
}

// NewMemory returns the in-process cache.
func NewMemory() Cache { return &memory{m: make(map[string]entry)} }

// New selects the backend by address: empty means in-memory, anything else a
// Redis client pointed at that address.
func New(addr string) Cache {
	if addr == "" {
		return NewMemory()
	}
	return &redisCache{r: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *memory) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		return nil, false
	}
	return e.b, true
}

func (c *memory) Set(key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
}

type redisCache struct{ r *redis.Client }

func (r *redisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	v, err := r.r.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (r *redisCache) Set(key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = r.r.Set(ctx, key, val, ttl).Err()
}

// SignalStore keeps the latest signal per symbol on top of a Cache, plus the
// symbol roster so the monitor can enumerate without scanning keys.
type SignalStore struct {
	cache Cache
	ttl   time.Duration

	mu      sync.RWMutex
	symbols map[string]struct{}
}

// NewSignalStore wraps cache with signal-typed accessors.
func NewSignalStore(cache Cache, ttl time.Duration) *SignalStore {
	return &SignalStore{
		cache:   cache,
		ttl:     ttl,
		symbols: make(map[string]struct{}),
	}
}

// Put stores the latest signal for its symbol.
func (s *SignalStore) Put(sig scoring.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	s.cache.Set("signal:"+sig.Symbol, data, s.ttl)
	s.mu.Lock()
	s.symbols[sig.Symbol] = struct{}{}
	s.mu.Unlock()
	return nil
}

// Get returns the latest cached signal for symbol.
func (s *SignalStore) Get(symbol string) (scoring.Signal, bool) {
	data, ok := s.cache.Get("signal:" + symbol)
	if !ok {
		return scoring.Signal{}, false
	}
	var sig scoring.Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return scoring.Signal{}, false
	}
	return sig, true
}

// Latest returns every unexpired signal, keyed by symbol.
func (s *SignalStore) Latest() map[string]scoring.Signal {
	s.mu.RLock()
	symbols := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		symbols = append(symbols, sym)
	}
	s.mu.RUnlock()

	out := make(map[string]scoring.Signal, len(symbols))
	for _, sym := range symbols {
		if sig, ok := s.Get(sym); ok {
			out[sym] = sig
		}
	}
	return out
}
