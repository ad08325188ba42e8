// Package http serves the read-only monitor: health, metrics, latest
// signals, and a websocket signal stream. It never mutates engine state.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/signalrun/internal/data/cache"
)

// ServerConfig holds the listener parameters.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
}

// Server is the monitor HTTP server.
type Server struct {
	config  ServerConfig
	router  *mux.Router
	server  *http.Server
	metrics *MetricsRegistry
	hub     *Hub
	signals *cache.SignalStore
	started time.Time
}

// NewServer wires routes, middleware, and the websocket hub.
func NewServer(config ServerConfig, metrics *MetricsRegistry, signals *cache.SignalStore) *Server {
	if metrics == nil {
		metrics = NewMetricsRegistry()
	}
	s := &Server{
		config:  config,
		router:  mux.NewRouter(),
		metrics: metrics,
		hub:     NewHub(metrics),
		signals: signals,
		started: time.Now().UTC(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Hub returns the websocket hub so the scanner can broadcast into it.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Metrics returns the server's metrics registry.
func (s *Server) Metrics() *MetricsRegistry {
	return s.metrics
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/signals/latest", s.handleLatestSignals).Methods(http.MethodGet)
	s.router.HandleFunc("/signals/{symbol}", s.handleSignal).Methods(http.MethodGet)
	s.router.Handle("/ws/signals", s.hub)
}

// Start serves until the context ends, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.config.Addr).Msg("monitor server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	UptimeSec int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   s.config.Version,
		UptimeSec: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleLatestSignals(w http.ResponseWriter, r *http.Request) {
	latest := s.signals.Latest()
	symbols := make([]string, 0, len(latest))
	for sym := range latest {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	out := make([]interface{}, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, latest[sym])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(out),
		"signals": out,
	})
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	sig, ok := s.signals.Get(symbol)
	if !ok {
		s.metrics.CacheMisses.Inc()
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no signal for symbol " + symbol,
		})
		return
	}
	s.metrics.CacheHits.Inc()
	writeJSON(w, http.StatusOK, sig)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
