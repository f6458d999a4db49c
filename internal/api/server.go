// Package api is the tournament monitor: a read-only HTTP surface with
// live standings, a recent-game ring, a websocket event feed, Prometheus
// metrics, and pprof. It hangs off a running tournament as an Observer
// and never touches engine state directly.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"skeld/internal/game"
	"skeld/internal/tournament"
)

// GameSummary is the ring entry served by /api/games and pushed to
// websocket subscribers when a game completes.
type GameSummary struct {
	Index      int               `json:"index"`
	GameID     string            `json:"game_id"`
	Winner     string            `json:"winner"`
	Cause      string            `json:"cause"`
	FinalRound int               `json:"final_round"`
	DurationMS int64             `json:"duration_ms"`
	Teams      map[string]string `json:"teams,omitempty"`
	FinishedAt time.Time         `json:"finished_at"`
}

// ServerConfig configures the monitor. Zero values mean ":8080", a
// no-op logger, default rate limits, any origin, and a 32-game ring.
type ServerConfig struct {
	// Addr is the listen address used by Start.
	Addr string

	// Logger receives lifecycle and client logs.
	Logger *zap.Logger

	// RateLimiter optionally injects a pre-built limiter. Tests use this
	// to raise the limits without rebuilding the router.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is used when RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the allowed CORS origins. The monitor is
	// read-only, so the default allows any origin.
	CORSOrigins []string

	// RecentGames caps the /api/games ring.
	RecentGames int

	// DisableRequestLog turns off the chi request logger. Useful for
	// benchmarks and quiet tests.
	DisableRequestLog bool
}

// Server is the monitor server. It implements tournament.Observer; wire
// it into the runner's Options to receive game completions.
//
// Construction starts no listeners and no hub goroutine, so tests can
// drive Router through httptest. Serve (or Start) launches the hub
// loop; Shutdown reverses everything.
type Server struct {
	cfg     ServerConfig
	logger  *zap.Logger
	hub     *Hub
	limiter *IPRateLimiter
	router  *chi.Mux
	httpSrv *http.Server

	mu        sync.Mutex
	standings []tournament.Standing
	recent    []GameSummary
	games     int
}

// NewServer builds the monitor around its router.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.RecentGames <= 0 {
		cfg.RecentGames = 32
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		rlCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		limiter = NewIPRateLimiter(rlCfg)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		hub:     NewHub(logger),
		limiter: limiter,
	}
	s.router = s.buildRouter()
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	// Middleware order matters: identify the client, rate-limit before
	// doing any real work, then CORS.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if !s.cfg.DisableRequestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(s.limiter.Middleware)

	origins := s.cfg.CORSOrigins
	if origins == nil {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/standings", s.handleStandings)
		r.Get("/games", s.handleGames)
	})
	r.Get("/ws", s.hub.HandleWebSocket)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/debug", middleware.Profiler())

	return r
}

// Router returns the handler for use with httptest.
//
// Example:
//
//	srv := api.NewServer(api.ServerConfig{DisableRequestLog: true})
//	ts := httptest.NewServer(srv.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/standings")
func (s *Server) Router() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve starts the hub loop and serves HTTP on ln until Shutdown, which
// makes it return nil. Tests pass a listener on 127.0.0.1:0.
func (s *Server) Serve(ln net.Listener) error {
	s.hub.Start()
	s.logger.Info("monitor listening", zap.String("addr", ln.Addr().String()))
	if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops HTTP intake, drops websocket clients, and stops the
// background workers. Safe to call on a server that never started.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)
	s.hub.Stop()
	s.limiter.Stop()
	return err
}

// GameCompleted implements tournament.Observer: snapshot the new
// standings, file the game into the ring, refresh the per-team Elo
// gauges, and push the completion to websocket subscribers.
func (s *Server) GameCompleted(index int, result *game.Result, standings []tournament.Standing) {
	summary := GameSummary{
		Index:      index,
		GameID:     result.GameID,
		Winner:     result.Winner,
		Cause:      result.Cause,
		FinalRound: result.FinalRound,
		DurationMS: result.DurationMS,
		Teams:      result.TeamMapping,
		FinishedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.standings = standings
	s.recent = append(s.recent, summary)
	if len(s.recent) > s.cfg.RecentGames {
		s.recent = s.recent[1:]
	}
	s.games++
	s.mu.Unlock()

	for _, st := range standings {
		UpdateTeamElo(st.Team, st.Elo)
	}
	s.hub.Broadcast("game:completed", map[string]interface{}{
		"game":      summary,
		"standings": standings,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	games := s.games
	s.mu.Unlock()
	writeJSON(w, map[string]interface{}{
		"status":     "ok",
		"games":      games,
		"ws_clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	standings := make([]tournament.Standing, len(s.standings))
	copy(standings, s.standings)
	s.mu.Unlock()
	writeJSON(w, standings)
}

// handleGames serves the ring newest first.
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	recent := make([]GameSummary, 0, len(s.recent))
	for i := len(s.recent) - 1; i >= 0; i-- {
		recent = append(recent, s.recent[i])
	}
	s.mu.Unlock()
	writeJSON(w, recent)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
