// Package api serves a running simulation over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/deepfake-battle/internal/engine"
	"github.com/talgya/deepfake-battle/internal/persistence"
	"github.com/talgya/deepfake-battle/internal/telemetry"
)

// Server serves the live model and the run archive over HTTP.
type Server struct {
	Eng      *engine.Engine
	DB       *persistence.DB     // Optional run archive
	Metrics  *telemetry.Registry // Optional; enables /metrics
	Hub      *Hub
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// NewModel builds the fresh model installed by POST /api/v1/reset.
	NewModel func() (engine.Model, error)

	// AdminLimiter throttles the POST endpoints. Nil uses 60 per minute.
	AdminLimiter *RateLimiter
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	if s.Hub == nil {
		s.Hub = NewHub()
	}
	limiter := s.AdminLimiter
	if limiter == nil {
		limiter = NewRateLimiter(60, time.Minute)
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return s.adminOnly(RateLimitMiddleware(limiter, h))
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.instrument("/api/v1/status", s.handleStatus))
	mux.HandleFunc("/api/v1/series", s.instrument("/api/v1/series", s.handleSeries))
	mux.HandleFunc("/api/v1/battles", s.instrument("/api/v1/battles", s.handleBattles))
	mux.HandleFunc("/api/v1/events", s.instrument("/api/v1/events", s.handleEvents))
	mux.HandleFunc("/api/v1/network", s.instrument("/api/v1/network", s.handleNetwork))
	mux.HandleFunc("/api/v1/runs", s.instrument("/api/v1/runs", s.handleRuns))
	mux.HandleFunc("/api/v1/runs/", s.instrument("/api/v1/runs/{id}", s.handleRunDetail))

	// Live step stream.
	mux.HandleFunc("/api/v1/ws", s.handleWS)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/step", s.instrument("/api/v1/step", admin(s.handleStep)))
	mux.HandleFunc("/api/v1/speed", s.instrument("/api/v1/speed", admin(s.handleSpeed)))
	mux.HandleFunc("/api/v1/reset", s.instrument("/api/v1/reset", admin(s.handleReset)))
	mux.HandleFunc("/api/v1/snapshot", s.instrument("/api/v1/snapshot", admin(s.handleSnapshot)))

	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics.Handler())
	}

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine. The returned server is
// used for shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "metrics", s.Metrics != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no DEEPFAKESIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency under a fixed route label.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	if s.Metrics == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.Metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start))
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// queryLimit parses ?limit=, falling back to def outside 1..max.
func queryLimit(r *http.Request, def, ceiling int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= ceiling {
			return n
		}
	}
	return def
}
