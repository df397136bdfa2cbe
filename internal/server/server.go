package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/petpals/internal/engine"
	"github.com/dukerupert/petpals/internal/handler"
	"github.com/dukerupert/petpals/internal/middleware"
	ws "github.com/dukerupert/petpals/internal/websocket"
)

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
}

type Server struct {
	engines     *engine.Registry
	hub         *ws.Hub
	petH        *handler.PetHandler
	rateLimiter *middleware.RateLimiter
	opts        Options
	logger      *slog.Logger
}

func New(engines *engine.Registry, hub *ws.Hub, limiter *middleware.RateLimiter, opts Options, logger *slog.Logger) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 120
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	return &Server{
		engines:     engines,
		hub:         hub,
		petH:        handler.NewPetHandler(engines, logger.With("component", "pet")),
		rateLimiter: limiter,
		opts:        opts,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no user required)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	limited := middleware.RateLimit(s.rateLimiter, middleware.UserOrIP, s.opts.RateLimit, s.opts.RateWindow)
	outerMux.Handle("/", middleware.RequireUser(limited(protectedMux)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.engines.Sessions(),
		"clients":  s.hub.ClientCount(),
	})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// User-level routes
	mux.HandleFunc("GET /api/me", s.petH.Me)
	mux.HandleFunc("GET /api/level", s.petH.UserLevel)
	mux.HandleFunc("GET /api/period", s.petH.Period)
	mux.HandleFunc("GET /api/streak", s.petH.Streak)
	mux.HandleFunc("GET /api/streak/hearts", s.petH.Hearts)
	mux.HandleFunc("POST /api/purchases", s.petH.Purchase)

	// Pet routes
	mux.HandleFunc("GET /api/pets", s.petH.List)
	mux.HandleFunc("POST /api/pets", s.petH.Adopt)
	mux.HandleFunc("GET /api/pets/{id}", s.petH.Get)
	mux.HandleFunc("PUT /api/pets/{id}", s.petH.Rename)
	mux.HandleFunc("GET /api/pets/{id}/mood", s.petH.Mood)
	mux.HandleFunc("GET /api/pets/{id}/quest", s.petH.Quest)
	mux.HandleFunc("GET /api/pets/{id}/sleep", s.petH.Sleep)
	mux.HandleFunc("GET /api/pets/{id}/level", s.petH.PetLevel)
	mux.HandleFunc("POST /api/pets/{id}/feed", s.petH.Feed)
	mux.HandleFunc("POST /api/pets/{id}/coins", s.petH.Earn)
	mux.HandleFunc("POST /api/pets/{id}/interact", s.petH.Interact)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.opts.AllowedOrigins, s.logger.With("component", "websocket")))
}
