package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/postpilothq/postpilot/internal/api/stream"
	"github.com/postpilothq/postpilot/internal/api/ws"
	"github.com/postpilothq/postpilot/internal/chat"
	"github.com/postpilothq/postpilot/internal/config"
	"github.com/postpilothq/postpilot/internal/credentials"
	"github.com/postpilothq/postpilot/internal/pipeline"
	"github.com/postpilothq/postpilot/internal/server/middleware"
	"github.com/postpilothq/postpilot/internal/store/postgres"
	redisstore "github.com/postpilothq/postpilot/internal/store/redis"
)

// healthTimeout bounds the backing-store pings on /healthz.
const healthTimeout = 2 * time.Second

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	store         *postgres.Store
	pubsub        *redisstore.PubSub
	limiterCancel context.CancelFunc
}

// New creates a Server with all routes wired.
func New(cfg *config.Config, store *postgres.Store, pubsub *redisstore.PubSub, runner *pipeline.Orchestrator, chats *chat.Service, creds *credentials.Manager) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	hub := ws.NewHub(pubsub)
	streamHandler := stream.NewHandler(chats)

	// The rate limiter's cleanup goroutine stops on Shutdown.
	limiterCtx, limiterCancel := context.WithCancel(context.Background())

	s := &Server{
		router:        router,
		store:         store,
		pubsub:        pubsub,
		limiterCancel: limiterCancel,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// REST API: identity plus per-user rate limiting over huma handlers.
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity())
		r.Use(middleware.RateLimit(limiterCtx, 100, 200))

		apiConfig := huma.DefaultConfig("PostPilot API", "1.0.0")
		apiConfig.Servers = []*huma.Server{
			{URL: "/api/v1"},
		}
		api := humachi.New(r, apiConfig)
		registerAPIRoutes(api, runner, chats, creds, store)
	})

	// ndjson streaming routes.
	router.Route("/stream", func(r chi.Router) {
		r.Use(middleware.Identity())
		r.Use(middleware.RateLimit(limiterCtx, 100, 200))
		registerStreamRoutes(r, streamHandler)
	})

	// WebSocket routes.
	router.Route("/ws", func(r chi.Router) {
		r.Use(middleware.Identity())
		registerWSRoutes(r, hub)
	})

	// Health check (unauthenticated).
	router.Get("/healthz", s.handleHealthz)

	return s
}

// handleHealthz reports liveness of the server and its backing stores.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable","detail":"database unreachable"}`))
		return
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable","detail":"redis unreachable"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiterCancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
