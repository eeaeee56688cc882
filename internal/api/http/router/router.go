// Package router wires handlers and middleware into the HTTP mux.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/parakeep/parakeep-server/internal/api/http/handler"
	"github.com/parakeep/parakeep-server/internal/api/http/middleware"
	"github.com/parakeep/parakeep-server/internal/logger"
	"github.com/parakeep/parakeep-server/internal/model"
)

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router assembles handlers, middleware and routes.
type Router struct {
	authService     handler.AuthService
	particleService handler.ParticleService
	tokenService    middleware.TokenService
	contextManager  model.ContextManager
	db              Pinger
	corsOrigins     []string
	logger          *logger.Logger
}

// New creates a new Router instance.
func New(
	authService handler.AuthService,
	particleService handler.ParticleService,
	tokenService middleware.TokenService,
	contextManager model.ContextManager,
	db Pinger,
	corsOrigins []string,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:     authService,
		particleService: particleService,
		tokenService:    tokenService,
		contextManager:  contextManager,
		db:              db,
		corsOrigins:     corsOrigins,
		logger:          logger,
	}
}

// Register builds the chi mux with logging, CORS and per-route
// authentication. Login, registration and health stay public; every
// other route requires a bearer token.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokenService, r.contextManager, r.logger)

	authHandler := handler.NewAuth(r.authService, r.contextManager, r.logger)
	particleHandler := handler.NewParticle(r.particleService, r.contextManager, r.logger)

	mux := chi.NewRouter()
	mux.Use(logging.Handle)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Get("/health", r.health)

	mux.Route("/auth", func(mux chi.Router) {
		mux.Post("/token", authHandler.Login)
		mux.With(authenticate.Handle).Post("/logout", authHandler.Logout)
	})

	mux.Route("/users", func(mux chi.Router) {
		mux.Post("/register", authHandler.Register)
		mux.With(authenticate.Handle).Get("/me", authHandler.Me)
	})

	mux.Route("/particles", func(mux chi.Router) {
		mux.Use(authenticate.Handle)
		mux.Post("/", particleHandler.Create)
		mux.Get("/", particleHandler.List)
		mux.Get("/stats/summary", particleHandler.Stats)
		mux.Get("/{id}", particleHandler.Get)
		mux.Put("/{id}", particleHandler.Update)
		mux.Delete("/{id}", particleHandler.Delete)
	})

	return mux
}

type healthResponse struct {
	Status         string `json:"status"`
	Database       string `json:"database"`
	ResponseTimeMS int64  `json:"response_time_ms"`
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	start := time.Now()

	status := http.StatusOK
	response := healthResponse{Status: "ok", Database: "ok"}

	if err := r.db.Ping(req.Context()); err != nil {
		r.logger.Error("Health check: database unreachable",
			"error", err.Error())
		status = http.StatusServiceUnavailable
		response.Status = "degraded"
		response.Database = "unreachable"
	}
	response.ResponseTimeMS = time.Since(start).Milliseconds()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
