package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/ragservice/internal/api/handlers"
	"github.com/nikhilbhutani/ragservice/internal/api/middleware"
	"github.com/nikhilbhutani/ragservice/internal/config"
)

const Version = "1.0.0"

// Services are what the HTTP layer calls into. Queue and the checks are optional.
type Services struct {
	Ingester handlers.Ingester
	Answerer handlers.Answerer
	Queue    handlers.Enqueuer
	Checks   map[string]handlers.Check
	MaxTopK  int
}

type Router struct {
	mux     *chi.Mux
	cfg     config.ServerConfig
	svc     Services
	limiter *middleware.RateLimiter
}

func NewRouter(cfg config.ServerConfig, svc Services) *Router {
	return &Router{
		mux:     chi.NewRouter(),
		cfg:     cfg,
		svc:     svc,
		limiter: middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

// Limiter exposes the rate limiter so the caller can run its sweeper.
func (rt *Router) Limiter() *middleware.RateLimiter {
	return rt.limiter
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	health := handlers.NewHealthHandler(Version, rt.svc.Checks)
	r.Get("/", health.Root)
	r.Get("/health", health.Health)
	r.Get("/readyz", health.Readyz)

	docH := handlers.NewDocumentHandler(rt.svc.Ingester, rt.svc.Queue)
	ragH := handlers.NewRAGHandler(rt.svc.Answerer, rt.svc.MaxTopK)

	r.Group(func(r chi.Router) {
		r.Use(rt.limiter.Limit)
		r.Use(middleware.Deadline(rt.cfg.RequestTimeout))

		r.Post("/documents", docH.Add)
		r.Post("/documents/async", docH.AddAsync)
		r.Post("/query", ragH.Query)
	})

	return r
}
