package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/docextract/internal/api/handlers"
	"github.com/nikhilbhutani/docextract/internal/api/middleware"
	"github.com/nikhilbhutani/docextract/internal/config"
)

type Router struct {
	mux     *chi.Mux
	cfg     config.ServerConfig
	uploads *handlers.UploadHandler
	health  *handlers.HealthHandler
	llm     *handlers.LLMHandler
	limiter *middleware.RateLimiter
	logger  *slog.Logger
}

func NewRouter(cfg config.ServerConfig, uploads *handlers.UploadHandler, health *handlers.HealthHandler, llmH *handlers.LLMHandler, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		mux:     chi.NewRouter(),
		cfg:     cfg,
		uploads: uploads,
		health:  health,
		llm:     llmH,
		logger:  logger,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(rt.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.AllowedOrigins))

	if rt.cfg.RateLimitRPS > 0 {
		rt.limiter = middleware.NewRateLimiter(rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
		r.Use(rt.limiter.Limit)
	}

	r.NotFound(handlers.NotFound)

	r.Get("/healthz", rt.health.Healthz)
	r.Get("/readyz", rt.health.Readyz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload-image", rt.uploads.UploadImage)
		r.Post("/upload-scanned-pdf", rt.uploads.UploadScannedPDF)
		r.Post("/v2/extract/{type}", rt.uploads.Extract)
		if rt.llm != nil {
			r.Get("/models", rt.llm.Models)
		}
	})

	return r
}

// Close releases background resources started by Setup.
func (rt *Router) Close() {
	if rt.limiter != nil {
		rt.limiter.Close()
	}
}
