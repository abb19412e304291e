package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/fertility-intake-platform/internal/http/middleware"
	"github.com/wolfman30/fertility-intake-platform/internal/intake"
	"github.com/wolfman30/fertility-intake-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	IntakeHandler      *intake.Handler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
	// RateLimitPerSec caps per-IP request rate on the patient endpoints;
	// zero disables limiting.
	RateLimitPerSec float64
	RateLimitBurst  int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Patient-facing endpoints.
	r.Group(func(public chi.Router) {
		if cfg.RateLimitPerSec > 0 {
			public.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst))
		}
		public.Route("/intake", func(r chi.Router) {
			r.Post("/sessions", cfg.IntakeHandler.StartSession)
			r.Post("/message", cfg.IntakeHandler.Message)
			r.Post("/upload", cfg.IntakeHandler.Upload)
			r.Get("/sessions/{sessionID}", cfg.IntakeHandler.State)
			r.Delete("/sessions/{sessionID}", cfg.IntakeHandler.EndSession)
		})
	})

	// Clinic staff endpoints.
	r.Group(func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		admin.Route("/admin/intake", func(r chi.Router) {
			r.Get("/records", cfg.IntakeHandler.ListRecords)
			r.Get("/records/{sessionID}", cfg.IntakeHandler.GetRecord)
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
