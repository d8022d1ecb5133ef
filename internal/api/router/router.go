package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/carehub/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/carehub/internal/http/middleware"
	"github.com/wolfman30/carehub/pkg/logging"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Flows              *handlers.FlowsHandler
	Bookings           *handlers.BookingsHandler
	Chat               *handlers.ChatHandler
	ProviderDashboard  *handlers.ProviderDashboardHandler
	ProviderJWTSecret  string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
	HealthChecks       map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Patient API, scoped to the caller's user id.
	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(user chi.Router) {
			user.Use(requireUserID)
			if cfg.RateLimiter != nil {
				user.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
			}
			if cfg.Flows != nil {
				cfg.Flows.Routes(user)
			}
			if cfg.Bookings != nil {
				cfg.Bookings.Routes(user)
			}
			if cfg.Chat != nil {
				cfg.Chat.Routes(user)
			}
		})

		if cfg.ProviderDashboard != nil && cfg.ProviderJWTSecret != "" {
			v1.Route("/provider", func(provider chi.Router) {
				provider.Use(httpmiddleware.ProviderJWT(cfg.ProviderJWTSecret))
				cfg.ProviderDashboard.Routes(provider)
			})
		}
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		resp := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				resp["status"] = "degraded"
				resp[name] = err.Error()
				continue
			}
			resp[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
