// Package api provides the REST API for the Kestrel trading engine.
// It includes routing, handlers, and middleware.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/kestrel-trading/kestrel/broker"
	"github.com/kestrel-trading/kestrel/config"
	"github.com/kestrel-trading/kestrel/realtime"
	"github.com/kestrel-trading/kestrel/risk"
	"github.com/kestrel-trading/kestrel/strategies"
	"github.com/kestrel-trading/kestrel/telemetry"
	"github.com/kestrel-trading/kestrel/tracing"
)

// NewRouter creates and configures the main HTTP router.
//
// Args:
//   - cfg: Application configuration
//   - registry: Strategy registry
//   - simBroker: Simulated broker backing balance/position/order routes
//   - portfolio: Per-strategy portfolio view
//   - riskEngine: Risk engine gating every manually-placed signal
//   - wsManager: WebSocket manager for real-time updates (optional)
//
// Returns:
//   - http.Handler: The configured router
func NewRouter(
	cfg *config.Config,
	registry *strategies.Registry,
	simBroker *broker.SimBroker,
	portfolio *broker.StrategyPortfolio,
	riskEngine *risk.RiskEngine,
	wsManager *realtime.WebSocketManager,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(TraceMiddleware)
	r.Use(middleware.RealIP)
	r.Use(zerologLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Rate limiting - prevent abuse
	// Global: 100 requests per minute per IP (protects against basic DoS)
	r.Use(httprate.LimitByIP(100, 1*time.Minute))
	// Burst protection: 20 requests per second per IP
	r.Use(httprate.LimitByIP(20, 1*time.Second))

	// Request body size limit - prevent memory exhaustion attacks
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, 1048576)
			next.ServeHTTP(w, r)
		})
	})

	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy", "default-src 'self'")
			next.ServeHTTP(w, r)
		})
	})

	// CORS middleware for frontend
	r.Use(newCORSMiddleware(cfg))

	h := NewHandler(registry, cfg, simBroker, portfolio, riskEngine)

	// Public routes
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "kestrel-api",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	// WebSocket endpoint (only if wsManager is available)
	if wsManager != nil {
		r.Get("/ws", wsManager.HandleWebSocket)
	}

	// Health check and Prometheus metrics are unauthenticated.
	r.Get("/health", h.HealthHandler)
	r.Handle("/metrics", telemetry.Handler())

	// API v1 routes (protected)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg))
		r.Use(AuditMiddleware)

		r.Route("/strategies", func(r chi.Router) {
			r.Get("/", h.ListStrategiesHandler)
			r.Get("/{id}", h.GetStrategyHandler)
			r.Get("/{id}/positions", h.GetStrategyPositionsHandler)
			r.Get("/{id}/profit", h.GetStrategyProfitHandler)
			r.Get("/{id}/pending", h.GetStrategyPendingHandler)
			r.Post("/{id}/close", h.CloseStrategyPositionHandler)
			r.Post("/{id}/liquidate", h.LiquidateStrategyHandler)
			r.Delete("/{id}/orders/{orderID}", h.CancelOrderHandler)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/balance", h.GetBalanceHandler)
			r.Get("/positions", h.GetPositionsHandler)
			r.Get("/summary", h.GetPortfolioSummaryHandler)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.PlaceOrderHandler)
		})

		r.Route("/risk", func(r chi.Router) {
			r.Get("/state", h.GetRiskStateHandler)
			r.Put("/state", h.SetRiskStateHandler)
		})

		r.Route("/config", func(r chi.Router) {
			r.Get("/", h.GetConfigHandler)
			r.Get("/validation", h.GetConfigValidationHandler)
		})

		r.Get("/runtime", h.MetricsHandler)

		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			status := "running"
			if cfg.IsDryRun() {
				status = "dry_run"
			}
			writeJSON(w, http.StatusOK, map[string]string{
				"mode":   status,
				"status": "active",
			})
		})
	})

	return r
}

// zerologLogger is middleware that logs requests using zerolog.
// Includes the trace_id from context for request correlation.
func zerologLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger := tracing.Logger(r.Context())
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}

// newCORSMiddleware creates CORS middleware with origin whitelisting.
func newCORSMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			for _, allowedOrigin := range cfg.AllowedOrigins {
				if origin == allowedOrigin {
					allowed = true
					break
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Kestrel-API-Key")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == "OPTIONS" {
				if allowed {
					w.WriteHeader(http.StatusOK)
				} else {
					w.WriteHeader(http.StatusForbidden)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
