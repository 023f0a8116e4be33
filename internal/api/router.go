package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/baharbilginay/execution-engine/internal/metrics"
)

// Router builds the chi router with the full API surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"execution-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for per-account event streams.
		r.Get("/ws", s.hub.HandleWS)

		// Order submission and lifecycle.
		r.Post("/orders", s.SubmitOrder)
		r.Post("/orders/{orderID}/cancel", s.CancelOrder)
		r.Patch("/orders/{orderID}", s.EditOrder)

		// Account queries.
		r.Post("/accounts", s.CreateAccount)
		r.Post("/accounts/{accountID}/deposit", s.Deposit)
		r.Get("/accounts/{accountID}/balance", s.GetBalance)
		r.Get("/accounts/{accountID}/orders", s.ListOrders)
		r.Get("/accounts/{accountID}/positions", s.ListPositions)
		r.Get("/accounts/{accountID}/positions/{symbol}", s.GetPosition)
		r.Get("/accounts/{accountID}/trades", s.ListTrades)

		// Price feed.
		r.Get("/prices", s.ListPrices)
		r.Get("/prices/{symbol}", s.GetPrice)
		r.Put("/prices/{symbol}", s.SetPrice)
	})

	return r
}
