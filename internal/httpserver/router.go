package httpserver

import (
	"net/http"
	"time"

	"lv-paperledger/internal/auth"
	"lv-paperledger/internal/health"
	"lv-paperledger/internal/orders"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	OrderHandler *orders.Handler
	AuthService  *auth.Service
	WSHandler    http.Handler
	Origin       string
	// Health is optional; without it /health always answers 200.
	Health *health.Handler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := d.Origin
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(SecurityHeaders)
	r.Use(newRateLimiter(10, 30).Middleware)

	if d.Health != nil {
		r.Get("/health", d.Health.Get)
		r.Get("/health/live", d.Health.Live)
		r.Get("/health/ready", d.Health.Ready)
		r.Get("/metrics", d.Health.Metrics)
	} else {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}
	r.Route("/v1", func(r chi.Router) {
		if d.WSHandler != nil {
			r.Get("/ws", d.WSHandler.ServeHTTP)
		}
		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Post("/orders", withAccount(d.OrderHandler.Place))
			r.Get("/account", withAccount(d.OrderHandler.Account))
			r.Get("/positions", withAccount(d.OrderHandler.Positions))
			r.Get("/transactions", withAccount(d.OrderHandler.Transactions))
		})
	})
	return r
}

// NewServer wraps the router with the timeouts the API runs with.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
