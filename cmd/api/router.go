package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crucial707/userdir/internal/config"
	"github.com/crucial707/userdir/internal/handlers"
	"github.com/crucial707/userdir/internal/middleware"
	"github.com/crucial707/userdir/internal/repo"
)

// newRouter wires repositories, handlers, and the middleware chain.
func newRouter(db *sql.DB, cfg config.Config) http.Handler {
	userRepo := repo.NewUserRepo(db)
	auditRepo := repo.NewAuditRepo(db)

	secret := []byte(cfg.JWTSecret)
	userHandler := &handlers.UserHandler{Repo: userRepo, AuditRepo: auditRepo}
	authHandler := &handlers.AuthHandler{
		UserRepo: userRepo,
		Secret:   secret,
		TokenTTL: time.Duration(cfg.JWTExpireHours) * time.Hour,
	}
	auditHandler := &handlers.AuditHandler{Repo: auditRepo}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			handlers.JSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	loginLimiter := middleware.LoginRateLimiter()
	r.Group(func(r chi.Router) {
		r.Use(loginLimiter.Middleware)
		r.Post("/auth/login", authHandler.Login)
	})

	// Registration is open to anonymous callers. A token, when sent,
	// still has to verify so the audit trail can name the actor.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(userRepo, secret))
		r.Post("/users", userHandler.CreateUser)
	})

	// Everything else about accounts requires a valid token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(userRepo, secret))
		r.Get("/auth/me", authHandler.Me)
		r.Get("/users", userHandler.ListUsers)
		r.Get("/users/{id}", userHandler.GetUser)
		r.Put("/users/{id}", userHandler.UpdateUser)
		r.Delete("/users/{id}", userHandler.DeleteUser)
		r.Get("/audit", auditHandler.ListAudit)
	})

	return r
}
