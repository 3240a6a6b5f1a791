package handler

import (
	"net/http"

	"github.com/academyportal/internal/config"
	"github.com/academyportal/internal/metrics"
	"github.com/academyportal/internal/middleware"
	"github.com/academyportal/internal/storage"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps — зависимости HTTP API. Cache и Metrics необязательны.
type Deps struct {
	Config   *config.Config
	Messages storage.MessageStore
	Users    storage.UserStore
	Cache    storage.RecipientCache
	Metrics  *metrics.Metrics
}

// NewRouter собирает REST API сервера сообщений.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	msgH := NewMessageHandler(d.Messages, d.Users, d.Metrics)
	userH := NewUserHandler(d.Users, d.Cache, cfg.CacheTTL(), d.Metrics)
	configH := NewConfigHandler(cfg)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.RequestLog(d.Metrics))
	r.Use(chimw.Compress(5))
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", Health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	r.Get("/api/config/client", configH.GetClientConfig)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.Auth.Secret))
		r.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		r.Get("/api/users/me", userH.Me)
		r.Get("/api/users/recipients", userH.Recipients)
		r.Get("/api/messages/user/{userId}", msgH.ListForUser)
		r.Get("/api/messages/thread/{userId}/{partnerId}", msgH.GetThread)
		r.Post("/api/messages", msgH.Send)
		r.Put("/api/messages/{id}/read", msgH.MarkRead)
	})
	return r
}
