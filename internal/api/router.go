package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/photofeed-be/internal/api/handlers"
	"github.com/isdelr/photofeed-be/internal/services"
	"github.com/isdelr/photofeed-be/internal/websocket"
)

// Deps bundles what the router needs to build its handlers.
type Deps struct {
	AuthService    services.AuthServiceProvider
	FeedService    services.FeedServiceProvider
	EventService   services.EventServiceProvider
	Hub            *websocket.Hub
	DB             handlers.Pinger
	Staging        handlers.FreeSpacer
	CORSOrigins    []string
	MaxUploadBytes int64
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(d.AuthService)
	postHandler := handlers.NewPostHandler(d.FeedService, d.MaxUploadBytes)
	eventHandler := handlers.NewEventHandler(d.EventService)
	healthHandler := handlers.NewHealthHandler(d.DB, d.Staging)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, d.CORSOrigins)

	r.Get("/health", healthHandler.Get)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/jwt/login", authHandler.Login)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
		r.Post("/request-verify-token", authHandler.RequestVerifyToken)
		r.Post("/verify", authHandler.Verify)
	})

	// Public feed
	r.Get("/feed", postHandler.Feed)
	r.Get("/feed/ws", wsHandler.Serve)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(authHandler.RequireUser)

		r.Get("/users/me", authHandler.GetMe)
		r.Post("/upload", postHandler.Upload)
		r.Delete("/post/{id}", postHandler.Delete)

		r.With(handlers.RequireSuperuser).Get("/events", eventHandler.GetRecent)
	})

	return r
}
