package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/photofeed-be/internal/api"
	"github.com/isdelr/photofeed-be/internal/auth"
	"github.com/isdelr/photofeed-be/internal/broker"
	"github.com/isdelr/photofeed-be/internal/config"
	"github.com/isdelr/photofeed-be/internal/database"
	"github.com/isdelr/photofeed-be/internal/gateway"
	"github.com/isdelr/photofeed-be/internal/logger"
	"github.com/isdelr/photofeed-be/internal/monitoring"
	"github.com/isdelr/photofeed-be/internal/services"
	"github.com/isdelr/photofeed-be/internal/staging"
	"github.com/isdelr/photofeed-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	// Set up database
	db, dialect, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db, dialect); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}
	log.Info().Str("dialect", string(dialect)).Msg("Database ready")

	// Set up staging and the image host
	stager, err := staging.NewStager(cfg.Staging.Dir, cfg.Staging.MinFreeBytes, cfg.Staging.MaxUploadBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize staging directory")
	}
	imageKit, err := gateway.NewImageKit(gateway.ImageKitOptions{
		PrivateKey: cfg.ImageKit.PrivateKey,
		UploadURL:  cfg.ImageKit.UploadURL,
		Folder:     cfg.ImageKit.Folder,
		Timeout:    cfg.ImageKit.UploadTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ImageKit client")
	}

	// Set up WebSocket Hub and feed event fan-out
	hub := websocket.NewHub()
	go hub.Run()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var publisher broker.Publisher = broker.NewLocal(hub)
	if cfg.RedisURL != "" {
		redisBroker, err := broker.NewRedis(cfg.RedisURL, hub)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis broker")
		}
		defer redisBroker.Close()
		go func() {
			if err := redisBroker.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Redis broker stopped")
			}
		}()
		publisher = redisBroker
	}

	// Set up services
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token manager")
	}
	userService := services.NewUserService(db)
	eventService := services.NewEventService(db)
	postService := services.NewPostService(db)
	authService, err := services.NewAuthService(userService, tokens, services.NewAuditHooks(eventService), cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth service")
	}
	feedService := services.NewFeedService(postService, imageKit, stager, publisher)

	// Set up and run the background staging sweeper
	sweeper, err := monitoring.NewStagingSweeper(stager, cfg.Staging.SweepSchedule, cfg.Staging.MaxAge)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize staging sweeper")
	}
	sweeper.Run()

	// Set up router
	router := api.NewRouter(api.Deps{
		AuthService:    authService,
		FeedService:    feedService,
		EventService:   eventService,
		Hub:            hub,
		DB:             db,
		Staging:        stager,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.Staging.MaxUploadBytes,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	stop()
	hub.Stop()

	log.Info().Msg("Server exiting")
}
