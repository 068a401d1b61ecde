package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aryaraj132/yt-downloader/api/cache"
	"github.com/aryaraj132/yt-downloader/api/config"
	"github.com/aryaraj132/yt-downloader/api/database"
	"github.com/aryaraj132/yt-downloader/api/handlers"
	"github.com/aryaraj132/yt-downloader/api/kafka"
	"github.com/aryaraj132/yt-downloader/api/middleware"
	"github.com/aryaraj132/yt-downloader/api/ratelimit"
	"github.com/aryaraj132/yt-downloader/api/repository"
	"github.com/aryaraj132/yt-downloader/api/service"
	"github.com/aryaraj132/yt-downloader/api/token"
	"github.com/aryaraj132/yt-downloader/api/validation"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	ctx := context.Background()

	if err := database.Migrate(cfg.DatabaseURL, "migrations"); err != nil {
		logger.Fatal("Migrations failed", zap.Error(err))
	}

	db, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Postgres connection failed", zap.Error(err))
	}
	defer db.Close()

	redisCache, err := database.ConnectCache(cfg.RedisAddr, cfg.RedisPass)
	if err != nil {
		logger.Fatal("Redis connection failed", zap.Error(err))
	}
	defer redisCache.Close()

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		logger.Fatal("Kafka producer failed", zap.Error(err))
	}
	defer producer.Close()

	jobRepo := repository.NewPostgresJobRepo(db)
	authRepo := repository.NewPostgresAuthRepo(db)

	sessionCache := cache.NewSessionCache(redisCache, cfg.SessionCacheTTL)
	progressStore := cache.NewProgressStore(redisCache, cfg.ProgressTTL)

	authority := token.NewAuthority(token.Config{
		PublicSecret:    []byte(cfg.JWTPublicSecret),
		PrivateSecret:   []byte(cfg.JWTPrivateSecret),
		PrivateLifetime: cfg.PrivateTokenTTL,
	}, authRepo, sessionCache, logger)

	limiter := ratelimit.NewLimiter(redisCache, cfg.PublicRateLimit, logger)
	validator := validation.NewValidator(validation.Limits{
		GuestMaxClipSeconds:  cfg.PublicMaxClipSeconds,
		GuestMaxInputSeconds: cfg.PublicMaxInputSeconds,
		MaxVideoSeconds:      cfg.MaxVideoSeconds,
	})

	jobService := service.NewJobService(jobRepo, progressStore, producer, limiter, validator, cfg.RetentionWindow, logger)
	authService := service.NewAuthService(authRepo, authRepo, authority, logger)

	jobHandler := handlers.NewJobHandler(jobService, logger)
	authHandler := handlers.NewAuthHandler(authService, logger)

	rtr := chi.NewRouter()
	rtr.Use(middleware.TraceID)
	rtr.Use(middleware.Logging(logger))
	rtr.Use(middleware.Recovery(logger))
	rtr.Use(middleware.Identify(authority))

	rtr.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	rtr.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/password", authHandler.ChangePassword)
		r.Post("/auth/token/public", authHandler.PublicToken)

		r.Post("/jobs", jobHandler.Create)
		r.Get("/jobs/{id}", jobHandler.Status)
		r.Post("/jobs/{id}/retry", jobHandler.Retry)
	})

	logger.Info("API service started", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, rtr); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
