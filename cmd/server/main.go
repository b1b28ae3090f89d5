package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/auth"
	"github.com/anonto42/photowall/backend/internal/cache"
	"github.com/anonto42/photowall/backend/internal/changefeed"
	"github.com/anonto42/photowall/backend/internal/handlers"
	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/repositories"
	"github.com/anonto42/photowall/backend/internal/router"
	"github.com/anonto42/photowall/backend/internal/services"
	"github.com/anonto42/photowall/backend/internal/validators"
	"github.com/anonto42/photowall/backend/pkg/config"
	"github.com/anonto42/photowall/backend/pkg/firebase"
	"github.com/anonto42/photowall/backend/pkg/imaging"
	"github.com/anonto42/photowall/backend/pkg/logger"
	"github.com/anonto42/photowall/backend/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize databases")
	}
	defer db.CloseDB()

	if err := db.Postgres.AutoMigrate(models.RelationalModels()...); err != nil {
		log.Fatal().Err(err).Msg("auto migrate models")
	}
	log.Info().Msg("PostgreSQL auto-migrations completed")

	rejectedRepo := repositories.NewMongoRejectedRepository(db.Mongo.Database(cfg.MongoDatabase))
	if err := rejectedRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("create rejected submission indexes")
	}

	// Firebase is optional unless it also stores the images
	var fb *firebase.App
	if cfg.FirebaseCredentialsPath != "" {
		fb, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseStorageBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize firebase")
		}
	}

	store, err := storage.New(ctx, cfg, fb, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize image storage")
	}

	feed, closeFeed := newFeed(cfg, log)
	defer closeFeed()

	submissionRepo := repositories.NewPostgresSubmissionRepository(db.Postgres)
	likeRepo := repositories.NewPostgresLikeRepository(db.Postgres)
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	notificationRepo := repositories.NewPostgresNotificationRepository(db.Postgres)

	galleryCache := cache.NewGalleryCache(db.Redis, cfg.GalleryCacheTTL, log)
	anonLikes := cache.NewAnonymousLikes(db.Redis, cfg.AnonSessionTTL)

	detector := services.NewDuplicateDetector(submissionRepo, cfg.DuplicateThreshold)
	intake := services.NewIntakeService(submissionRepo, rejectedRepo, detector, imaging.NewPipeline(), store, feed, services.IntakeConfig{
		Cooldown:       cfg.SubmissionCooldown,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, log)
	retention := services.NewRetentionService(rejectedRepo, store, cfg.RejectedRetention, log)

	moderation := services.NewModerationService(submissionRepo, rejectedRepo, store, anonLikes, feed, galleryCache, log)
	moderation.NotifyOwners(notificationRepo)

	var firebaseAuth handlers.TokenVerifier
	if fb != nil {
		firebaseAuth = fb.AuthClient
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, cfg, log)
	if cfg.StorageBackend == config.StorageLocal {
		e.Static("/media", cfg.LocalStoragePath)
	}

	router.SetupRoutes(e, router.Deps{
		ServiceName:    cfg.ServiceName,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Pinger:         db,
		Users:          userRepo,
		Notifications:  notificationRepo,
		Issuer:         auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		FirebaseAuth:   firebaseAuth,
		IsModerator:    cfg.IsModeratorEmail,
		Intake:         intake,
		Gallery:        services.NewGalleryService(submissionRepo, likeRepo, rejectedRepo, galleryCache),
		Moderation:     moderation,
		Likes:          services.NewLikeLedger(submissionRepo, likeRepo, anonLikes, feed, galleryCache, log),
		Feed:           feed,
		Log:            log,
	})

	metricsServer := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: promhttp.Handler()}
	go func() {
		log.Info().Str("addr", metricsServer.Addr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	go retention.Run(ctx, cfg.CleanupInterval)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown http server")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown metrics server")
	}
	log.Info().Msg("server exited cleanly")
}

// newFeed connects to NATS when NATS_URL is set and falls back to the
// in-process broker otherwise.
func newFeed(cfg *config.Config, log zerolog.Logger) (changefeed.Feed, func()) {
	if cfg.NatsURL == "" {
		return changefeed.NewBroker(log), func() {}
	}
	nf, err := changefeed.ConnectNATS(cfg.NatsURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect nats")
	}
	return nf, nf.Close
}
