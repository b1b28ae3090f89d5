package router

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/auth"
	"github.com/anonto42/photowall/backend/internal/changefeed"
	"github.com/anonto42/photowall/backend/internal/handlers"
	"github.com/anonto42/photowall/backend/internal/metrics"
	"github.com/anonto42/photowall/backend/internal/middleware"
	"github.com/anonto42/photowall/backend/internal/repositories"
	"github.com/anonto42/photowall/backend/internal/services"
)

// Deps is everything the HTTP layer needs, built once in main.
type Deps struct {
	ServiceName    string
	MaxUploadBytes int64

	Pinger        handlers.Pinger
	Users         repositories.UserRepository
	Notifications repositories.NotificationRepository
	Issuer        *auth.TokenIssuer
	FirebaseAuth  handlers.TokenVerifier // nil disables Firebase login
	IsModerator   func(email string) bool

	Intake     *services.IntakeService
	Gallery    *services.GalleryService
	Moderation *services.ModerationService
	Likes      *services.LikeLedger
	Feed       changefeed.Feed

	Log zerolog.Logger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, d Deps) {
	log := d.Log.With().Str("component", "router").Logger()

	e.Use(metrics.Middleware())

	// Health check - always accessible
	health := handlers.NewHealthHandler(d.Pinger, d.ServiceName)
	e.GET("/health", health.HealthCheck)

	// Every API route resolves the caller; anonymous requests pass through
	api := e.Group("/api/v1", middleware.Identity(d.Issuer))

	authHandler := handlers.NewAuthHandler(d.Users, d.FirebaseAuth, d.Issuer, d.IsModerator, d.Log)
	authHandler.RegisterAuthRoutes(api.Group("/auth"))
	log.Debug().Msg("auth routes configured")

	userHandler := handlers.NewUserHandler(d.Users, d.Gallery, d.Log)
	userHandler.RegisterProfileRoutes(api)
	log.Debug().Msg("profile routes configured")

	eventsHandler := handlers.NewEventsHandler(d.Feed, d.Log)
	eventsHandler.RegisterEventRoutes(api)

	submissionHandler := handlers.NewSubmissionHandler(d.Intake, d.Gallery, d.MaxUploadBytes, d.Log)
	submissionHandler.RegisterSubmissionRoutes(api.Group("/submissions"))
	log.Debug().Msg("submission routes configured")

	likeHandler := handlers.NewLikeHandler(d.Likes, d.Log)
	likeHandler.RegisterLikeRoutes(api)
	log.Debug().Msg("like routes configured")

	notificationHandler := handlers.NewNotificationHandler(d.Notifications, d.Log)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Debug().Msg("notification routes configured")

	moderationHandler := handlers.NewModerationHandler(d.Moderation, d.Log)
	moderationHandler.RegisterModerationRoutes(api.Group("/moderation", middleware.RequireCapability(auth.CapModerate)))
	log.Debug().Msg("moderation routes configured")

	log.Info().Int("routes", len(e.Routes())).Msg("all routes configured")
}
