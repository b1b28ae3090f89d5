package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/middleware"
	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/repositories"
	"github.com/anonto42/photowall/backend/internal/services"
)

// UserHandler handles HTTP requests related to the signed-in user
type UserHandler struct {
	userRepository repositories.UserRepository
	gallery        *services.GalleryService
	log            zerolog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, gallery *services.GalleryService, log zerolog.Logger) *UserHandler {
	return &UserHandler{userRepository: userRepo, gallery: gallery, log: log}
}

// RegisterProfileRoutes registers profile routes, all behind authentication
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	authed := middleware.RequireAuth()
	g.GET("/profile", h.GetProfile, authed)
	g.PUT("/profile", h.UpdateProfile, authed)
}

// GetProfile returns the caller with their own submissions in every status
func (h *UserHandler) GetProfile(c echo.Context) error {
	identity := middleware.CurrentIdentity(c)

	user, err := h.userRepository.GetUserByID(identity.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
	}
	if err != nil {
		return httpError(h.log, err)
	}
	subs, err := h.gallery.Mine(c.Request().Context(), identity)
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user, "submissions": subs})
}

// UpdateProfile updates the caller's display name
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	identity := middleware.CurrentIdentity(c)

	var req models.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(identity.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
	}
	if err != nil {
		return httpError(h.log, err)
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if err := h.userRepository.UpdateUser(user); err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, user)
}
