package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/middleware"
	"github.com/anonto42/photowall/backend/internal/repositories"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	log                    zerolog.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{notificationRepository: notifRepo, log: log}
}

// RegisterNotificationRoutes registers notification routes, all behind authentication
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	authed := middleware.RequireAuth()
	g.GET("/notifications", h.GetNotifications, authed)
	g.GET("/notifications/unread-count", h.GetUnreadCount, authed)
	g.PUT("/notifications/read-all", h.MarkAllAsRead, authed)
	g.PUT("/notifications/:id/read", h.MarkAsRead, authed)
}

// GetNotifications returns the caller's notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	identity := middleware.CurrentIdentity(c)
	page, limit := pageParams(c)

	items, total, err := h.notificationRepository.ListForRecipient(c.Request().Context(), identity.UserID, (page-1)*limit, limit)
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	count, err := h.notificationRepository.UnreadCount(c.Request().Context(), middleware.CurrentIdentity(c).UserID)
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": count})
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	err = h.notificationRepository.MarkRead(c.Request().Context(), id, middleware.CurrentIdentity(c).UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
	}
	if err != nil {
		return httpError(h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	n, err := h.notificationRepository.MarkAllRead(c.Request().Context(), middleware.CurrentIdentity(c).UserID)
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}
