package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/middleware"
	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/services"
)

// ModerationHandler exposes the moderation queue. Every route expects the
// group to require the moderate capability.
type ModerationHandler struct {
	moderation *services.ModerationService
	log        zerolog.Logger
}

func NewModerationHandler(moderation *services.ModerationService, log zerolog.Logger) *ModerationHandler {
	return &ModerationHandler{moderation: moderation, log: log.With().Str("component", "moderation").Logger()}
}

// RegisterModerationRoutes registers routes under /moderation
func (h *ModerationHandler) RegisterModerationRoutes(g *echo.Group) {
	g.GET("/submissions", h.List)
	g.POST("/submissions/bulk", h.Bulk)
	g.POST("/submissions/:id/approve", h.Approve)
	g.POST("/submissions/:id/reject", h.Reject)
	g.DELETE("/submissions/:id", h.Delete)
	g.GET("/rejected", h.Rejected)
	g.GET("/stats", h.Stats)
}

// List returns submissions in ?status= (pending by default), newest first
func (h *ModerationHandler) List(c echo.Context) error {
	status, err := models.ParseStatus(c.QueryParam("status"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	page, limit := pageParams(c)

	items, total, err := h.moderation.List(c.Request().Context(), middleware.CurrentIdentity(c), status, (page-1)*limit, limit)
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":  items,
		"total":  total,
		"page":   page,
		"limit":  limit,
		"status": status,
	})
}

func (h *ModerationHandler) Approve(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	sub, err := h.moderation.Approve(c.Request().Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *ModerationHandler) Reject(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req models.RejectSubmissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sub, err := h.moderation.Reject(c.Request().Context(), middleware.CurrentIdentity(c), id, req.Reason)
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *ModerationHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.moderation.Delete(c.Request().Context(), middleware.CurrentIdentity(c), id); err != nil {
		return httpError(h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Bulk applies one action to many submissions and reports each one
func (h *ModerationHandler) Bulk(c echo.Context) error {
	var req models.BulkModerationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.moderation.Bulk(c.Request().Context(), middleware.CurrentIdentity(c), services.BulkAction(req.Action), req.IDs, req.Reason)
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   result.Summary(),
		"action":    result.Action,
		"items":     result.Items,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
}

// Rejected lists recent duplicate rejections from intake
func (h *ModerationHandler) Rejected(c echo.Context) error {
	page, limit := pageParams(c)
	records, err := h.moderation.RecentRejected(c.Request().Context(), middleware.CurrentIdentity(c), (page-1)*limit, limit)
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": records, "page": page, "limit": limit})
}

func (h *ModerationHandler) Stats(c echo.Context) error {
	counts, err := h.moderation.Stats(c.Request().Context(), middleware.CurrentIdentity(c))
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, counts)
}
