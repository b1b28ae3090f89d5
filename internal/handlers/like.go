package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/auth"
	"github.com/anonto42/photowall/backend/internal/middleware"
	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/services"
)

// AnonymousTokenHeader carries the session issued by POST /anonymous-sessions.
const AnonymousTokenHeader = "X-Anonymous-Token"

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	ledger *services.LikeLedger
	log    zerolog.Logger
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(ledger *services.LikeLedger, log zerolog.Logger) *LikeHandler {
	return &LikeHandler{ledger: ledger, log: log.With().Str("component", "likes").Logger()}
}

// RegisterLikeRoutes registers like routes. Authenticated routes get auth
// wrapped around them here since anonymous routes share the group.
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/anonymous-sessions", h.IssueSession)
	g.POST("/submissions/:id/likes/anonymous", h.LikeAnonymous)
	g.GET("/submissions/:id/likes/anonymous", h.AnonymousStatus)

	authed := middleware.RequireAuth()
	g.POST("/submissions/:id/likes", h.Like, authed)
	g.DELETE("/submissions/:id/likes", h.Unlike, authed)
	g.PUT("/submissions/:id/likes/toggle", h.Toggle, authed)
	g.GET("/submissions/:id/likes/status", h.Status, authed)
}

// IssueSession hands out a new anonymous like session
func (h *LikeHandler) IssueSession(c echo.Context) error {
	token, err := h.ledger.IssueAnonymousSession(c.Request().Context())
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"token": token})
}

// LikeAnonymous adds one like from the session in X-Anonymous-Token
func (h *LikeHandler) LikeAnonymous(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	token := c.Request().Header.Get(AnonymousTokenHeader)
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, AnonymousTokenHeader+" header is required")
	}

	count, err := h.ledger.LikeAnonymous(c.Request().Context(), id, token)
	if errors.Is(err, services.ErrAlreadyLiked) {
		return echo.NewHTTPError(http.StatusConflict, echo.Map{
			"message": "Already liked",
			"likes":   count,
		})
	}
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, models.LikeState{SubmissionID: id, Liked: true, Likes: count})
}

// AnonymousStatus reports whether the session liked the submission
func (h *LikeHandler) AnonymousStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	state, err := h.ledger.AnonymousStatus(c.Request().Context(), id, c.Request().Header.Get(AnonymousTokenHeader))
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, state)
}

func (h *LikeHandler) Like(c echo.Context) error {
	return h.apply(c, h.ledger.Like)
}

func (h *LikeHandler) Unlike(c echo.Context) error {
	return h.apply(c, h.ledger.Unlike)
}

func (h *LikeHandler) Toggle(c echo.Context) error {
	return h.apply(c, h.ledger.ToggleLike)
}

func (h *LikeHandler) Status(c echo.Context) error {
	return h.apply(c, h.ledger.Status)
}

type likeOp func(ctx context.Context, submissionID uint, identity auth.Identity) (models.LikeState, error)

func (h *LikeHandler) apply(c echo.Context, op likeOp) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	state, err := op(c.Request().Context(), id, middleware.CurrentIdentity(c))
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, state)
}
