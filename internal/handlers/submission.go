package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/middleware"
	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/services"
)

// SubmissionHandler serves intake and the public read side
type SubmissionHandler struct {
	intake         *services.IntakeService
	gallery        *services.GalleryService
	maxUploadBytes int64
	log            zerolog.Logger
}

func NewSubmissionHandler(intake *services.IntakeService, gallery *services.GalleryService, maxUploadBytes int64, log zerolog.Logger) *SubmissionHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = services.DefaultMaxUploadBytes
	}
	return &SubmissionHandler{
		intake:         intake,
		gallery:        gallery,
		maxUploadBytes: maxUploadBytes,
		log:            log.With().Str("component", "submissions").Logger(),
	}
}

// RegisterSubmissionRoutes registers routes under /submissions
func (h *SubmissionHandler) RegisterSubmissionRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/status", h.Status)
	g.GET("/:id", h.Get)
}

// galleryItem is a submission as one viewer sees it
type galleryItem struct {
	models.Submission
	IsLiked bool `json:"is_liked"`
}

// Create accepts a multipart upload with username, caption and image fields
func (h *SubmissionHandler) Create(c echo.Context) error {
	var req models.CreateSubmissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image is required")
	}
	if file.Size > h.maxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("image must be at most %d bytes", h.maxUploadBytes))
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image could not be read")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.maxUploadBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image could not be read")
	}

	result, err := h.intake.Submit(c.Request().Context(), services.SubmitInput{
		Username: req.Username,
		Caption:  req.Caption,
		Image:    data,
		Owner:    middleware.CurrentIdentity(c),
	})
	if err != nil {
		return httpError(h.log, err)
	}

	if result.Outcome == services.OutcomeRejectedAsDuplicate {
		return c.JSON(http.StatusConflict, echo.Map{
			"status":                 "rejected",
			"message":                result.Rejected.Reason,
			"original_submission_id": result.Original.ID,
			"original_username":      result.Original.Username,
		})
	}
	return c.JSON(http.StatusCreated, result.Submission)
}

// List returns one page of the approved gallery
func (h *SubmissionHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	out, liked, err := h.gallery.Page(c.Request().Context(), middleware.CurrentIdentity(c), page, limit)
	if err != nil {
		return httpError(h.log, err)
	}

	items := make([]galleryItem, len(out.Items))
	for i, sub := range out.Items {
		items[i] = galleryItem{Submission: sub, IsLiked: liked[sub.ID]}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"total": out.Total,
		"page":  out.Page,
		"limit": out.Limit,
	})
}

// Get returns one submission
func (h *SubmissionHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	sub, err := h.gallery.Get(c.Request().Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, sub)
}

// Status reports the latest attempt of ?username=
func (h *SubmissionHandler) Status(c echo.Context) error {
	view, err := h.gallery.StatusLookup(c.Request().Context(), c.QueryParam("username"))
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(http.StatusOK, view)
}
