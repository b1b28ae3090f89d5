package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/services"
)

const genericErrorMessage = "Something went wrong, please try again"

// httpError maps a service error to the response the client sees. Anything
// unexpected is logged and reported as a generic 500.
func httpError(log zerolog.Logger, err error) error {
	var verr *services.ValidationError
	var cooldown *services.CooldownError

	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.As(err, &cooldown):
		return echo.NewHTTPError(http.StatusTooManyRequests, echo.Map{
			"message":        cooldown.Error(),
			"days_remaining": cooldown.DaysRemaining,
		})
	case errors.Is(err, services.ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, services.ErrInvalidSession):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired anonymous session")
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Submission not found")
	case errors.Is(err, models.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrAlreadyLiked):
		return echo.NewHTTPError(http.StatusConflict, "Already liked")
	}

	log.Error().Err(err).Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, genericErrorMessage)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

// pageParams reads ?page= and ?limit=, leaving bad values to the defaults.
func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return services.NormalizePage(page, limit)
}
