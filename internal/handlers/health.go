package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports the state of each backing connection.
type Pinger interface {
	Ping(ctx context.Context) map[string]error
}

type HealthHandler struct {
	pinger  Pinger
	service string
}

func NewHealthHandler(pinger Pinger, service string) *HealthHandler {
	return &HealthHandler{pinger: pinger, service: service}
}

// HealthCheck returns 200 when every dependency answers and 503 otherwise.
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	deps := map[string]string{}
	for name, err := range h.pinger.Ping(ctx) {
		if err != nil {
			deps[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	return c.JSON(code, echo.Map{
		"status":       status,
		"service":      h.service,
		"dependencies": deps,
	})
}
