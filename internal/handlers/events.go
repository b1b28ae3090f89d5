package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/changefeed"
)

const heartbeatInterval = 25 * time.Second

// EventsHandler streams submission changes as server-sent events
type EventsHandler struct {
	feed changefeed.Feed
	log  zerolog.Logger
}

func NewEventsHandler(feed changefeed.Feed, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{feed: feed, log: log.With().Str("component", "events").Logger()}
}

func (h *EventsHandler) RegisterEventRoutes(g *echo.Group) {
	g.GET("/submissions/events", h.Stream)
}

// Stream subscribes the caller to the change feed, optionally narrowed with
// ?submission_id=, until the client goes away.
func (h *EventsHandler) Stream(c echo.Context) error {
	var filter changefeed.Filter
	if raw := c.QueryParam("submission_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid submission_id")
		}
		filter.SubmissionID = uint(id)
	}

	ctx := c.Request().Context()
	events, err := h.feed.Subscribe(ctx, filter)
	if err != nil {
		return httpError(h.log, err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(e)
			if err != nil {
				h.log.Error().Err(err).Msg("encode change event")
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
